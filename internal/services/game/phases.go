package game

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
	"github.com/mcoot/werewolf/internal/services/tally"
)

// night announces nightfall and asks the wolf for a kill.
// It reports whether anyone died.
func (e *Engine) night(ctx context.Context) (model.PlayerID, bool, error) {
	e.setPhase(model.PhaseNight)
	e.logger.Info("night falls", slog.Int("day", e.Status().Day))
	e.publish(model.Event{Type: model.EventNightFell})

	if err := e.registry.Broadcast(ctx, protocol.NightFalls{}); err != nil {
		return 0, false, err
	}
	if err := e.registry.Broadcast(ctx, protocol.WolvesWake{}); err != nil {
		return 0, false, err
	}

	wolfID, err := e.Wolf()
	if err != nil {
		return 0, false, err
	}
	wolf, err := e.registry.Get(wolfID)
	if err != nil {
		return 0, false, fmt.Errorf("%w: wolf %s missing from registry", model.ErrInvariantViolation, wolfID)
	}
	if !wolf.Living() {
		e.logger.Info("no kill tonight", slog.String("reason", "wolf not living"))
		return 0, false, nil
	}

	var candidates []model.PlayerID
	for _, p := range e.registry.Living() {
		if p.Role != model.RoleWolf {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		return 0, false, nil
	}

	target, err := e.choose(ctx, wolfID, protocol.KillOptions{Candidates: candidates},
		func(reply protocol.Message) (model.PlayerID, error) {
			kill, err := protocol.Expect[protocol.Kill](reply)
			if err != nil {
				return 0, err
			}
			return kill.Target, protocol.Choice(kill.Target, candidates)
		})
	if err != nil {
		if model.IsPeerFault(err) {
			e.logger.Info("no kill tonight", slog.String("reason", err.Error()))
			return 0, false, nil
		}
		return 0, false, err
	}

	if err := e.registry.Kill(target); err != nil {
		return 0, false, err
	}
	e.logger.Info("player killed", slog.String("player_id", target.String()))
	e.publish(model.Event{Type: model.EventPlayerKilled, PlayerID: model.PlayerRef(target)})
	return target, true, nil
}

// daytime announces the night's death, then collects one vote from each
// living player in id order and tabulates them.
// It reports the winner if a checkpoint ended the game.
func (e *Engine) daytime(ctx context.Context, victim model.PlayerID, killed bool) (model.Winner, bool, error) {
	e.setPhase(model.PhaseDay)
	e.publish(model.Event{Type: model.EventDayBroke})

	if killed {
		if err := e.registry.Broadcast(ctx, protocol.Died{ID: victim}); err != nil {
			return model.WinnerNone, false, err
		}
	}
	if winner, over := e.checkWin(CheckpointDawn); over {
		return winner, true, nil
	}

	ballots, err := e.collectVotes(ctx)
	if err != nil {
		return model.WinnerNone, false, err
	}

	// Ballots from, or naming, players who dropped out during the vote no longer count
	living := e.registry.LivingIDs()
	ballots.Retain(func(id model.PlayerID) bool {
		return slices.Contains(living, id)
	})
	if ballots.Len() == 0 {
		return model.WinnerNone, false, e.noMajority(ctx, tally.Outcome{}, 0, len(living))
	}

	outcome, err := tally.Tabulate(ballots.Map(), living, len(living))
	if err != nil {
		return model.WinnerNone, false, err
	}
	if !outcome.Majority {
		return model.WinnerNone, false, e.noMajority(ctx, outcome, ballots.Len(), len(living))
	}

	if err := e.registry.Broadcast(ctx, protocol.VotedOut{ID: outcome.Target}); err != nil {
		return model.WinnerNone, false, err
	}
	if err := e.registry.Kill(outcome.Target); err != nil {
		return model.WinnerNone, false, err
	}
	e.logger.Info("player voted out",
		slog.String("player_id", outcome.Target.String()),
		slog.Int("votes", outcome.Votes),
		slog.Int("living", len(living)))
	e.publish(model.Event{
		Type:     model.EventVotedOut,
		PlayerID: model.PlayerRef(outcome.Target),
		Payload:  model.VotedOutPayload{Votes: outcome.Votes, Living: len(living)},
	})

	winner, over := e.checkWin(CheckpointVote)
	return winner, over, nil
}

func (e *Engine) collectVotes(ctx context.Context) (*tally.Ballots, error) {
	ballots := tally.NewBallots()
	candidates := e.registry.LivingIDs()

	for _, voter := range candidates {
		if p, err := e.registry.Get(voter); err != nil || !p.Living() {
			continue
		}

		if err := e.registry.Broadcast(ctx, protocol.WaitingFor{ID: voter}); err != nil {
			return nil, err
		}

		target, err := e.choose(ctx, voter, protocol.VoteOptions{Candidates: candidates},
			func(reply protocol.Message) (model.PlayerID, error) {
				vote, err := protocol.Expect[protocol.Vote](reply)
				if err != nil {
					return 0, err
				}
				return vote.Target, protocol.Choice(vote.Target, candidates)
			})
		if err != nil {
			if model.IsPeerFault(err) {
				continue
			}
			return nil, err
		}

		if err := e.registry.Broadcast(ctx, protocol.AnnounceVote{Voter: voter, Target: target}); err != nil {
			return nil, err
		}
		ballots.Cast(voter, target)
		e.publish(model.Event{
			Type:     model.EventVoteCast,
			PlayerID: model.PlayerRef(voter),
			Payload:  model.VoteCastPayload{Target: target},
		})
	}
	return ballots, nil
}

func (e *Engine) noMajority(ctx context.Context, outcome tally.Outcome, cast, living int) error {
	e.logger.Info("no majority",
		slog.Int("ballots", cast),
		slog.Int("living", living),
		slog.Bool("tied", outcome.Tied))
	e.publish(model.Event{
		Type:    model.EventNoMajority,
		Payload: model.NoMajorityPayload{Ballots: cast, Living: living, Tied: outcome.Tied},
	})
	return e.registry.Broadcast(ctx, protocol.NoMajority{})
}

// choose sends a choice request to one player and parses the reply.
// A player that answers out of protocol is asked again up to Reprompts times,
// then forfeits. Transport failures mark the player disconnected.
// Both outcomes come back as a *model.PeerFault.
func (e *Engine) choose(
	ctx context.Context,
	id model.PlayerID,
	request protocol.Message,
	parse func(protocol.Message) (model.PlayerID, error),
) (model.PlayerID, error) {
	for attempt := 0; ; attempt++ {
		reply, err := e.request(ctx, id, request)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			return 0, err
		}

		target, parseErr := parse(reply)
		if parseErr == nil {
			return target, nil
		}

		e.logger.Warn("invalid reply",
			slog.String("player_id", id.String()),
			slog.String("request", string(request.Kind())),
			slog.Int("attempt", attempt+1),
			slog.String("error", parseErr.Error()))

		if attempt >= e.cfg.Reprompts {
			if err := e.forfeit(ctx, id); err != nil {
				return 0, err
			}
			return 0, &model.PeerFault{Player: id, Err: parseErr}
		}
	}
}

func (e *Engine) request(ctx context.Context, id model.PlayerID, msg protocol.Message) (protocol.Message, error) {
	if e.cfg.ResponseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ResponseTimeout)
		defer cancel()
	}
	return e.registry.RequestOne(ctx, id, msg)
}

// forfeit removes a player that keeps answering out of protocol
func (e *Engine) forfeit(ctx context.Context, id model.PlayerID) error {
	if err := e.registry.Kill(id); err != nil {
		return err
	}
	e.logger.Warn("player forfeited", slog.String("player_id", id.String()))
	e.publish(model.Event{Type: model.EventForfeited, PlayerID: model.PlayerRef(id)})
	return e.registry.Broadcast(ctx, protocol.Forfeited{ID: id})
}
