package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/mcoot/werewolf/internal/model"
)

var (
	// ErrMalformed means a frame could not be decoded. It is fatal to the session.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownKind means the envelope named a kind this host does not speak
	ErrUnknownKind = fmt.Errorf("%w: unknown kind", ErrMalformed)
	// ErrProtocolViolation means a well-formed message arrived where it was not allowed
	ErrProtocolViolation = errors.New("protocol violation")
)

// Envelope is the frame body: a kind tag and its raw payload
type Envelope struct {
	T Kind            `json:"t"`
	P json.RawMessage `json:"p,omitempty"`
}

// Encode wraps msg in an envelope
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("encode nil message")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	return json.Marshal(Envelope{T: msg.Kind(), P: payload})
}

// DecodeEnvelope parses the outer frame without looking at the payload
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.T == "" {
		return Envelope{}, fmt.Errorf("%w: missing kind", ErrMalformed)
	}
	return env, nil
}

// DecodePayload unmarshals the payload of env into T.
// Kinds without fields may omit the payload.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(env.P, &out); err != nil {
		return out, fmt.Errorf("%w: %s payload: %w", ErrMalformed, env.T, err)
	}
	return out, nil
}

// Decode parses a full frame into its concrete message type
func Decode(b []byte) (Message, error) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return nil, err
	}
	switch env.T {
	case KindConnect:
		return decodeAs[Connect](env)
	case KindVote:
		target, err := decodeTarget(env)
		if err != nil {
			return nil, err
		}
		return Vote{Target: target}, nil
	case KindKill:
		target, err := decodeTarget(env)
		if err != nil {
			return nil, err
		}
		return Kill{Target: target}, nil
	case KindReceived:
		return decodeAs[Received](env)
	case KindIDAssigned:
		return decodeAs[IDAssigned](env)
	case KindRosterSnapshot:
		return decodeAs[RosterSnapshot](env)
	case KindAnnounceJoin:
		return decodeAs[AnnounceJoin](env)
	case KindRoleAssigned:
		return decodeAs[RoleAssigned](env)
	case KindNightFalls:
		return decodeAs[NightFalls](env)
	case KindWolvesWake:
		return decodeAs[WolvesWake](env)
	case KindDied:
		return decodeAs[Died](env)
	case KindKillOptions:
		return decodeAs[KillOptions](env)
	case KindVoteOptions:
		return decodeAs[VoteOptions](env)
	case KindAnnounceVote:
		return decodeAs[AnnounceVote](env)
	case KindWaitingFor:
		return decodeAs[WaitingFor](env)
	case KindNoMajority:
		return decodeAs[NoMajority](env)
	case KindVotedOut:
		return decodeAs[VotedOut](env)
	case KindAnnounceWinner:
		return decodeAs[AnnounceWinner](env)
	case KindForfeited:
		return decodeAs[Forfeited](env)
	case KindJoinRejected:
		return decodeAs[JoinRejected](env)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, env.T)
	}
}

func decodeAs[T Message](env Envelope) (Message, error) {
	msg, err := DecodePayload[T](env)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// choicePayload is the wire form of Vote and Kill. The target is required:
// a zero id is a real player.
type choicePayload struct {
	Target *model.PlayerID `json:"target"`
}

func decodeTarget(env Envelope) (model.PlayerID, error) {
	p, err := DecodePayload[choicePayload](env)
	if err != nil {
		return 0, err
	}
	if p.Target == nil {
		return 0, fmt.Errorf("%w: %s without target", ErrMalformed, env.T)
	}
	return *p.Target, nil
}

// Expect asserts that msg is a T, returning a protocol violation otherwise
func Expect[T Message](msg Message) (T, error) {
	out, ok := msg.(T)
	if !ok {
		var want T
		got := Kind("nothing")
		if msg != nil {
			got = msg.Kind()
		}
		return want, fmt.Errorf("%w: expected %s, got %s", ErrProtocolViolation, want.Kind(), got)
	}
	return out, nil
}

// ExpectReceived asserts that msg acknowledges an informational message
func ExpectReceived(msg Message) error {
	_, err := Expect[Received](msg)
	return err
}

// Choice validates that target was among the offered candidates
func Choice(target model.PlayerID, candidates []model.PlayerID) error {
	if !slices.Contains(candidates, target) {
		return fmt.Errorf("%w: %s was not offered", ErrProtocolViolation, target)
	}
	return nil
}
