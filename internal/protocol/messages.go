package protocol

import "github.com/mcoot/werewolf/internal/model"

// Kind tags each message on the wire
type Kind string

// Client to host
const (
	KindConnect  Kind = "connect"
	KindVote     Kind = "vote"
	KindKill     Kind = "kill"
	KindReceived Kind = "received"
)

// Host to client
const (
	KindIDAssigned     Kind = "id_assigned"
	KindRosterSnapshot Kind = "roster_snapshot"
	KindAnnounceJoin   Kind = "announce_join"
	KindRoleAssigned   Kind = "role_assigned"
	KindNightFalls     Kind = "night_falls"
	KindWolvesWake     Kind = "wolves_wake"
	KindDied           Kind = "died"
	KindKillOptions    Kind = "kill_options"
	KindVoteOptions    Kind = "vote_options"
	KindAnnounceVote   Kind = "announce_vote"
	KindWaitingFor     Kind = "waiting_for"
	KindNoMajority     Kind = "no_majority"
	KindVotedOut       Kind = "voted_out"
	KindAnnounceWinner Kind = "announce_winner"
	KindForfeited      Kind = "forfeited"
	KindJoinRejected   Kind = "join_rejected"
)

// Message is any value that can travel in an envelope
type Message interface {
	Kind() Kind
}

type Connect struct {
	Name string `json:"name"`
}

type Vote struct {
	Target model.PlayerID `json:"target"`
}

type Kill struct {
	Target model.PlayerID `json:"target"`
}

// Received acknowledges an informational message
type Received struct{}

type IDAssigned struct {
	ID model.PlayerID `json:"id"`
}

// RosterEntry pairs an identity with its display name
type RosterEntry struct {
	ID   model.PlayerID `json:"id"`
	Name string         `json:"name"`
}

// RosterSnapshot lists every player registered before the recipient
type RosterSnapshot struct {
	Players []RosterEntry `json:"players"`
}

type AnnounceJoin struct {
	ID   model.PlayerID `json:"id"`
	Name string         `json:"name"`
}

type RoleAssigned struct {
	Role model.Role `json:"role"`
}

type NightFalls struct{}

type WolvesWake struct{}

type Died struct {
	ID model.PlayerID `json:"id"`
}

type KillOptions struct {
	Candidates []model.PlayerID `json:"candidates"`
}

type VoteOptions struct {
	Candidates []model.PlayerID `json:"candidates"`
}

type AnnounceVote struct {
	Voter  model.PlayerID `json:"voter"`
	Target model.PlayerID `json:"target"`
}

type WaitingFor struct {
	ID model.PlayerID `json:"id"`
}

type NoMajority struct{}

type VotedOut struct {
	ID model.PlayerID `json:"id"`
}

type AnnounceWinner struct {
	Winner model.Winner `json:"winner"`
}

// Forfeited tells every player that ID was removed for misbehaving
type Forfeited struct {
	ID model.PlayerID `json:"id"`
}

// JoinRejected is sent instead of IDAssigned. The host closes the connection after it.
type JoinRejected struct {
	Reason string `json:"reason"`
}

func (Connect) Kind() Kind        { return KindConnect }
func (Vote) Kind() Kind           { return KindVote }
func (Kill) Kind() Kind           { return KindKill }
func (Received) Kind() Kind       { return KindReceived }
func (IDAssigned) Kind() Kind     { return KindIDAssigned }
func (RosterSnapshot) Kind() Kind { return KindRosterSnapshot }
func (AnnounceJoin) Kind() Kind   { return KindAnnounceJoin }
func (RoleAssigned) Kind() Kind   { return KindRoleAssigned }
func (NightFalls) Kind() Kind     { return KindNightFalls }
func (WolvesWake) Kind() Kind     { return KindWolvesWake }
func (Died) Kind() Kind           { return KindDied }
func (KillOptions) Kind() Kind    { return KindKillOptions }
func (VoteOptions) Kind() Kind    { return KindVoteOptions }
func (AnnounceVote) Kind() Kind   { return KindAnnounceVote }
func (WaitingFor) Kind() Kind     { return KindWaitingFor }
func (NoMajority) Kind() Kind     { return KindNoMajority }
func (VotedOut) Kind() Kind       { return KindVotedOut }
func (AnnounceWinner) Kind() Kind { return KindAnnounceWinner }
func (Forfeited) Kind() Kind      { return KindForfeited }
func (JoinRejected) Kind() Kind   { return KindJoinRejected }

// IsRequest reports whether k is answered by a choice rather than Received
func IsRequest(k Kind) bool {
	return k == KindKillOptions || k == KindVoteOptions
}
