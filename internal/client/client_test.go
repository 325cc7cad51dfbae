package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
	"github.com/mcoot/werewolf/internal/testutil"
	"github.com/mcoot/werewolf/internal/transport"
)

type recordingRenderer struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingRenderer) Render(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingRenderer) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	texts := make([]string, len(r.notices))
	for i, n := range r.notices {
		texts[i] = n.Text
	}
	return texts
}

type ClientSuite struct {
	suite.Suite
	host     *transport.Session
	client   *Client
	renderer *recordingRenderer
	ctx      context.Context
	cancel   context.CancelFunc
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Second)
	hostSide, playerSide := net.Pipe()
	s.host = transport.NewSession(transport.NewStreamConn(hostSide, 0), testutil.NopLogger())
	s.renderer = &recordingRenderer{}
	s.client = New(transport.NewStreamConn(playerSide, 0), FirstChoice{}, s.renderer, testutil.NopLogger())
}

func (s *ClientSuite) TearDownTest() {
	s.cancel()
	_ = s.host.Close()
	_ = s.client.Close()
}

// exchange sends msg from the host side and returns the player's reply
func (s *ClientSuite) exchange(msg protocol.Message) protocol.Message {
	reply, err := s.host.Request(s.ctx, msg)
	s.Require().NoError(err)
	return reply
}

// handshake plays the host's side of a join for a client named Carol
func (s *ClientSuite) handshake() <-chan error {
	joined := make(chan error, 1)
	go func() { joined <- s.client.Join(s.ctx, "Carol") }()

	msg, err := s.host.Receive(s.ctx)
	s.Require().NoError(err)
	s.Equal(protocol.Connect{Name: "Carol"}, msg)

	s.Equal(protocol.Received{}, s.exchange(protocol.IDAssigned{ID: 2}))
	s.Equal(protocol.Received{}, s.exchange(protocol.RosterSnapshot{Players: []protocol.RosterEntry{
		{ID: 0, Name: "Alice"},
		{ID: 1, Name: "Bob"},
	}}))
	return joined
}

func (s *ClientSuite) TestJoin() {
	s.Require().NoError(<-s.handshake())

	s.Equal(model.PlayerID(2), s.client.ID())
	s.Equal([]Candidate{{0, "Alice"}, {1, "Bob"}, {2, "Carol"}}, s.client.Roster())
}

func (s *ClientSuite) TestJoinRejected() {
	joined := make(chan error, 1)
	go func() { joined <- s.client.Join(s.ctx, "Carol") }()

	_, err := s.host.Receive(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.host.Send(s.ctx, protocol.JoinRejected{Reason: "game in progress"}))

	err = <-joined
	s.ErrorIs(err, ErrJoinRejected)
	s.Contains(err.Error(), "game in progress")
}

func (s *ClientSuite) TestPlayAsWolf() {
	s.Require().NoError(<-s.handshake())

	result := make(chan model.Winner, 1)
	go func() {
		winner, err := s.client.Play(s.ctx)
		s.NoError(err)
		result <- winner
	}()

	s.Equal(protocol.Received{}, s.exchange(protocol.RoleAssigned{Role: model.RoleWolf}))
	s.Equal(protocol.Received{}, s.exchange(protocol.NightFalls{}))
	s.Equal(protocol.Received{}, s.exchange(protocol.WolvesWake{}))
	s.Equal(protocol.Kill{Target: 0}, s.exchange(protocol.KillOptions{Candidates: []model.PlayerID{0, 1}}))
	s.Equal(protocol.Received{}, s.exchange(protocol.Died{ID: 0}))
	s.Equal(protocol.Received{}, s.exchange(protocol.WaitingFor{ID: 1}))
	s.Equal(protocol.Received{}, s.exchange(protocol.AnnounceVote{Voter: 1, Target: 2}))
	s.Equal(protocol.Vote{Target: 1}, s.exchange(protocol.VoteOptions{Candidates: []model.PlayerID{1, 2}}))
	s.Equal(protocol.Received{}, s.exchange(protocol.VotedOut{ID: 1}))
	s.Equal(protocol.Received{}, s.exchange(protocol.AnnounceWinner{Winner: model.WinnerWolf}))

	s.Equal(model.WinnerWolf, <-result)
	s.Equal(model.RoleWolf, s.client.Role())
	s.False(s.client.Alive(0))
	s.False(s.client.Alive(1))
	s.True(s.client.Alive(2))
	s.Contains(s.renderer.Texts(), "Alice was killed in the night")
	s.Contains(s.renderer.Texts(), "Bob votes for Carol")
}

func (s *ClientSuite) TestPlayRejectsUnexpectedMessage() {
	s.Require().NoError(<-s.handshake())

	result := make(chan error, 1)
	go func() {
		_, err := s.client.Play(s.ctx)
		result <- err
	}()

	s.Require().NoError(s.host.Send(s.ctx, protocol.IDAssigned{ID: 9}))
	s.ErrorIs(<-result, protocol.ErrProtocolViolation)
}

func (s *ClientSuite) TestAnnounceJoinExtendsRoster() {
	s.Require().NoError(<-s.handshake())

	go func() { _, _ = s.client.Play(s.ctx) }()
	s.Equal(protocol.Received{}, s.exchange(protocol.AnnounceJoin{ID: 3, Name: "Dave"}))

	s.Len(s.client.Roster(), 4)
}
