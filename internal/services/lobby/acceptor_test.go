package lobby

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/werewolf/internal/dependencies/mocks"
	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
	"github.com/mcoot/werewolf/internal/services/registry"
	"github.com/mcoot/werewolf/internal/testutil"
	"github.com/mcoot/werewolf/internal/transport"
)

// testClient acknowledges everything the host sends and records it
type testClient struct {
	session *transport.Session
	done    chan struct{}

	mu       sync.Mutex
	received []protocol.Message
}

func (c *testClient) Received() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.received...)
}

func (c *testClient) run(ctx context.Context) {
	defer close(c.done)
	for {
		msg, err := c.session.Receive(ctx)
		if err != nil {
			return
		}
		c.mu.Lock()
		c.received = append(c.received, msg)
		c.mu.Unlock()
		if _, ok := msg.(protocol.JoinRejected); ok {
			continue
		}
		if err := c.session.Send(ctx, protocol.Received{}); err != nil {
			return
		}
	}
}

type AcceptorSuite struct {
	suite.Suite
	registry *registry.Registry
	events   *testutil.EventRecorder
	acceptor *Acceptor
	ctx      context.Context
	cancel   context.CancelFunc
}

func TestAcceptorSuite(t *testing.T) {
	suite.Run(t, new(AcceptorSuite))
}

func (s *AcceptorSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.registry = registry.New(testutil.NopLogger())
	s.events = testutil.NewEventRecorder()

	cfg := DefaultConfig()
	cfg.HandshakeTimeout = time.Second
	s.acceptor = NewAcceptor(s.registry, s.events, mocks.NewMockClock(time.Now()), cfg, testutil.NopLogger())
	go s.acceptor.Run(s.ctx)
}

func (s *AcceptorSuite) TearDownTest() {
	s.cancel()
	s.registry.Close()
}

// dial connects a new auto-acknowledging client over an in-memory pipe and
// returns it with the outcome of the host's handshake
func (s *AcceptorSuite) dial(name string) (*testClient, <-chan error) {
	serverSide, clientSide := net.Pipe()

	result := make(chan error, 1)
	go func() {
		result <- s.acceptor.HandleConn(s.ctx, transport.NewStreamConn(serverSide, 0))
	}()

	client := &testClient{
		session: transport.NewSession(transport.NewStreamConn(clientSide, 0), testutil.NopLogger()),
		done:    make(chan struct{}),
	}
	s.T().Cleanup(func() { _ = client.session.Close() })
	s.Require().NoError(client.session.Send(s.ctx, protocol.Connect{Name: name}))
	go client.run(s.ctx)
	return client, result
}

func (s *AcceptorSuite) admit(name string) *testClient {
	client, result := s.dial(name)
	select {
	case err := <-result:
		s.Require().NoError(err)
	case <-time.After(2 * time.Second):
		s.FailNow("handshake did not finish", name)
	}
	return client
}

func (s *AcceptorSuite) awaitResult(result <-chan error) error {
	select {
	case err := <-result:
		return err
	case <-time.After(2 * time.Second):
		s.FailNow("handshake did not finish")
		return nil
	}
}

// Admission tests

func (s *AcceptorSuite) TestAdmitsPlayersInOrder() {
	alice := s.admit("Alice")
	bob := s.admit("Bob")

	s.Equal(2, s.registry.Count())

	s.Equal([]protocol.Message{
		protocol.IDAssigned{ID: 1},
		protocol.RosterSnapshot{Players: []protocol.RosterEntry{{ID: 0, Name: "Alice"}}},
	}, bob.Received())

	s.Eventually(func() bool {
		return len(alice.Received()) == 3
	}, time.Second, 5*time.Millisecond)
	s.Equal([]protocol.Message{
		protocol.IDAssigned{ID: 0},
		protocol.RosterSnapshot{Players: []protocol.RosterEntry{}},
		protocol.AnnounceJoin{ID: 1, Name: "Bob"},
	}, alice.Received())
}

func (s *AcceptorSuite) TestDuplicateNameIsRejected() {
	s.admit("Alice")

	client, result := s.dial("alice")
	s.ErrorIs(s.awaitResult(result), model.ErrNameTaken)

	<-client.done
	received := client.Received()
	s.Require().Len(received, 1)
	rejected, ok := received[0].(protocol.JoinRejected)
	s.Require().True(ok)
	s.Contains(rejected.Reason, model.ErrNameTaken.Error())
	s.Equal(1, s.registry.Count())
	s.Contains(s.events.Types(), model.EventJoinRejected)
}

func (s *AcceptorSuite) TestEmptyNameIsRejected() {
	_, result := s.dial("   ")
	s.ErrorIs(s.awaitResult(result), model.ErrNameEmpty)
	s.Equal(0, s.registry.Count())
}

func (s *AcceptorSuite) TestFirstMessageMustBeConnect() {
	serverSide, clientSide := net.Pipe()
	result := make(chan error, 1)
	go func() {
		result <- s.acceptor.HandleConn(s.ctx, transport.NewStreamConn(serverSide, 0))
	}()

	client := transport.NewSession(transport.NewStreamConn(clientSide, 0), testutil.NopLogger())
	defer client.Close()
	s.Require().NoError(client.Send(s.ctx, protocol.Vote{Target: 0}))

	s.ErrorIs(s.awaitResult(result), protocol.ErrProtocolViolation)
	s.Equal(0, s.registry.Count())
}

func (s *AcceptorSuite) TestSilentConnectionTimesOut() {
	s.acceptor.cfg.HandshakeTimeout = 20 * time.Millisecond
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	err := s.acceptor.HandleConn(s.ctx, transport.NewStreamConn(serverSide, 0))
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Equal(0, s.registry.Count())
}

func (s *AcceptorSuite) TestNewcomerSilentAfterIDAssignedIsDropped() {
	s.admit("Alice")
	s.admit("Bob")
	s.acceptor.cfg.HandshakeTimeout = 100 * time.Millisecond

	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	result := make(chan error, 1)
	go func() {
		result <- s.acceptor.HandleConn(s.ctx, transport.NewStreamConn(serverSide, 0))
	}()

	// Acknowledge the id, then stop reading
	raw := transport.NewStreamConn(clientSide, 0)
	connect, err := protocol.Encode(protocol.Connect{Name: "Carol"})
	s.Require().NoError(err)
	s.Require().NoError(raw.WriteFrame(connect))
	frame, err := raw.ReadFrame()
	s.Require().NoError(err)
	assigned, err := protocol.Decode(frame)
	s.Require().NoError(err)
	s.Equal(protocol.IDAssigned{ID: 2}, assigned)
	ack, err := protocol.Encode(protocol.Received{})
	s.Require().NoError(err)
	s.Require().NoError(raw.WriteFrame(ack))

	err = s.awaitResult(result)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.True(model.IsPeerFault(err))

	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	s.Require().NoError(s.acceptor.Seal(ctx, 2))
	s.Equal(2, s.registry.Count())
}

func (s *AcceptorSuite) TestOnJoinReportsPlayerCount() {
	var mu sync.Mutex
	var counts []int
	s.acceptor.OnJoin(func(players int) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, players)
	})

	s.admit("Alice")
	s.admit("Bob")

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]int{1, 2}, counts)
}

func (s *AcceptorSuite) TestJoinEventsArePublished() {
	s.admit("Alice")

	events := s.events.Events()
	s.Require().Len(events, 1)
	s.Equal(model.EventPlayerJoined, events[0].Type)
	s.Equal(model.PlayerID(0), *events[0].PlayerID)
	s.Equal(model.PlayerJoinedPayload{Name: "Alice", Players: 1}, events[0].Payload)
}

// Seal tests

func (s *AcceptorSuite) TestSealRequiresMinimumPlayers() {
	s.admit("Alice")

	err := s.acceptor.Seal(s.ctx, 2)
	s.ErrorIs(err, model.ErrInsufficientPlayers)
	s.True(s.acceptor.Open())
}

func (s *AcceptorSuite) TestSealRejectsLaterConnections() {
	s.admit("Alice")
	s.admit("Bob")

	s.Require().NoError(s.acceptor.Seal(s.ctx, 2))
	s.False(s.acceptor.Open())

	client, result := s.dial("Carol")
	s.ErrorIs(s.awaitResult(result), model.ErrJoinClosed)

	<-client.done
	s.Equal([]protocol.Message{protocol.JoinRejected{Reason: ReasonGameInProgress}}, client.Received())
	s.Equal(2, s.registry.Count())
	s.Contains(s.events.Types(), model.EventJoinClosed)
}

func (s *AcceptorSuite) TestSealTwice() {
	s.admit("Alice")
	s.admit("Bob")

	s.Require().NoError(s.acceptor.Seal(s.ctx, 2))
	s.ErrorIs(s.acceptor.Seal(s.ctx, 2), model.ErrJoinClosed)
}

// Serve tests

func (s *AcceptorSuite) TestServeAcceptsTCPPlayers() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	served := make(chan error, 1)
	go func() { served <- s.acceptor.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	s.Require().NoError(err)
	client := &testClient{
		session: transport.NewSession(transport.NewStreamConn(conn, 0), testutil.NopLogger()),
		done:    make(chan struct{}),
	}
	defer client.session.Close()
	s.Require().NoError(client.session.Send(s.ctx, protocol.Connect{Name: "Alice"}))
	go client.run(s.ctx)

	s.Eventually(func() bool {
		return s.registry.Count() == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-served:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("Serve did not return after cancellation")
	}
}
