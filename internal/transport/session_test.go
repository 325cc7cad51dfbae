package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
	"github.com/mcoot/werewolf/internal/testutil"
)

type SessionSuite struct {
	suite.Suite
	hostConn   net.Conn
	clientConn net.Conn
	host       *Session
	client     *Session
	ctx        context.Context
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.hostConn, s.clientConn = net.Pipe()
	s.host = NewSession(NewStreamConn(s.hostConn, 0), testutil.NopLogger())
	s.client = NewSession(NewStreamConn(s.clientConn, 0), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *SessionSuite) TearDownTest() {
	_ = s.host.Close()
	_ = s.client.Close()
}

func (s *SessionSuite) TestRequestReceivesReply() {
	go func() {
		msg, err := s.client.Receive(s.ctx)
		if err != nil {
			return
		}
		if opts, ok := msg.(protocol.VoteOptions); ok {
			_ = s.client.Send(s.ctx, protocol.Vote{Target: opts.Candidates[1]})
		}
	}()

	reply, err := s.host.Request(s.ctx, protocol.VoteOptions{Candidates: []model.PlayerID{0, 2}})
	s.Require().NoError(err)
	s.Equal(protocol.Vote{Target: 2}, reply)
}

func (s *SessionSuite) TestConcurrentSendsArriveWhole() {
	const senders = 20

	received := make(chan protocol.Message, senders)
	go func() {
		for range senders {
			msg, err := s.client.Receive(s.ctx)
			if err != nil {
				close(received)
				return
			}
			received <- msg
		}
		close(received)
	}()

	var wg sync.WaitGroup
	for i := range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.host.Send(s.ctx, protocol.AnnounceJoin{ID: model.PlayerID(i), Name: "player"})
		}()
	}
	wg.Wait()

	seen := make(map[model.PlayerID]bool)
	for msg := range received {
		join, ok := msg.(protocol.AnnounceJoin)
		s.Require().True(ok)
		seen[join.ID] = true
	}
	s.Len(seen, senders)
}

func (s *SessionSuite) TestReceiveHonoursDeadline() {
	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()

	_, err := s.host.Receive(ctx)
	s.Require().ErrorIs(err, ErrTransport)
	s.True(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded))

	select {
	case <-s.host.Done():
	default:
		s.Fail("session should be closed after a timed out read")
	}
}

func (s *SessionSuite) TestReceiveHonoursCancellation() {
	ctx, cancel := context.WithCancel(s.ctx)
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := s.host.Receive(ctx)
	s.ErrorIs(err, ErrTransport)
}

func (s *SessionSuite) TestReceiveWithCancelledContextLeavesSessionOpen() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.host.Receive(ctx)
	s.Require().ErrorIs(err, ErrTransport)

	go func() { _ = s.client.Send(s.ctx, protocol.Received{}) }()
	msg, err := s.host.Receive(s.ctx)
	s.Require().NoError(err)
	s.Equal(protocol.Received{}, msg)
}

func (s *SessionSuite) TestMalformedFrameIsFatal() {
	go func() {
		raw := NewStreamConn(s.clientConn, 0)
		_ = raw.WriteFrame([]byte("not an envelope"))
	}()

	_, err := s.host.Receive(s.ctx)
	s.Require().ErrorIs(err, ErrTransport)
	s.ErrorIs(err, protocol.ErrMalformed)

	_, err = s.host.Receive(s.ctx)
	s.ErrorIs(err, ErrClosed)
}

func (s *SessionSuite) TestPeerDisconnectIsTransportError() {
	_ = s.client.Close()

	_, err := s.host.Receive(s.ctx)
	s.ErrorIs(err, ErrTransport)
}

func (s *SessionSuite) TestSendAfterCloseFails() {
	s.Require().NoError(s.host.Close())

	err := s.host.Send(s.ctx, protocol.NightFalls{})
	s.ErrorIs(err, ErrClosed)
	s.ErrorIs(err, ErrTransport)
}

func (s *SessionSuite) TestCloseIsIdempotent() {
	s.NoError(s.host.Close())
	s.NoError(s.host.Close())
}

func TestStreamConnRejectsOversizedFrames(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	reader := NewStreamConn(a, 8)
	go func() {
		var header [4]byte
		binary.BigEndian.PutUint32(header[:], 1024)
		_, _ = b.Write(header[:])
	}()

	_, err := reader.ReadFrame()
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}

	writer := NewStreamConn(b, 8)
	if err := writer.WriteFrame(make([]byte, 9)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge on write, got %v", err)
	}
}
