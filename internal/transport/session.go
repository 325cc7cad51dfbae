package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/werewolf/internal/protocol"
)

var (
	// ErrTransport wraps every failure of the underlying connection.
	// A session that returned it from Receive is closed.
	ErrTransport = errors.New("transport failure")
	// ErrClosed is returned by operations on a closed session
	ErrClosed = fmt.Errorf("%w: session closed", ErrTransport)
)

// Buffer size for queued outgoing frames
const outboxSize = 16

type outgoing struct {
	frame  []byte
	result chan error
}

// Session exchanges typed messages with one remote endpoint.
// All writes go through a single writer goroutine fed by the outbox,
// so concurrent senders never interleave frames.
type Session struct {
	conn      Conn
	outbox    chan outgoing
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewSession starts the writer goroutine for conn
func NewSession(conn Conn, logger *slog.Logger) *Session {
	s := &Session{
		conn:   conn,
		outbox: make(chan outgoing, outboxSize),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("remote", conn.RemoteAddr())),
	}
	go s.writeLoop()
	return s
}

func (s *Session) writeLoop() {
	for {
		select {
		case out := <-s.outbox:
			if err := s.conn.WriteFrame(out.frame); err != nil {
				out.result <- fmt.Errorf("%w: write: %w", ErrTransport, err)
				s.Close()
				return
			}
			out.result <- nil
		case <-s.done:
			return
		}
	}
}

// Send queues msg and waits until it has been written
func (s *Session) Send(ctx context.Context, msg protocol.Message) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	out := outgoing{frame: frame, result: make(chan error, 1)}
	select {
	case s.outbox <- out:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
	}

	select {
	case err := <-out.result:
		return err
	case <-s.done:
		select {
		case err := <-out.result:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		// The frame may still be written later; the stream is out of step.
		s.Close()
		return fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
	}
}

// Receive blocks until one complete message arrives.
// A read failure, a context expiry mid-read, or a malformed frame closes the session.
func (s *Session) Receive(ctx context.Context) (protocol.Message, error) {
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
		close(fired)
	})
	frame, err := s.conn.ReadFrame()
	if !stop() {
		<-fired
	}
	_ = s.conn.SetReadDeadline(time.Time{})

	if err != nil {
		s.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransport, ctxErr)
		}
		return nil, fmt.Errorf("%w: read: %w", ErrTransport, err)
	}

	msg, err := protocol.Decode(frame)
	if err != nil {
		s.logger.Warn("closing session on malformed frame", slog.String("error", err.Error()))
		s.Close()
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return msg, nil
}

// Request sends msg and returns the peer's next message
func (s *Session) Request(ctx context.Context, msg protocol.Message) (protocol.Message, error) {
	if err := s.Send(ctx, msg); err != nil {
		return nil, err
	}
	return s.Receive(ctx)
}

// Close stops the writer and closes the connection. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
		s.logger.Debug("session closed")
	})
	return err
}

// Done is closed once the session is closed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// RemoteAddr returns the peer's address
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr()
}
