package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
)

var (
	// ErrPeerClosed is returned by a ScriptedPeer after Close or a scripted failure
	ErrPeerClosed = errors.New("scripted peer closed")
	// ErrNoReply is returned by Receive when nothing was scripted for the last message
	ErrNoReply = errors.New("scripted peer has no reply queued")
)

// Responder decides how a scripted peer answers one host message.
// A nil reply with a nil error means the peer stays silent.
type Responder func(msg protocol.Message) (protocol.Message, error)

type reply struct {
	msg protocol.Message
	err error
}

// ScriptedPeer is an in-memory player connection. Every message sent to it is
// recorded and answered through its Responder.
type ScriptedPeer struct {
	mu      sync.Mutex
	respond Responder
	sent    []protocol.Message
	replies []reply
	closed  bool
}

// NewScriptedPeer creates a peer answering with respond, or AckAll when nil
func NewScriptedPeer(respond Responder) *ScriptedPeer {
	if respond == nil {
		respond = AckAll
	}
	return &ScriptedPeer{respond: respond}
}

func (p *ScriptedPeer) Send(_ context.Context, msg protocol.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPeerClosed
	}
	p.sent = append(p.sent, msg)
	r, err := p.respond(msg)
	if r != nil || err != nil {
		p.replies = append(p.replies, reply{msg: r, err: err})
	}
	return nil
}

func (p *ScriptedPeer) Receive(ctx context.Context) (protocol.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPeerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.replies) == 0 {
		return nil, ErrNoReply
	}
	next := p.replies[0]
	p.replies = p.replies[1:]
	if next.err != nil {
		p.closed = true
		return nil, next.err
	}
	return next.msg, nil
}

func (p *ScriptedPeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// SetResponder replaces the peer's behaviour for subsequent messages
func (p *ScriptedPeer) SetResponder(respond Responder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.respond = respond
}

// Sent returns every message the host sent to this peer, in order
func (p *ScriptedPeer) Sent() []protocol.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.sent)
}

// Kinds returns the kinds of every message the host sent to this peer
func (p *ScriptedPeer) Kinds() []protocol.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]protocol.Kind, len(p.sent))
	for i, msg := range p.sent {
		kinds[i] = msg.Kind()
	}
	return kinds
}

// Closed reports whether the peer was closed
func (p *ScriptedPeer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// AckAll acknowledges information and picks the first candidate of every choice
func AckAll(msg protocol.Message) (protocol.Message, error) {
	return Chooser(First, First)(msg)
}

// Chooser acknowledges information and answers kill and vote requests with the given pickers
func Chooser(kill, vote func(candidates []model.PlayerID) model.PlayerID) Responder {
	return func(msg protocol.Message) (protocol.Message, error) {
		switch m := msg.(type) {
		case protocol.KillOptions:
			return protocol.Kill{Target: kill(m.Candidates)}, nil
		case protocol.VoteOptions:
			return protocol.Vote{Target: vote(m.Candidates)}, nil
		case protocol.JoinRejected:
			return nil, nil
		default:
			return protocol.Received{}, nil
		}
	}
}

// First picks the first candidate offered
func First(candidates []model.PlayerID) model.PlayerID {
	if len(candidates) == 0 {
		return 0
	}
	return candidates[0]
}

// Last picks the last candidate offered
func Last(candidates []model.PlayerID) model.PlayerID {
	if len(candidates) == 0 {
		return 0
	}
	return candidates[len(candidates)-1]
}

// Pick always chooses id, whether or not it was offered
func Pick(id model.PlayerID) func([]model.PlayerID) model.PlayerID {
	return func([]model.PlayerID) model.PlayerID { return id }
}

// Sequence answers successive messages with successive replies, then falls back to AckAll
func Sequence(replies ...protocol.Message) Responder {
	var mu sync.Mutex
	return func(msg protocol.Message) (protocol.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(replies) == 0 {
			return AckAll(msg)
		}
		next := replies[0]
		replies = replies[1:]
		return next, nil
	}
}

// FailOn answers like next until a message of kind arrives, then fails the connection
func FailOn(kind protocol.Kind, next Responder) Responder {
	return func(msg protocol.Message) (protocol.Message, error) {
		if msg.Kind() == kind {
			return nil, ErrPeerClosed
		}
		return next(msg)
	}
}
