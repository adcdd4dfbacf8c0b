package session

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/pool"
)

const (
	inboxSize   = 16
	eventBuffer = 64
)

type messageKind uint8

const (
	msgStart messageKind = iota
	msgChunk
	msgEndOfInput
	msgCancel
	msgAbort
)

type message struct {
	kind  messageKind
	hints SchemaHints
	chunk []byte
	seq   int64
	err   error
}

// Host runs one Session on a dedicated goroutine. All methods are safe for
// concurrent use and never share memory with the session: chunks are copied
// on send. Events must be drained until the channel is closed, which happens
// right after the terminal event.
type Host struct {
	session *Session
	log     *zap.Logger

	inbox  chan message
	events chan Event
	done   chan struct{}
	cancel atomic.Bool
}

// NewHost creates a session and starts its worker.
func NewHost(cfg *config.ProfileConfig, opts ...Option) (*Host, error) {
	h := &Host{
		inbox:  make(chan message, inboxSize),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	opts = append(opts, WithCancelCheck(h.cancel.Load))
	s, err := New(cfg, h.deliver, opts...)
	if err != nil {
		return nil, err
	}
	h.session = s
	h.log = s.log
	go h.run()
	return h, nil
}

// SessionID returns the ID of the hosted session.
func (h *Host) SessionID() string { return h.session.ID() }

// Events returns the outbound event stream.
func (h *Host) Events() <-chan Event { return h.events }

// Done is closed when the session has reached a terminal state.
func (h *Host) Done() <-chan struct{} { return h.done }

// Start sends start(hints).
func (h *Host) Start(hints SchemaHints) error {
	return h.send(message{kind: msgStart, hints: hints})
}

// PushChunk sends a copy of chunk.
func (h *Host) PushChunk(chunk []byte, seq int64) error {
	buf := pool.GlobalBufferPool.Get(len(chunk))
	copy(buf, chunk)
	if err := h.send(message{kind: msgChunk, chunk: buf, seq: seq}); err != nil {
		pool.GlobalBufferPool.Put(buf)
		return err
	}
	return nil
}

// EndOfInput sends endOfInput().
func (h *Host) EndOfInput() error {
	return h.send(message{kind: msgEndOfInput})
}

// Abort fails the session with err.
func (h *Host) Abort(err error) error {
	return h.send(message{kind: msgAbort, err: err})
}

// Cancel requests cooperative cancellation. It never blocks: the request is
// recorded before the message is queued, and the worker polls it between
// chunks and records.
func (h *Host) Cancel() {
	h.cancel.Store(true)
	select {
	case h.inbox <- message{kind: msgCancel}:
	case <-h.done:
	default:
	}
}

func (h *Host) send(m message) error {
	select {
	case <-h.done:
		return errors.New(errors.KindProtocol, "session has terminated")
	default:
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return errors.New(errors.KindProtocol, "session has terminated")
	}
}

func (h *Host) deliver(e Event) { h.events <- e }

func (h *Host) run() {
	defer close(h.done)
	defer close(h.events)

	for m := range h.inbox {
		var err error
		switch {
		case h.cancel.Load():
			err = h.session.Cancel()
		case m.kind == msgStart:
			err = h.session.Start(m.hints)
		case m.kind == msgChunk:
			err = h.session.PushChunk(m.chunk, m.seq)
		case m.kind == msgEndOfInput:
			err = h.session.EndOfInput()
		case m.kind == msgAbort:
			err = h.session.Abort(m.err)
		}
		if m.chunk != nil {
			pool.GlobalBufferPool.Put(m.chunk)
		}
		if h.session.State().Terminal() {
			return
		}
		if err != nil {
			h.log.Warn("session rejected message", zap.Error(err))
		}
	}
}
