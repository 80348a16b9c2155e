// Package hub provides the per-connection outbound machinery: a
// write-serializing wrapper around a single *websocket.Conn, and an
// unbounded mailbox queue, whose enqueue takes only the queue's own
// short-held mutex and never waits on I/O, that decouples the room
// manager's broadcast critical section from socket I/O.
//
// The room manager (internal/room) only ever holds a Queue's enqueue
// capability for a peer, never the socket itself — see SPEC_FULL.md §5 and
// §9 ("outbound channels instead of callback interfaces"). The dedicated
// pump goroutine started by internal/ws is the only thing that ever drains
// a Queue and writes to the wire, which keeps write ordering and keeps the
// connection single-writer as spec mandates.
package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the pump and heartbeat need, wrapped
// so every write on a given socket goes through one mutex.
type Conn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

// NewConn wraps c for serialized writes.
func NewConn(c *websocket.Conn) *Conn { return &Conn{c: c} }

func (w *Conn) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteJSON(v)
}

func (w *Conn) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteMessage(messageType, data)
}

func (w *Conn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(messageType, data, deadline)
}

// Queue is a per-peer outbound mailbox. Push never blocks and never takes
// any lock other than the queue's own — in particular it is safe to call
// while the room manager's registry lock is held, satisfying the
// backpressure-must-not-hold-the-lock requirement. Pop blocks until an item
// is available or the queue is closed.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []any
	closed bool
}

// NewQueue returns an empty, open Queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues v for delivery. A push to a closed queue is silently
// dropped — the disconnecting side is responsible for teardown, not the
// enqueuing side (spec §4.D edge policy).
func (q *Queue) Push(v any) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop removes and returns the oldest pending item, blocking until one is
// available. ok is false once the queue is closed and drained.
func (q *Queue) Pop() (v any, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	v = q.items[0]
	q.items = q.items[1:]
	return v, true
}

// Close marks the queue closed and wakes any blocked Pop. Already-enqueued
// items are still delivered before Pop starts returning false.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Pump drains q and writes each item to conn in order until the queue is
// closed and drained, or a write fails. It is the single writer for conn
// for as long as it runs — nothing else may call conn.WriteJSON/WriteMessage
// concurrently with a running Pump for the same connection.
func Pump(conn *Conn, q *Queue) error {
	for {
		v, ok := q.Pop()
		if !ok {
			return nil
		}
		if err := conn.WriteJSON(v); err != nil {
			return err
		}
	}
}
