package controller

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	reqPending int32 = iota
	reqClaimed
	reqCancelled
)

// Request is a unit of work to run on the controller's goroutine.
type Request struct {
	fn    func(c *Controller, now time.Time)
	state *atomic.Int32
	done  chan struct{}
}

// Run executes the request and releases its waiter. A request whose
// caller already gave up is skipped.
func (r Request) Run(c *Controller, now time.Time) bool {
	defer close(r.done)
	if !r.state.CompareAndSwap(reqPending, reqClaimed) {
		return false
	}
	r.fn(c, now)
	return true
}

// Mailbox hands work from other goroutines to the goroutine that owns
// the Controller.
type Mailbox struct {
	reqs chan Request
}

// NewMailbox creates a mailbox holding up to size queued requests.
func NewMailbox(size int) *Mailbox {
	return &Mailbox{reqs: make(chan Request, size)}
}

// Requests is received from by the owning loop.
func (m *Mailbox) Requests() <-chan Request {
	return m.reqs
}

// Do queues fn and waits until the owning loop has run it.
// If ctx ends before the loop picks the request up, fn never runs and
// ctx.Err() is returned. Once fn has started Do waits for it and returns nil.
// fn must not retain c.
func (m *Mailbox) Do(ctx context.Context, fn func(c *Controller, now time.Time)) error {
	req := Request{fn: fn, state: new(atomic.Int32), done: make(chan struct{})}
	select {
	case m.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		if req.state.Load() == reqCancelled {
			return ctx.Err()
		}
		return nil
	case <-ctx.Done():
		if req.state.CompareAndSwap(reqPending, reqCancelled) {
			return ctx.Err()
		}
		<-req.done
		return nil
	}
}

// Drain runs every queued request and returns how many ran.
func (m *Mailbox) Drain(c *Controller, now time.Time) int {
	n := 0
	for {
		select {
		case req := <-m.reqs:
			if req.Run(c, now) {
				n++
			}
		default:
			return n
		}
	}
}
