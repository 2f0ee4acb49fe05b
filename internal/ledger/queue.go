package ledger

import (
	"sync"

	"github.com/roach88/hiscore/internal/model"
)

type requestKind int

const (
	requestSubmit requestKind = iota + 1
	requestGrant
)

// request is one queued mutation plus the channel its caller waits on.
type request struct {
	kind       requestKind
	submission model.Submission
	grant      model.SkinGrant
	reply      chan result
}

type result struct {
	receipt     model.Receipt
	skinReceipt model.SkinReceipt
	err         error
}

// requestQueue is a thread-safe FIFO of pending mutations.
//
// Enqueue is called from HTTP handlers and CLI goroutines; only Run dequeues.
// The signal channel lets Run wait without polling and still observe ctx.
type requestQueue struct {
	mu       sync.Mutex
	requests []request
	closed   bool
	signal   chan struct{} // buffered, size 1
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]request, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.requests = append(q.requests, r)

	// Buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front request without blocking.
func (q *requestQueue) TryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return request{}, false
	}

	r := q.requests[0]
	// Drop the reference so the reply channel can be collected.
	q.requests[0] = request{}

	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}

	return r, true
}

// Wait returns a channel that signals when requests may be available.
// It is closed by Close.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Closed reports whether Close has been called.
func (q *requestQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting requests and wakes the Run loop.
// It returns the requests that were still pending so Run can fail them.
func (q *requestQueue) Close() []request {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.signal)

	pending := q.requests
	q.requests = nil
	return pending
}
