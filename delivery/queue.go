package delivery

import (
	"context"
	"log/slog"
	"sync"
)

// Queue hands delivery work to a single background worker. The HTTP handler
// submits and returns; it never sees the outcome, which structurally enforces
// the one-response-per-request contract. Consuming with one worker also
// serializes every outbound transaction from the shared wallet account, so
// concurrent purchases cannot race on the account nonce.
type Queue struct {
	orch   *Orchestrator
	items  chan Request
	logger *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(orch *Orchestrator, size int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		orch:   orch,
		items:  make(chan Request, size),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the worker goroutine. Safe to call once.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		go q.worker()
	})
}

// Submit enqueues a delivery request without blocking. When the buffer is
// full the request is dropped and logged as requiring manual intervention;
// the payer has already been acknowledged over HTTP.
func (q *Queue) Submit(req Request) bool {
	select {
	case q.items <- req:
		return true
	default:
		q.logger.Error("delivery queue full, request dropped; manual intervention required",
			"payer", req.Payer.Hex())
		return false
	}
}

// Stop closes the queue and waits for the worker to drain outstanding items,
// or for ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() {
		close(q.items)
	})
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer close(q.done)
	for req := range q.items {
		q.runOne(req)
	}
}

// runOne is the error boundary for one delivery: a panic in any stage is
// contained here and recorded as a failed delivery.
func (q *Queue) runOne(req Request) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("delivery panicked", "payer", req.Payer.Hex(), "panic", r)
		}
	}()

	outcome := q.orch.Deliver(context.Background(), req)
	q.logger.Info("delivery finished", "payer", req.Payer.Hex(), "outcome", string(outcome))
}
