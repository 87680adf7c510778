package delivery

import (
	"context"
	"log/slog"
	"math/big"
	"testing"
	"time"
)

func TestQueueProcessesSubmittedRequest(t *testing.T) {
	fake := newFakeMover()
	fake.tokenBalance = new(big.Int).Set(TokenQuantity)

	q := NewQueue(newTestOrchestrator(fake, false), 4, slog.New(slog.DiscardHandler))
	q.Start()

	if !q.Submit(Request{Payer: payerAddr}) {
		t.Fatal("Submit returned false with room in the buffer")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if len(fake.transfers) != 1 {
		t.Fatalf("transfers = %d, want 1", len(fake.transfers))
	}
}

func TestQueueSubmitDropsWhenFull(t *testing.T) {
	fake := newFakeMover()
	// Worker not started, so the buffer fills.
	q := NewQueue(newTestOrchestrator(fake, false), 1, slog.New(slog.DiscardHandler))

	if !q.Submit(Request{Payer: payerAddr}) {
		t.Fatal("first Submit should succeed")
	}
	if q.Submit(Request{Payer: payerAddr}) {
		t.Fatal("second Submit should drop on a full buffer")
	}
}

func TestQueueStopDrainsOutstanding(t *testing.T) {
	fake := newFakeMover()
	fake.tokenBalance = new(big.Int).Set(TokenQuantity)

	q := NewQueue(newTestOrchestrator(fake, false), 4, slog.New(slog.DiscardHandler))
	for i := 0; i < 3; i++ {
		q.Submit(Request{Payer: payerAddr})
	}
	q.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if len(fake.transfers) != 3 {
		t.Fatalf("transfers = %d, want 3", len(fake.transfers))
	}
}
