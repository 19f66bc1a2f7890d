package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

func instantRetry() Config {
	cfg := DefaultConfig()
	cfg.RetryBaseDelay = 0
	return cfg
}

func TestWorkerDrain_DeliversAndMarksSent(t *testing.T) {
	t.Parallel()

	repo := newFakeOutboxRepo(domain.OutboxMessage{
		ID:            "msg-1",
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "OrderPlaced",
		Payload:       []byte(`{"status":"pending"}`),
	})
	broker := &fakeBroker{}

	NewWorker(repo, broker, instantRetry(), nil).Drain(context.Background())

	if got := broker.calls(); got != 1 {
		t.Fatalf("expected 1 publish call, got %d", got)
	}
	if got := repo.sent(); len(got) != 1 || got[0] != "msg-1" {
		t.Fatalf("expected msg-1 marked sent, got %v", got)
	}
	if got := repo.failed(); len(got) != 0 {
		t.Fatalf("expected no failed marks, got %v", got)
	}
}

func TestWorkerDrain_RecoversAfterTransientErrors(t *testing.T) {
	t.Parallel()

	repo := newFakeOutboxRepo(domain.OutboxMessage{
		ID:        "msg-2",
		EventType: "OrderStatusChanged",
		Payload:   []byte(`{"status":"confirmed"}`),
	})
	broker := &fakeBroker{script: []error{
		errors.New("broker unavailable"),
		errors.New("broker unavailable"),
		nil,
	}}

	NewWorker(repo, broker, instantRetry(), nil).Drain(context.Background())

	if got := broker.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := repo.sent(); len(got) != 1 {
		t.Fatalf("expected message marked sent after retry, got %v", got)
	}
}

func TestWorkerDrain_ExhaustedGoesToDLQ(t *testing.T) {
	t.Parallel()

	repo := newFakeOutboxRepo(domain.OutboxMessage{
		ID:            "msg-3",
		AggregateType: "order",
		AggregateID:   "order-3",
		EventType:     "OrderCancelled",
		Payload:       []byte(`{"status":"cancelled"}`),
	})
	broker := &fakeBroker{always: errors.New("publish failed")}
	dlq := &fakeBroker{}

	NewWorker(repo, broker, instantRetry(), nil).WithDLQ(dlq).Drain(context.Background())

	if got := broker.calls(); got != DefaultMaxAttempts {
		t.Fatalf("expected %d publish attempts, got %d", DefaultMaxAttempts, got)
	}
	if got := repo.sent(); len(got) != 0 {
		t.Fatalf("expected no sent marks, got %v", got)
	}
	if got := repo.failed(); len(got) != 1 || got[0] != "msg-3" {
		t.Fatalf("expected msg-3 marked failed, got %v", got)
	}
	if got := dlq.calls(); got != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", got)
	}

	// DLQ-конверт сохраняет исходный payload и причину отказа.
	var envelope struct {
		SourceID string          `json:"source_id"`
		Original json.RawMessage `json:"original"`
		Failure  string          `json:"failure"`
	}
	if err := json.Unmarshal(dlq.last().Payload, &envelope); err != nil {
		t.Fatalf("unmarshal dlq envelope: %v", err)
	}
	if envelope.SourceID != "msg-3" {
		t.Fatalf("unexpected dlq source id: %s", envelope.SourceID)
	}
	if string(envelope.Original) != `{"status":"cancelled"}` {
		t.Fatalf("unexpected original payload: %s", envelope.Original)
	}
	if envelope.Failure == "" {
		t.Fatal("expected failure reason in dlq envelope")
	}
}

func TestWorkerRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	cfg := instantRetry()
	cfg.PollInterval = 5 * time.Millisecond
	worker := NewWorker(newFakeOutboxRepo(), &fakeBroker{}, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

type fakeOutboxRepo struct {
	mu        sync.Mutex
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

func newFakeOutboxRepo(pending ...domain.OutboxMessage) *fakeOutboxRepo {
	return &fakeOutboxRepo{pending: pending}
}

func (f *fakeOutboxRepo) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, msg)
	return msg, nil
}

func (f *fakeOutboxRepo) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.pending) {
		limit = len(f.pending)
	}
	return append([]domain.OutboxMessage(nil), f.pending[:limit]...), nil
}

func (f *fakeOutboxRepo) Stats(_ context.Context) (domain.OutboxStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := domain.OutboxStats{PendingCount: len(f.pending)}
	if len(f.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (f *fakeOutboxRepo) MarkSent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentIDs = append(f.sentIDs, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedIDs = append(f.failedIDs, id)
	return nil
}

func (f *fakeOutboxRepo) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sentIDs...)
}

func (f *fakeOutboxRepo) failed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.failedIDs...)
}

type fakeBroker struct {
	mu        sync.Mutex
	always    error
	script    []error
	published []domain.OutboxMessage
}

func (f *fakeBroker) Publish(msg domain.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.published = append(f.published, msg)
	if len(f.script) > 0 {
		err := f.script[0]
		f.script = f.script[1:]
		return err
	}
	return f.always
}

func (f *fakeBroker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeBroker) last() domain.OutboxMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[len(f.published)-1]
}

var (
	_ domain.OutboxRepository = (*fakeOutboxRepo)(nil)
	_ domain.OutboxPublisher  = (*fakeBroker)(nil)
)
