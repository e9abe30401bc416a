package service

import (
	"errors"
	"testing"
	"time"

	"github.com/finchley/budgetlens-go/internal/domain"
	"github.com/finchley/budgetlens-go/internal/infra/cache"
	"github.com/finchley/budgetlens-go/internal/infra/observability"

	"go.uber.org/zap"
)

func newTestDispatcher(queueSize int) *Dispatcher {
	svc := NewAnalyticsService(observability.NewMetrics(), zap.NewNop())
	results := cache.New[*domain.DispatchEnvelope](time.Minute)
	return NewDispatcher(svc, results, queueSize, observability.NewMetrics(), zap.NewNop())
}

func validRequest() *domain.AnalyticsRequest {
	return &domain.AnalyticsRequest{
		Transactions: []domain.Transaction{
			{Category: "Food", Amount: 42, Type: domain.TypeExpense, Date: time.Now()},
		},
		TargetMonth:       time.Now().Format(time.RFC3339),
		Budgets:           domain.BudgetMap{},
		ViewType:          domain.TypeExpense,
		ActiveContext:     "personal",
		ExpenseCategories: domain.DefaultExpenseCategories,
	}
}

// waitForTerminal polls until the envelope leaves the pending state.
func waitForTerminal(t *testing.T, d *Dispatcher, id string) *domain.DispatchEnvelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("request %s never reached a terminal state", id)
			return nil
		case <-time.After(5 * time.Millisecond):
			env, ok := d.Result(id)
			if ok && env.Status != domain.DispatchPending {
				return env
			}
		}
	}
}

func TestDispatcherCompletesRequest(t *testing.T) {
	d := newTestDispatcher(8)
	d.Start()
	defer d.Stop()

	pending, err := d.Submit(validRequest())
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if pending.Status != domain.DispatchPending {
		t.Errorf("expected pending envelope, got %s", pending.Status)
	}

	env := waitForTerminal(t, d, pending.RequestID)
	if env.Status != domain.DispatchDone {
		t.Fatalf("expected done, got %s (error: %s)", env.Status, env.Error)
	}
	if env.Result == nil {
		t.Fatal("done envelope missing result payload")
	}
	if env.Result.ActiveTotal != 42 {
		t.Errorf("expected activeTotal 42, got %v", env.Result.ActiveTotal)
	}
	if env.CompletedAt.IsZero() {
		t.Error("terminal envelope missing completion timestamp")
	}
}

func TestDispatcherErrorPayload(t *testing.T) {
	d := newTestDispatcher(8)
	d.Start()
	defer d.Stop()

	req := validRequest()
	req.TargetMonth = "garbage"

	pending, err := d.Submit(req)
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	env := waitForTerminal(t, d, pending.RequestID)
	if env.Status != domain.DispatchFailed {
		t.Fatalf("expected failed envelope, got %s", env.Status)
	}
	if env.Error == "" {
		t.Error("failed envelope missing error payload")
	}
	if env.Result != nil {
		t.Error("failed envelope should not carry a result")
	}
}

func TestDispatcherBurstProducesOneEnvelopeEach(t *testing.T) {
	d := newTestDispatcher(32)
	d.Start()
	defer d.Stop()

	ids := make([]string, 0, 10)
	var lastSeq uint64
	for i := 0; i < 10; i++ {
		pending, err := d.Submit(validRequest())
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		if pending.Seq <= lastSeq {
			t.Errorf("sequence numbers must increase: %d after %d", pending.Seq, lastSeq)
		}
		lastSeq = pending.Seq
		ids = append(ids, pending.RequestID)
	}

	seen := make(map[string]bool)
	for _, id := range ids {
		env := waitForTerminal(t, d, id)
		if env.Status != domain.DispatchDone {
			t.Errorf("request %s: expected done, got %s", id, env.Status)
		}
		if seen[id] {
			t.Errorf("duplicate envelope for request %s", id)
		}
		seen[id] = true
	}
	if len(seen) != 10 {
		t.Errorf("expected 10 distinct envelopes, got %d", len(seen))
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	// Worker not started: the first submission fills the queue.
	d := newTestDispatcher(1)

	first, err := d.Submit(validRequest())
	if err != nil {
		t.Fatalf("first submit should succeed: %v", err)
	}

	_, err = d.Submit(validRequest())
	var full *domain.ErrQueueFull
	if !errors.As(err, &full) {
		t.Fatalf("expected queue-full error, got %v", err)
	}
	if full.Capacity != 1 {
		t.Errorf("expected reported capacity 1, got %d", full.Capacity)
	}

	// The accepted request must still be visible as pending.
	env, ok := d.Result(first.RequestID)
	if !ok || env.Status != domain.DispatchPending {
		t.Errorf("accepted request lost after rejection: ok=%v env=%+v", ok, env)
	}
}

func TestDispatcherUnknownRequestID(t *testing.T) {
	d := newTestDispatcher(1)

	if _, ok := d.Result("no-such-id"); ok {
		t.Error("expected lookup miss for unknown request id")
	}
}
