package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finchley/budgetlens-go/internal/domain"
	"github.com/finchley/budgetlens-go/internal/infra/observability"
	"github.com/finchley/budgetlens-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher runs the analytics engine off the caller's path. Requests
// are processed strictly in arrival order by a single long-lived worker
// goroutine; exactly one envelope per request reaches the result store,
// either with a result or with an error payload. There is no
// deduplication and no cancellation: a burst of submissions produces a
// response for every one of them, and nothing orders "latest input"
// against "latest response" — callers compare envelope sequence numbers
// to discard stale results.
type Dispatcher struct {
	svc     *AnalyticsService
	results port.Cache[*domain.DispatchEnvelope]
	metrics *observability.Metrics
	logger  *zap.Logger

	requests chan dispatchJob
	seq      atomic.Uint64
	stop     chan struct{}
	done     sync.WaitGroup
}

type dispatchJob struct {
	id  string
	seq uint64
	req *domain.AnalyticsRequest
}

// NewDispatcher creates a dispatcher backed by the given result store.
// queueSize bounds how many snapshots can wait; a full queue rejects the
// submission instead of blocking the caller.
func NewDispatcher(svc *AnalyticsService, results port.Cache[*domain.DispatchEnvelope], queueSize int, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		svc:      svc,
		results:  results,
		metrics:  metrics,
		logger:   logger,
		requests: make(chan dispatchJob, queueSize),
		stop:     make(chan struct{}),
	}
}

// Start launches the worker goroutine. Call once per process.
func (d *Dispatcher) Start() {
	d.done.Add(1)
	go d.run()
}

// Stop drains nothing: queued requests are abandoned, matching a torn-down
// view. Safe to call once after Start.
func (d *Dispatcher) Stop() {
	close(d.stop)
	d.done.Wait()
}

// Submit enqueues one complete input snapshot and returns the pending
// envelope carrying its request ID and sequence number.
func (d *Dispatcher) Submit(req *domain.AnalyticsRequest) (*domain.DispatchEnvelope, error) {
	job := dispatchJob{
		id:  uuid.New().String(),
		seq: d.seq.Add(1),
		req: req,
	}

	pending := &domain.DispatchEnvelope{
		RequestID: job.id,
		Seq:       job.seq,
		Status:    domain.DispatchPending,
	}
	d.results.Set(job.id, pending)

	select {
	case d.requests <- job:
		d.metrics.SetQueueDepth(len(d.requests))
		return pending, nil
	default:
		d.results.Delete(job.id)
		return nil, &domain.ErrQueueFull{Capacity: cap(d.requests)}
	}
}

// Result looks up the envelope for a request ID. ok is false when the ID
// is unknown or its envelope already expired out of the store.
func (d *Dispatcher) Result(id string) (*domain.DispatchEnvelope, bool) {
	env, ok := d.results.Get(id)
	if ok {
		d.metrics.IncrCacheHit("results")
	} else {
		d.metrics.IncrCacheMiss("results")
	}
	return env, ok
}

func (d *Dispatcher) run() {
	defer d.done.Done()
	for {
		select {
		case <-d.stop:
			return
		case job := <-d.requests:
			d.metrics.SetQueueDepth(len(d.requests))
			d.process(job)
		}
	}
}

// process computes one snapshot and stores exactly one terminal envelope.
// A computation error (or panic) becomes an error payload, never a crash.
func (d *Dispatcher) process(job dispatchJob) {
	env := &domain.DispatchEnvelope{
		RequestID: job.id,
		Seq:       job.seq,
	}

	result, err := d.computeSafely(job.req)
	if err != nil {
		env.Status = domain.DispatchFailed
		env.Error = err.Error()
		d.metrics.IncrDispatched("failed")
		d.logger.Warn("analytics computation failed",
			zap.String("request_id", job.id),
			zap.Uint64("seq", job.seq),
			zap.Error(err),
		)
	} else {
		env.Status = domain.DispatchDone
		env.Result = result
		d.metrics.IncrDispatched("done")
	}

	env.CompletedAt = time.Now()
	d.results.Set(job.id, env)
}

func (d *Dispatcher) computeSafely(req *domain.AnalyticsRequest) (result *domain.AnalyticsResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analytics panic: %v", r)
		}
	}()
	return d.svc.Compute(context.Background(), req, time.Now())
}
