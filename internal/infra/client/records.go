// Package client contains HTTP clients for upstream services.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/finchley/budgetlens-go/internal/domain"
	"github.com/finchley/budgetlens-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("client")

// RecordsClient pulls a budget context's records from the records service
// so analytics can be driven server-side. Transactions, budgets and debts
// are fetched concurrently, each call protected by the shared circuit
// breaker and retried with backoff.
type RecordsClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewRecordsClient creates a new RecordsClient.
func NewRecordsClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *RecordsClient {
	return &RecordsClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// FetchSnapshot assembles a complete snapshot for one budget context.
func (c *RecordsClient) FetchSnapshot(ctx context.Context, contextID string) (*domain.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "RecordsClient.FetchSnapshot")
	defer span.End()
	span.SetAttributes(attribute.String("budget.context", contextID))

	snap := &domain.Snapshot{Context: contextID}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gCtx, fmt.Sprintf("/v1/contexts/%s/transactions", contextID), &snap.Transactions)
	})
	g.Go(func() error {
		return c.getJSON(gCtx, fmt.Sprintf("/v1/contexts/%s/budgets", contextID), &snap.Budgets)
	})
	g.Go(func() error {
		return c.getJSON(gCtx, fmt.Sprintf("/v1/contexts/%s/debts", contextID), &snap.Debts)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if snap.Budgets == nil {
		snap.Budgets = domain.BudgetMap{}
	}
	return snap, nil
}

// getJSON fetches one records endpoint with retry, circuit breaker, and tracing.
func (c *RecordsClient) getJSON(ctx context.Context, path string, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: "records", ID: path}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("records API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(out)
		})
		return nil, innerErr
	})

	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return notFound
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: "records"}
		}
		return &domain.ErrExternalService{Service: "records", Err: err}
	}
	return nil
}
