// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/finchley/budgetlens-go/internal/domain"
)

// SnapshotFetcher retrieves a budget context's records from an upstream
// store so analytics can be driven server-side.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, contextID string) (*domain.Snapshot, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
