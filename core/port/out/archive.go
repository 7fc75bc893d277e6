package out

import (
	"context"
	"time"

	"officeflow/core/domain"
)

// ReportArchive keeps a history copy of every analytics snapshot.
type ReportArchive interface {
	Save(ctx context.Context, s *domain.AnalyticsSnapshot) error
}

// CatalogCache caches the request-type catalog between invocations.
type CatalogCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}
