package ports

import (
	"context"
	"sla-attribution-service/internal/domain"
)

// Optional store for rendered report workbooks keyed by input digest.
type ReportCache interface {
	Get(ctx context.Context, key string) (domain.CachedReport, bool, error)
	Put(ctx context.Context, key string, report domain.CachedReport) error
}
