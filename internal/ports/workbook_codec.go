package ports

import (
	"context"
	"io"
	"sla-attribution-service/internal/domain"
	"time"
)

// WorkbookSource is one uploaded operations export.
type WorkbookSource struct {
	Name string
	Body io.Reader
}

// Port: the file format shipments arrive in and reports leave in.
type WorkbookCodec interface {
	// Decode every source and concatenate the rows in source order.
	// Naive timestamps are read in loc.
	ReadAll(ctx context.Context, sources []WorkbookSource, loc *time.Location) ([]domain.Shipment, error)
	WriteReport(ctx context.Context, w io.Writer, a *domain.Analysis, s domain.Summary) error
}
