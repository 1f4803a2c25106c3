package spreadsheet

import (
	"context"
	"io"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/ports"
	"time"
)

// Codec is the xlsx implementation of the WorkbookCodec port.
type Codec struct{}

var _ ports.WorkbookCodec = Codec{}

func (Codec) ReadAll(ctx context.Context, sources []ports.WorkbookSource, loc *time.Location) ([]domain.Shipment, error) {
	return ReadAll(ctx, sources, loc)
}

func (Codec) WriteReport(ctx context.Context, w io.Writer, a *domain.Analysis, s domain.Summary) error {
	return WriteReport(ctx, w, a, s)
}
