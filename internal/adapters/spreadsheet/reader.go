package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/platform/obs"
	"sla-attribution-service/internal/ports"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// headerScanRows is how far down the first sheet the header row may sit.
const headerScanRows = 10

// Text layouts accepted for timestamp cells stored as strings.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// timeParser reads timestamp cells as wall-clock values held in UTC. Cells
// with an explicit offset are first read as wall-clock time in loc.
type timeParser struct {
	loc      *time.Location
	date1904 bool
}

func (p timeParser) parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial <= 0 || math.IsInf(serial, 0) || math.IsNaN(serial) {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, p.date1904)
		if err != nil {
			return time.Time{}, false
		}
		t = t.Round(time.Millisecond)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), true
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return domain.WallClock(t, p.loc), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// ReadShipments reads the first sheet of an xlsx operations export. Rows
// with no values are skipped; unreadable timestamps become absent milestones.
func ReadShipments(ctx context.Context, r io.Reader, loc *time.Location) (_ []domain.Shipment, err error) {
	defer obs.Time(ctx, "spreadsheet.ReadShipments")(&err)

	if loc == nil {
		return nil, errors.New("read shipments: location is nil")
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read shipments: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("read shipments: %w: workbook has no sheets", domain.ErrMissingColumns)
	}

	tp := timeParser{loc: loc}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		tp.date1904 = *props.Date1904
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read shipments: sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	var header map[int]int
	out := make([]domain.Shipment, 0, 1024)
	for line := 1; rows.Next(); line++ {
		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read shipments: sheet %q row %d: %w", sheets[0], line, err)
		}

		if header == nil {
			if m := headerMap(cells); hasClient(m) {
				header = m
				continue
			}
			if line >= headerScanRows {
				break
			}
			continue
		}

		if blank(cells) {
			continue
		}

		var s domain.Shipment
		for idx, cell := range header {
			if cell < len(cells) {
				columns[idx].apply(&s, cells[cell], tp)
			}
		}
		out = append(out, s)

		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read shipments: sheet %q: %w", sheets[0], err)
	}
	if header == nil {
		return nil, fmt.Errorf("read shipments: %w: no header row with a client column in the first %d rows of sheet %q",
			domain.ErrMissingColumns, headerScanRows, sheets[0])
	}

	return out, nil
}

// ReadAll reads every source and concatenates the rows in source order.
func ReadAll(ctx context.Context, sources []ports.WorkbookSource, loc *time.Location) ([]domain.Shipment, error) {
	parts := make([][]domain.Shipment, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			rows, err := ReadShipments(gctx, src.Body, loc)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name, err)
			}
			parts[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]domain.Shipment, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}

	return out, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
