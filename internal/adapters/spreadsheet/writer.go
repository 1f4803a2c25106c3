package spreadsheet

import (
	"context"
	"fmt"
	"io"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/platform/obs"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	detailsSheet = "Details"
	overallSheet = "Overall"

	columnWidth     = 18.0
	wideColumnWidth = 35.0
	maxSheetName    = 31

	timeLayout     = "2006-01-02 15:04:05"
	datetimeFormat = "yyyy-mm-dd hh:mm:ss"
)

// report renders one workbook. Each sheet is written through its own stream
// writer; rows must be added top to bottom.
type report struct {
	f       *excelize.File
	percent  int
	hours    int
	datetime int
	names    map[string]bool
}

type sheet struct {
	sw  *excelize.StreamWriter
	row int
}

func (s *sheet) add(values ...any) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	return s.sw.SetRow(cell, values)
}

func (s *sheet) gap() { s.row++ }

// WriteReport renders the analysis and its summary as an xlsx workbook.
func WriteReport(ctx context.Context, w io.Writer, a *domain.Analysis, s domain.Summary) (err error) {
	defer obs.Time(ctx, "spreadsheet.WriteReport")(&err)

	f := excelize.NewFile()
	defer f.Close()

	r := &report{f: f, names: map[string]bool{}}
	if r.percent, err = f.NewStyle(&excelize.Style{NumFmt: 10}); err != nil {
		return fmt.Errorf("write report: percent style: %w", err)
	}
	if r.hours, err = f.NewStyle(&excelize.Style{NumFmt: 2}); err != nil {
		return fmt.Errorf("write report: hours style: %w", err)
	}
	datetime := datetimeFormat
	if r.datetime, err = f.NewStyle(&excelize.Style{CustomNumFmt: &datetime}); err != nil {
		return fmt.Errorf("write report: datetime style: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), detailsSheet); err != nil {
		return fmt.Errorf("write report: rename default sheet: %w", err)
	}
	r.names[strings.ToLower(detailsSheet)] = true

	if err := r.writeDetails(a); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := r.writeOverall(a, s); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	for _, c := range s.Clients {
		if err := r.writeClient(c); err != nil {
			return fmt.Errorf("write report: client %s: %w", c.Client, err)
		}
	}
	for _, h := range s.Hubs {
		if err := r.writeHub(h); err != nil {
			return fmt.Errorf("write report: hub %s: %w", h.Hub, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// newSheet creates a uniquely named sheet with the report's column widths.
func (r *report) newSheet(name string, columns int) (*sheet, error) {
	name = r.uniqueName(name)
	if _, err := r.f.NewSheet(name); err != nil {
		return nil, fmt.Errorf("new sheet %q: %w", name, err)
	}
	return r.stream(name, columns)
}

func (r *report) stream(name string, columns int) (*sheet, error) {
	sw, err := r.f.NewStreamWriter(name)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", name, err)
	}
	if err := sw.SetColWidth(1, 1, wideColumnWidth); err != nil {
		return nil, fmt.Errorf("sheet %q: %w", name, err)
	}
	if columns > 1 {
		if err := sw.SetColWidth(2, columns, columnWidth); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	return &sheet{sw: sw}, nil
}

// uniqueName applies Excel's sheet naming rules: no []:*?/\ characters, at
// most 31 characters and unique ignoring case.
func (r *report) uniqueName(name string) string {
	name = strings.Map(func(c rune) rune {
		if strings.ContainsRune(`[]:*?/\`, c) {
			return '_'
		}
		return c
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "blank"
	}

	candidate := truncate(name, maxSheetName)
	for n := 2; r.names[strings.ToLower(candidate)]; n++ {
		suffix := "~" + strconv.Itoa(n)
		candidate = truncate(name, maxSheetName-len(suffix)) + suffix
	}
	r.names[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var detailHeader = func() []any {
	h := []any{
		"tracking_number", "client", "hub", "station", "original_hub", "original_station",
		"segment_code", "postal_code", "bag_id", "driver", "failure_reason", "mis_sorted",
	}
	for _, m := range domain.Milestones() {
		h = append(h, m.String())
	}
	h = append(h,
		"sla_limit_hours", "sla_due_at", "sla_actual_hours", "sla_met",
		"handover_to_hub_inbound_h", "hub_inbound_to_sort_h", "hub_inbound_to_outbound_h",
		"outbound_to_station_inbound_h", "outbound_to_exception_h", "station_inbound_to_pickup_h",
		"pickup_to_first_delivery_h", "pickup_to_receipt_h",
		"cause", "party",
	)
	return h
}()

// writeDetails lists every failed shipment with all derived values. The
// cause column gets the wide width.
func (r *report) writeDetails(a *domain.Analysis) error {
	sw, err := r.f.NewStreamWriter(detailsSheet)
	if err != nil {
		return fmt.Errorf("sheet %q: %w", detailsSheet, err)
	}
	causeCol := len(detailHeader) - 1
	widths := []struct {
		min, max int
		width    float64
	}{
		{1, causeCol - 1, columnWidth},
		{causeCol, causeCol, wideColumnWidth},
		{causeCol + 1, causeCol + 1, columnWidth},
	}
	for _, w := range widths {
		if err := sw.SetColWidth(w.min, w.max, w.width); err != nil {
			return fmt.Errorf("sheet %q: %w", detailsSheet, err)
		}
	}
	if err := sw.SetPanes(&excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("sheet %q: %w", detailsSheet, err)
	}

	s := &sheet{sw: sw}
	if err := s.add(detailHeader...); err != nil {
		return err
	}

	for _, e := range a.Failures() {
		sh := e.Shipment
		row := []any{
			sh.TrackingNumber, sh.Client, sh.Hub, sh.Station, sh.OriginalHub, sh.OriginalStation,
			sh.SegmentCode, sh.PostalCode, sh.BagID, sh.Driver, sh.FailureReason, sh.MisSorted,
		}
		for _, m := range domain.Milestones() {
			row = append(row, r.timeCell(sh.Times.Ptr(m)))
		}

		c := e.Compliance
		row = append(row, r.hoursCell(c.LimitHours), r.timeCell(c.DueAt), r.hoursCell(c.ActualHours), c.MetSLA)

		var st domain.StageHours
		var cause, party string
		if e.Attribution != nil {
			st = e.Attribution.Stages
			cause, party = string(e.Attribution.Cause), string(e.Attribution.Party)
		}
		row = append(row,
			r.hoursCell(st.HandoverToHubInbound), r.hoursCell(st.HubInboundToSort), r.hoursCell(st.HubInboundToOutbound),
			r.hoursCell(st.OutboundToStationInbound), r.hoursCell(st.OutboundToException), r.hoursCell(st.StationInboundToPickup),
			r.hoursCell(st.PickupToFirstDelivery), r.hoursCell(st.PickupToReceipt),
			cause, party,
		)

		if err := s.add(row...); err != nil {
			return err
		}
	}

	return sw.Flush()
}

func (r *report) writeOverall(a *domain.Analysis, s domain.Summary) error {
	sh, err := r.newSheet(overallSheet, 5)
	if err != nil {
		return err
	}

	window := "all"
	if a.Window != nil {
		window = "due <= " + a.Window.To.Format(timeLayout)
		if a.Window.From != nil {
			window = a.Window.From.Format(timeLayout) + " .. " + a.Window.To.Format(timeLayout)
		}
	}

	rows := [][]any{
		{"metric", "value"},
		{"total", s.Total},
		{"failed", s.Failed},
		{"fail_rate", r.percentCell(s.FailRate)},
		{"cutoff", a.Cutoff.Format(timeLayout)},
		{"due_window", window},
	}
	for _, row := range rows {
		if err := sh.add(row...); err != nil {
			return err
		}
	}

	sh.gap()
	if err := r.causeTable(sh, s.Causes); err != nil {
		return err
	}

	sh.gap()
	if err := sh.add("hub", "total", "failed", "fail_rate"); err != nil {
		return err
	}
	for _, h := range s.Hubs {
		if err := sh.add(h.Hub, h.Total, h.Failed, r.percentCell(h.FailRate)); err != nil {
			return err
		}
	}

	return sh.sw.Flush()
}

func (r *report) writeClient(c domain.ClientSummary) error {
	sh, err := r.newSheet(c.Client, 4)
	if err != nil {
		return err
	}

	target := any("not configured")
	if c.TargetRate != nil {
		target = r.percentCell(*c.TargetRate)
	}
	meets := "below target"
	if c.MeetsTarget {
		meets = "meets target"
	}

	rows := [][]any{
		{"metric", "value"},
		{"client", c.Client},
		{"total", c.Total},
		{"failed", c.Failed},
		{"fail_rate", r.percentCell(c.FailRate)},
		{"target_rate", target},
		{"status", meets},
	}
	for _, row := range rows {
		if err := sh.add(row...); err != nil {
			return err
		}
	}

	if len(c.Causes) > 0 {
		sh.gap()
		if err := r.causeTable(sh, c.Causes); err != nil {
			return err
		}
	}

	return sh.sw.Flush()
}

func (r *report) writeHub(h domain.HubSummary) error {
	sh, err := r.newSheet(h.Hub, 5)
	if err != nil {
		return err
	}

	rows := [][]any{
		{"metric", "value"},
		{"hub", h.Hub},
		{"total", h.Total},
		{"failed", h.Failed},
		{"fail_rate", r.percentCell(h.FailRate)},
	}
	for _, row := range rows {
		if err := sh.add(row...); err != nil {
			return err
		}
	}

	if len(h.Causes) == 0 {
		return sh.sw.Flush()
	}

	sh.gap()
	if err := r.causeTable(sh, h.Causes); err != nil {
		return err
	}

	sh.gap()
	if err := sh.add("station", "cause", "party", "count", "station_total", "share_of_station"); err != nil {
		return err
	}
	for _, st := range h.Stations {
		for i, c := range st.Causes {
			// Repeat rows of a station leave its code blank.
			station := ""
			if i == 0 {
				station = st.Station
			}
			if err := sh.add(station, string(c.Cause), string(c.Party), c.Count, st.Total, r.percentCell(c.Share)); err != nil {
				return err
			}
		}
	}

	return sh.sw.Flush()
}

func (r *report) causeTable(sh *sheet, causes []domain.CauseCount) error {
	if err := sh.add("cause", "party", "count", "share"); err != nil {
		return err
	}
	for _, c := range causes {
		if err := sh.add(string(c.Cause), string(c.Party), c.Count, r.percentCell(c.Share)); err != nil {
			return err
		}
	}
	return nil
}

func (r *report) percentCell(v float64) excelize.Cell {
	return excelize.Cell{StyleID: r.percent, Value: v}
}

func (r *report) hoursCell(v *float64) any {
	if v == nil {
		return nil
	}
	return excelize.Cell{StyleID: r.hours, Value: *v}
}

// timeCell writes a date serial so the column sorts and filters as dates.
func (r *report) timeCell(t *time.Time) any {
	if t == nil {
		return nil
	}
	return excelize.Cell{StyleID: r.datetime, Value: *t}
}
