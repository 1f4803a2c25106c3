package spreadsheet

import (
	"sla-attribution-service/internal/domain"
	"strings"
)

// column binds one header of the operations export to a shipment field.
type column struct {
	aliases []string
	apply   func(s *domain.Shipment, raw string, tp timeParser)
}

func textColumn(field func(s *domain.Shipment) *string, aliases ...string) column {
	return column{aliases: aliases, apply: func(s *domain.Shipment, raw string, _ timeParser) {
		*field(s) = strings.TrimSpace(raw)
	}}
}

// milestoneColumn also accepts the milestone's own snake_case name.
// Unreadable timestamps leave the milestone absent.
func milestoneColumn(m domain.Milestone, aliases ...string) column {
	return column{aliases: append(aliases, m.String()), apply: func(s *domain.Shipment, raw string, tp timeParser) {
		if t, ok := tp.parse(raw); ok {
			s.Times.Set(m, t)
		}
	}}
}

var clientColumn = textColumn(func(s *domain.Shipment) *string { return &s.Client }, "客户", "client", "customer")

var misSortColumn = column{
	aliases: []string{"是否错分", "mis_sorted", "mis-sorted", "missorted"},
	apply: func(s *domain.Shipment, raw string, _ timeParser) {
		s.MisSorted = parseFlag(raw)
	},
}

var columns = []column{
	textColumn(func(s *domain.Shipment) *string { return &s.TrackingNumber }, "面单号", "tracking_number", "tracking number", "waybill"),
	clientColumn,
	textColumn(func(s *domain.Shipment) *string { return &s.Hub }, "集配站", "hub"),
	textColumn(func(s *domain.Shipment) *string { return &s.Station }, "配送站", "station"),
	textColumn(func(s *domain.Shipment) *string { return &s.OriginalHub }, "原集配站", "original_hub", "original hub"),
	textColumn(func(s *domain.Shipment) *string { return &s.OriginalStation }, "原配送站", "original_station", "original station"),
	textColumn(func(s *domain.Shipment) *string { return &s.SegmentCode }, "段码", "segment_code", "segment code"),
	textColumn(func(s *domain.Shipment) *string { return &s.PostalCode }, "收件人邮编", "postal_code", "postal code", "zip"),
	textColumn(func(s *domain.Shipment) *string { return &s.BagID }, "分拨大包号", "bag_id", "bag id"),
	textColumn(func(s *domain.Shipment) *string { return &s.Driver }, "派送司机", "driver"),
	textColumn(func(s *domain.Shipment) *string { return &s.FailureReason }, "最新签收失败原因", "failure_reason", "failure reason"),
	misSortColumn,

	milestoneColumn(domain.Handover, "关配交接时间"),
	milestoneColumn(domain.HubInbound, "首分拨首次入库时间"),
	milestoneColumn(domain.HubAutoSort, "首分拨首次自动分拣时间"),
	milestoneColumn(domain.HubManualSort, "首分拨首次人工分拣时间"),
	milestoneColumn(domain.HubOutbound, "首分拨首次出库时间"),
	milestoneColumn(domain.StationInbound, "配送站首次入库时间"),
	milestoneColumn(domain.CourierPickup, "司机首次领件时间"),
	milestoneColumn(domain.FirstDelivery, "首次派送时间"),
	milestoneColumn(domain.Receipt, "签收成功时间"),
	milestoneColumn(domain.ExceptionReported, "末端异常提报时间"),
	milestoneColumn(domain.ExceptionReleased, "异常释放时间"),
	milestoneColumn(domain.StationReturn, "配送站归班时间"),
}

var byAlias = func() map[string]int {
	m := make(map[string]int)
	for i, c := range columns {
		for _, a := range c.aliases {
			m[normalizeHeader(a)] = i
		}
	}
	return m
}()

// normalizeHeader folds case and whitespace, and drops the ".N" suffix that
// dataframe exports append to repeated header names.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if i := strings.LastIndexByte(h, '.'); i > 0 && i < len(h)-1 && isDigits(h[i+1:]) {
		h = strings.TrimSpace(h[:i])
	}
	return strings.Join(strings.Fields(h), " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// headerMap maps column bindings to cell indexes. When a header repeats, the
// rightmost cell wins.
func headerMap(row []string) map[int]int {
	out := make(map[int]int)
	for cell, h := range row {
		if idx, ok := byAlias[normalizeHeader(h)]; ok {
			out[idx] = cell
		}
	}
	return out
}

func hasClient(m map[int]int) bool {
	_, ok := m[clientIndex]
	return ok
}

var clientIndex = byAlias[normalizeHeader(clientColumn.aliases[0])]

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "是", "y", "yes", "true", "1":
		return true
	}
	return false
}
