package spreadsheet

import (
	"bytes"
	"context"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/ports"
	"sla-attribution-service/internal/rules"
	"sla-attribution-service/internal/services"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func losAngeles(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return loc
}

func TestReadShipmentsChineseExport(t *testing.T) {
	loc := losAngeles(t)
	rows := [][]any{
		{"SLA export 2025-03"},
		{"面单号", "客户", "集配站", "集配站", "配送站", "首分拨首次入库时间", "签收成功时间", "首次派送时间", "是否错分", "段码"},
		{"TN-1", "FBT", "HUB_OLD", "HUB_LAX_LAS", "ST_PAS", 45719.333333333336, "2025-03-05 10:30:00", "n/a", "是", 12},
		{},
		{"TN-2", " TE ", "", "", "", "", "", "", "否", ""},
	}

	got, err := ReadShipments(context.Background(), workbook(t, rows), loc)
	require.NoError(t, err)
	require.Len(t, got, 2)

	s := got[0]
	assert.Equal(t, "TN-1", s.TrackingNumber)
	assert.Equal(t, "FBT", s.Client)
	assert.Equal(t, "HUB_LAX_LAS", s.Hub, "rightmost duplicate header wins")
	assert.Equal(t, "ST_PAS", s.Station)
	assert.Equal(t, "12", s.SegmentCode)
	assert.True(t, s.MisSorted)

	inbound, ok := s.At(domain.HubInbound)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC), inbound)

	receipt, ok := s.At(domain.Receipt)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 5, 10, 30, 0, 0, time.UTC), receipt)

	_, ok = s.At(domain.FirstDelivery)
	assert.False(t, ok, "unreadable timestamp is absent")

	assert.Equal(t, "TE", got[1].Client)
	assert.False(t, got[1].MisSorted)
	_, ok = got[1].At(domain.HubInbound)
	assert.False(t, ok)
}

func TestReadShipmentsEnglishHeaders(t *testing.T) {
	rows := [][]any{
		{"Tracking Number", "Client", "Hub", "hub_inbound", "first_delivery", "Mis-Sorted"},
		{"TN-9", "CBT", "HUB_LAX_ONT", "2025/3/3 08:00", "2025-03-04T09:15:00", "yes"},
	}

	got, err := ReadShipments(context.Background(), workbook(t, rows), time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "CBT", got[0].Client)
	assert.True(t, got[0].MisSorted)
	inbound, _ := got[0].At(domain.HubInbound)
	assert.Equal(t, time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC), inbound)
	delivered, _ := got[0].At(domain.FirstDelivery)
	assert.Equal(t, time.Date(2025, 3, 4, 9, 15, 0, 0, time.UTC), delivered)
}

func TestReadShipmentsKeepsWallClockAcrossDST(t *testing.T) {
	loc := losAngeles(t)
	rows := [][]any{
		{"面单号", "客户", "关配交接时间", "首分拨首次入库时间", "签收成功时间"},
		// 2024-03-10 02:30 does not exist in Los Angeles; the export still recorded it.
		{"TN-1", "SKA2", "2024-03-09 12:00:00", "2024-03-10 02:30:00", "2024-03-14T12:30:00-07:00"},
	}

	got, err := ReadShipments(context.Background(), workbook(t, rows), loc)
	require.NoError(t, err)
	require.Len(t, got, 1)

	handover, _ := got[0].At(domain.Handover)
	inbound, _ := got[0].At(domain.HubInbound)
	receipt, _ := got[0].At(domain.Receipt)
	assert.Equal(t, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), handover)
	assert.Equal(t, time.Date(2024, 3, 10, 2, 30, 0, 0, time.UTC), inbound)
	assert.Equal(t, time.Date(2024, 3, 14, 12, 30, 0, 0, time.UTC), receipt, "offset values become local wall clock")
	assert.Equal(t, 120.5, receipt.Sub(handover).Hours())
}

func TestReadShipmentsMissingClientColumn(t *testing.T) {
	rows := [][]any{
		{"面单号", "集配站"},
		{"TN-1", "HUB_LAX_LAS"},
	}

	_, err := ReadShipments(context.Background(), workbook(t, rows), time.UTC)
	assert.ErrorIs(t, err, domain.ErrMissingColumns)
}

func TestReadShipmentsRejectsNonWorkbook(t *testing.T) {
	_, err := ReadShipments(context.Background(), strings.NewReader("tracking,client\n1,FBT\n"), time.UTC)
	assert.Error(t, err)
}

func TestReadAllKeepsSourceOrder(t *testing.T) {
	header := []any{"面单号", "客户"}
	sources := []ports.WorkbookSource{
		{Name: "a.xlsx", Body: workbook(t, [][]any{header, {"A-1", "FBT"}, {"A-2", "FBT"}})},
		{Name: "b.xlsx", Body: workbook(t, [][]any{header, {"B-1", "TE"}})},
	}

	got, err := ReadAll(context.Background(), sources, time.UTC)
	require.NoError(t, err)

	var ids []string
	for _, s := range got {
		ids = append(ids, s.TrackingNumber)
	}
	assert.Equal(t, []string{"A-1", "A-2", "B-1"}, ids)

	_, err = ReadAll(context.Background(), []ports.WorkbookSource{{Name: "bad.xlsx", Body: strings.NewReader("x")}}, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.xlsx")
}

func TestWriteReport(t *testing.T) {
	t0 := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	mk := func(id, client, hub, station string, delivered time.Duration) domain.Shipment {
		s := domain.Shipment{TrackingNumber: id, Client: client, Hub: hub, Station: station}
		s.Times.Set(domain.HubInbound, t0)
		s.Times.Set(domain.HubAutoSort, t0.Add(time.Hour))
		s.Times.Set(domain.HubOutbound, t0.Add(6*time.Hour))
		s.Times.Set(domain.StationInbound, t0.Add(10*time.Hour))
		s.Times.Set(domain.CourierPickup, t0.Add(14*time.Hour))
		if delivered > 0 {
			s.Times.Set(domain.FirstDelivery, t0.Add(delivered))
			s.Times.Set(domain.Receipt, t0.Add(delivered))
		}
		return s
	}
	input := []domain.Shipment{
		mk("TN-1", "FBT", "HUB_LAX_ONT", "ST_PAS", 20*time.Hour),
		mk("TN-2", "FBT", "HUB_LAX_ONT", "ST_PAS", 0),
		mk("TN-3", "CBT/X", "HUB_LAX_ONT", "", 0),
	}

	reg := rules.Default()
	a, err := services.Analyze(context.Background(), input, reg, services.AnalyzeOptions{Cutoff: t0.Add(100 * time.Hour)})
	require.NoError(t, err)
	s := services.Summarize(a, reg)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(context.Background(), &buf, a, s))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Details", "Overall", "CBT_X", "FBT", "HUB_LAX_ONT"}, f.GetSheetList())

	details, err := f.GetRows("Details")
	require.NoError(t, err)
	require.Len(t, details, 3, "header plus two failures")
	assert.Equal(t, "tracking_number", details[0][0])
	assert.Equal(t, "TN-2", details[1][0])
	assert.Equal(t, "cause", details[0][len(detailHeader)-2])
	assert.Equal(t, string(domain.CauseNoDeliveryTwoDays), details[1][len(detailHeader)-2])

	inboundCol := 12 + int(domain.HubInbound) + 1
	cell, err := excelize.CoordinatesToCellName(inboundCol, 2)
	require.NoError(t, err)
	raw, err := f.GetCellValue("Details", cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	serial, err := strconv.ParseFloat(raw, 64)
	require.NoError(t, err, "milestones are date serials, got %q", raw)
	inbound, err := excelize.ExcelDateToTime(serial, false)
	require.NoError(t, err)
	assert.Equal(t, t0, inbound.Round(time.Second))

	width, err := f.GetColWidth("Details", "AK")
	require.NoError(t, err)
	assert.Equal(t, wideColumnWidth, width)

	overall, err := f.GetRows("Overall")
	require.NoError(t, err)
	assert.Equal(t, []string{"total", "3"}, overall[1])

	fbt, err := f.GetRows("FBT")
	require.NoError(t, err)
	assert.Equal(t, []string{"failed", "1"}, fbt[3])
	assert.Equal(t, []string{"target_rate", "95.00%"}, fbt[5])
}

func TestUniqueSheetNames(t *testing.T) {
	r := &report{names: map[string]bool{"details": true}}

	assert.Equal(t, "DETAILS~2", r.uniqueName("DETAILS"))
	assert.Equal(t, "HUB_LAX_LAS", r.uniqueName("HUB_LAX_LAS"))
	assert.Equal(t, "a_b_c", r.uniqueName("a/b:c"))

	long := strings.Repeat("X", 40)
	first := r.uniqueName(long)
	second := r.uniqueName(long)
	assert.Len(t, first, maxSheetName)
	assert.Len(t, second, maxSheetName)
	assert.Equal(t, strings.Repeat("X", 29)+"~2", second)
	assert.Equal(t, "blank", r.uniqueName("  "))
}
