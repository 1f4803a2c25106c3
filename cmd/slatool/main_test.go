package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-cutoff", "2025-03-10 00:00:00", "-due-at", "2025-03-09 12:00:00", "-workers", "3", "a.xlsx", "b.xlsx"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xlsx", "b.xlsx"}, o.inputs)
	assert.Equal(t, 3, o.workers)
	assert.Equal(t, "America/Los_Angeles", o.location.String())

	opts, err := o.analyzeOptions(time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), opts.Cutoff)
	require.NotNil(t, opts.Window)
	assert.Nil(t, opts.Window.From)
	assert.Equal(t, time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC), opts.Window.To)

	o, err = parseFlags([]string{"-cutoff", "2025-03-10T07:00:00Z", "a.xlsx"}, io.Discard)
	require.NoError(t, err)
	opts, err = o.analyzeOptions(time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), opts.Cutoff, "offset cutoff becomes Los Angeles wall clock")
}

func TestParseFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no inputs", []string{"-out", "r.xlsx"}},
		{"bad zone", []string{"-tz", "Mars/Olympus", "a.xlsx"}},
		{"negative workers", []string{"-workers", "-1", "a.xlsx"}},
		{"unknown flag", []string{"-verbose", "a.xlsx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestAnalyzeOptionsWindow(t *testing.T) {
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		window  bool
	}{
		{"default cutoff", []string{"a.xlsx"}, false, false},
		{"range", []string{"-due-from", "2025-03-01 00:00:00", "-due-to", "2025-03-02 00:00:00", "a.xlsx"}, false, true},
		{"inverted range", []string{"-due-from", "2025-03-02 00:00:00", "-due-to", "2025-03-01 00:00:00", "a.xlsx"}, true, false},
		{"half range", []string{"-due-to", "2025-03-02 00:00:00", "a.xlsx"}, true, false},
		{"both shapes", []string{"-due-at", "2025-03-02 00:00:00", "-due-from", "2025-03-01 00:00:00", "a.xlsx"}, true, false},
		{"bad cutoff", []string{"-cutoff", "tomorrow", "a.xlsx"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseFlags(tt.args, io.Discard)
			require.NoError(t, err)

			opts, err := o.analyzeOptions(now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.window, opts.Window != nil)
			if len(tt.args) == 1 {
				assert.True(t, opts.Cutoff.Equal(now))
			}
		})
	}
}

func TestRunWritesReport(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	rows := [][]any{
		{"面单号", "客户", "集配站", "配送站", "首分拨首次入库时间", "签收成功时间"},
		{"TN-1", "FBT", "HUB_LAX_ONT", "ST_1", "2025-03-03 08:00:00", "2025-03-04 10:00:00"},
		{"TN-2", "FBT", "HUB_LAX_ONT", "ST_1", "2025-03-03 08:00:00", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	input := filepath.Join(dir, "export.xlsx")
	require.NoError(t, f.SaveAs(input))
	require.NoError(t, f.Close())

	out := filepath.Join(dir, "reports", "sla.xlsx")
	o, err := parseFlags([]string{"-cutoff", "2025-03-10 00:00:00", "-out", out, input}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), o, &stdout))

	assert.Contains(t, stdout.String(), "read 2 shipments from 1 file(s)")
	assert.Contains(t, stdout.String(), "FBT")
	assert.Contains(t, stdout.String(), "below target")
	assert.Contains(t, stdout.String(), "failed 1 of 2")

	_, err = os.Stat(out)
	require.NoError(t, err)

	report, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer report.Close()
	assert.Equal(t, []string{"Details", "Overall", "FBT", "HUB_LAX_ONT"}, report.GetSheetList())
}

func TestRunMissingInput(t *testing.T) {
	o, err := parseFlags([]string{filepath.Join(t.TempDir(), "missing.xlsx")}, io.Discard)
	require.NoError(t, err)

	assert.Error(t, run(context.Background(), o, io.Discard))
}
