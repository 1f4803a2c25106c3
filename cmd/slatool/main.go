package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sla-attribution-service/internal/adapters/spreadsheet"
	"sla-attribution-service/internal/config"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/ports"
	"sla-attribution-service/internal/rules"
	"sla-attribution-service/internal/services"
	"time"

	"github.com/joho/godotenv"
)

const cliTimeLayout = "2006-01-02 15:04:05"

type options struct {
	cutoff   string
	dueFrom  string
	dueTo    string
	dueAt    string
	rules    string
	out      string
	tz       string
	workers  int
	waive    bool
	inputs   []string
	location *time.Location
}

// slatool analyzes exported workbooks offline and writes the attribution report.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("slatool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: slatool [flags] -out report.xlsx export1.xlsx [export2.xlsx ...]")
		fs.PrintDefaults()
	}

	var o options
	fs.StringVar(&o.cutoff, "cutoff", "", "analysis time as RFC 3339 or \""+cliTimeLayout+"\" (default now)")
	fs.StringVar(&o.dueFrom, "due-from", "", "keep shipments due at or after this time (needs -due-to)")
	fs.StringVar(&o.dueTo, "due-to", "", "keep shipments due at or before this time (needs -due-from)")
	fs.StringVar(&o.dueAt, "due-at", "", "keep shipments due at or before this time")
	fs.StringVar(&o.rules, "rules", config.Get(config.Prefix+"_RULES_PATH", ""), "YAML rule registry (default built-in rules)")
	fs.StringVar(&o.out, "out", "sla-report.xlsx", "report workbook to write")
	fs.StringVar(&o.tz, "tz", config.Get(config.Prefix+"_TIMEZONE", "America/Los_Angeles"), "time zone of workbook timestamps")
	fs.IntVar(&o.workers, "workers", 0, "parallel workers (default GOMAXPROCS)")
	fs.BoolVar(&o.waive, "waive-on-target", false, "do not attribute misses of clients that met their target rate")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	o.inputs = fs.Args()
	if len(o.inputs) == 0 {
		fs.Usage()
		return nil, errors.New("at least one input workbook is required")
	}
	if o.workers < 0 {
		return nil, fmt.Errorf("-workers must not be negative, got %d", o.workers)
	}

	loc, err := time.LoadLocation(o.tz)
	if err != nil {
		return nil, fmt.Errorf("-tz %q: %w", o.tz, err)
	}
	o.location = loc

	return &o, nil
}

// analyzeOptions resolves the time flags; now is already wall-clock time.
func (o *options) analyzeOptions(now time.Time) (services.AnalyzeOptions, error) {
	out := services.AnalyzeOptions{Cutoff: now, Workers: o.workers, WaiveClientsOnTarget: o.waive}

	if o.cutoff != "" {
		t, err := parseTime(o.cutoff, o.location)
		if err != nil {
			return out, fmt.Errorf("-cutoff: %w", err)
		}
		out.Cutoff = t
	}

	switch {
	case o.dueAt != "" && (o.dueFrom != "" || o.dueTo != ""):
		return out, errors.New("use either -due-at or -due-from/-due-to")
	case o.dueAt != "":
		at, err := parseTime(o.dueAt, o.location)
		if err != nil {
			return out, fmt.Errorf("-due-at: %w", err)
		}
		w := domain.NewDueBefore(at)
		out.Window = &w
	case o.dueFrom != "" && o.dueTo != "":
		from, err := parseTime(o.dueFrom, o.location)
		if err != nil {
			return out, fmt.Errorf("-due-from: %w", err)
		}
		to, err := parseTime(o.dueTo, o.location)
		if err != nil {
			return out, fmt.Errorf("-due-to: %w", err)
		}
		w, err := domain.NewDueRange(from, to)
		if err != nil {
			return out, err
		}
		out.Window = &w
	case o.dueFrom != "" || o.dueTo != "":
		return out, errors.New("-due-from and -due-to must be given together")
	}

	return out, nil
}

// parseTime returns the wall-clock form of v that workbook timestamps use.
// Values with an offset are read as wall-clock time in loc.
func parseTime(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return domain.WallClock(t, loc), nil
	}
	t, err := time.Parse(cliTimeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized time %q", v)
	}
	return t, nil
}

func run(ctx context.Context, o *options, stdout io.Writer) error {
	registry := rules.Default()
	if o.rules != "" {
		reg, err := rules.LoadFile(o.rules)
		if err != nil {
			return err
		}
		registry = reg
	}

	analyzeOpts, err := o.analyzeOptions(domain.WallClock(time.Now(), o.location))
	if err != nil {
		return err
	}

	sources := make([]ports.WorkbookSource, 0, len(o.inputs))
	for _, path := range o.inputs {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		sources = append(sources, ports.WorkbookSource{Name: filepath.Base(path), Body: f})
	}

	shipments, err := spreadsheet.ReadAll(ctx, sources, o.location)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "read %d shipments from %d file(s)\n", len(shipments), len(sources))

	res, err := services.RunAnalysis(ctx, services.RunAnalysisRequest{
		Shipments: shipments,
		Options:   analyzeOpts,
	}, registry, nil)
	if err != nil {
		return err
	}

	for _, c := range res.Summary.Clients {
		status := "no target"
		if c.TargetRate != nil {
			status = "below target"
			if c.MeetsTarget {
				status = "meets target"
			}
		}
		fmt.Fprintf(stdout, "%-10s total=%-6d failed=%-6d success=%6.2f%% %s\n",
			c.Client, c.Total, c.Failed, c.SuccessRate*100, status)
	}

	if err := writeReport(ctx, o.out, res); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "report written: %s (failed %d of %d)\n", o.out, res.Summary.Failed, res.Summary.Total)

	return nil
}

func writeReport(ctx context.Context, path string, res *services.RunAnalysisResult) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("write report: %w", cerr)
		}
	}()

	return spreadsheet.WriteReport(ctx, f, res.Analysis, res.Summary)
}
