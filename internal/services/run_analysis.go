package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/platform/obs"
	"sla-attribution-service/internal/ports"
	"time"

	"github.com/google/uuid"
)

type RunAnalysisRequest struct {
	Shipments []domain.Shipment
	// InputDigest identifies the raw uploads; see DigestInputs.
	InputDigest string
	Options     AnalyzeOptions
}

type RunAnalysisResult struct {
	Run      *domain.Run
	Analysis *domain.Analysis
	Summary  domain.Summary
}

// RunAnalysis analyzes and summarizes one batch, then records the run.
// runs may be nil when nothing should be persisted.
func RunAnalysis(
	ctx context.Context,
	req RunAnalysisRequest,
	registry ports.RuleRegistry,
	runs ports.RunRepository,
) (_ *RunAnalysisResult, err error) {
	defer obs.Time(ctx, "services.RunAnalysis")(&err)

	a, err := Analyze(ctx, req.Shipments, registry, req.Options)
	if err != nil {
		return nil, fmt.Errorf("run analysis: %w", err)
	}

	summary := Summarize(a, registry)
	LogSummary(ctx, summary, registry)
	obs.RecordSummary(summary)

	run := newRun(a, summary, req.InputDigest)
	if runs != nil {
		if err := runs.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("run analysis: %w", err)
		}
	}

	return &RunAnalysisResult{Run: run, Analysis: a, Summary: summary}, nil
}

func newRun(a *domain.Analysis, s domain.Summary, digest string) *domain.Run {
	run := &domain.Run{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Cutoff:      a.Cutoff,
		InputDigest: digest,
		Total:       s.Total,
		Failed:      s.Failed,
		Clients:     make([]domain.RunClient, 0, len(s.Clients)),
	}
	if a.Window != nil {
		to := a.Window.To
		run.WindowFrom = a.Window.From
		run.WindowTo = &to
	}
	for _, c := range s.Clients {
		run.Clients = append(run.Clients, domain.RunClient{
			Client:      c.Client,
			Total:       c.Total,
			Failed:      c.Failed,
			TargetRate:  c.TargetRate,
			MeetsTarget: c.MeetsTarget,
		})
	}
	return run
}

// DigestInputs hashes the raw upload bytes in order. Each part is length
// prefixed so that moving bytes between files changes the digest.
func DigestInputs(parts ...[]byte) string {
	h := sha256.New()
	var size [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(size[:], uint64(len(p)))
		h.Write(size[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ReportKey identifies a rendered report: the same uploads analyzed with the
// same options against the same rules always render the same workbook.
func ReportKey(inputDigest string, opts AnalyzeOptions, registry ports.RuleRegistry) string {
	h := sha256.New()
	fmt.Fprintf(h, "inputs=%s\n", inputDigest)
	fmt.Fprintf(h, "cutoff=%s\n", opts.Cutoff.UTC().Format(time.RFC3339Nano))
	if opts.Window != nil {
		if opts.Window.From != nil {
			fmt.Fprintf(h, "from=%s\n", opts.Window.From.UTC().Format(time.RFC3339Nano))
		}
		fmt.Fprintf(h, "to=%s\n", opts.Window.To.UTC().Format(time.RFC3339Nano))
	}
	fmt.Fprintf(h, "waive=%t\n", opts.WaiveClientsOnTarget)
	fmt.Fprintf(h, "rules=%s\n", registry.Fingerprint())
	return hex.EncodeToString(h.Sum(nil))
}
