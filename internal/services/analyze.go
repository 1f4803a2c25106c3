package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/platform/obs"
	"sla-attribution-service/internal/ports"
	"time"

	"golang.org/x/sync/errgroup"
)

// chunkSize is the number of shipments each worker handles per task.
const chunkSize = 512

type AnalyzeOptions struct {
	// Cutoff is the "now" used to tell in-transit parcels from terminally late ones.
	Cutoff time.Time
	// Window, when set, keeps only shipments due inside it.
	Window *domain.DueWindow
	// Workers bounds parallelism; zero means GOMAXPROCS.
	Workers int
	// WaiveClientsOnTarget labels misses of clients that met their target
	// rate as not pursued instead of walking the attribution tree.
	WaiveClientsOnTarget bool
}

// Analyze evaluates every shipment against its client's SLA, applies the due
// window and attributes each miss to a root cause. Shipments are independent,
// so work is split across a bounded worker pool; output order equals input order.
func Analyze(
	ctx context.Context,
	shipments []domain.Shipment,
	registry ports.RuleRegistry,
	opts AnalyzeOptions,
) (_ *domain.Analysis, err error) {
	defer obs.Time(ctx, "services.Analyze")(&err)

	if len(shipments) == 0 {
		return nil, fmt.Errorf("analyze: %w", domain.ErrNoRecords)
	}
	if registry == nil {
		return nil, errors.New("analyze: rule registry is nil")
	}
	if opts.Cutoff.IsZero() {
		return nil, errors.New("analyze: cutoff is required")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	evals := make([]domain.Evaluation, len(shipments))
	err = forEachIndex(ctx, len(shipments), workers, func(i int) {
		evals[i] = domain.Evaluation{
			Shipment:   shipments[i],
			Compliance: Evaluate(shipments[i], registry),
		}
	})
	if err != nil {
		return nil, fmt.Errorf("analyze: evaluate compliance: %w", err)
	}

	kept := evals
	if opts.Window != nil {
		kept = make([]domain.Evaluation, 0, len(evals))
		for _, e := range evals {
			if opts.Window.Includes(e.Compliance.DueAt) {
				kept = append(kept, e)
			}
		}
	}

	var onTarget map[string]bool
	if opts.WaiveClientsOnTarget {
		onTarget = clientsOnTarget(kept, registry)
	}

	err = forEachIndex(ctx, len(kept), workers, func(i int) {
		e := &kept[i]
		if e.Compliance.MetSLA {
			return
		}
		if onTarget[e.Shipment.Client] {
			e.Attribution = waived(e.Shipment)
			return
		}
		rule, ok := registry.Lookup(e.Shipment.Client)
		e.Attribution = Attribute(e.Shipment, e.Compliance, rule, ok, opts.Cutoff)
	})
	if err != nil {
		return nil, fmt.Errorf("analyze: attribute failures: %w", err)
	}

	return &domain.Analysis{
		Cutoff:      opts.Cutoff,
		Window:      opts.Window,
		Evaluations: kept,
	}, nil
}

// forEachIndex calls fn for every index in [0,n) using at most workers
// goroutines. fn must only touch state owned by its index.
func forEachIndex(ctx context.Context, n, workers int, fn func(i int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < n; start += chunkSize {
		start := start
		end := min(start+chunkSize, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}

	return g.Wait()
}

// clientsOnTarget returns the clients whose success rate reaches their target.
func clientsOnTarget(evals []domain.Evaluation, registry ports.RuleRegistry) map[string]bool {
	type tally struct{ total, ok int }
	counts := make(map[string]*tally)
	for _, e := range evals {
		t := counts[e.Shipment.Client]
		if t == nil {
			t = &tally{}
			counts[e.Shipment.Client] = t
		}
		t.total++
		if e.Compliance.MetSLA {
			t.ok++
		}
	}

	out := make(map[string]bool, len(counts))
	for client, t := range counts {
		rule, ok := registry.Lookup(client)
		if !ok {
			continue
		}
		if float64(t.ok)/float64(t.total) >= rule.TargetRate {
			out[client] = true
		}
	}
	return out
}
