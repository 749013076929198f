package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/triathematician/blaisemath-sub005/internal/model"
	"github.com/triathematician/blaisemath-sub005/internal/stats"
)

type ValuationResult struct {
	Team        string        `json:"team"`
	Name        string        `json:"name"`
	Kind        ValuationKind `json:"kind"`
	Cooperation bool          `json:"cooperation"`
	Full        []float64     `json:"full"`
	Partial     []float64     `json:"partial,omitempty"`

	FullSummary    model.Summary `json:"full_summary"`
	PartialSummary model.Summary `json:"partial_summary"`
	// CooperationValue is mean(full) - mean(partial) for cooperation-testing
	// valuations and zero otherwise.
	CooperationValue float64 `json:"cooperation_value"`
}

type BatchResult struct {
	Trials     int               `json:"trials"`
	Seed       int64             `json:"seed"`
	Runs       []RunResult       `json:"runs"`
	Valuations []ValuationResult `json:"valuations"`
}

func (b BatchResult) Valuation(name string) (ValuationResult, bool) {
	for _, v := range b.Valuations {
		if v.Name == name {
			return v, true
		}
	}
	return ValuationResult{}, false
}

// trial is the outcome of one full-roster run and its partial sub-runs.
type trial struct {
	run     RunResult
	full    []float64
	partial []float64
}

// RunSeveral runs n trials on this simulation in batch mode. Trial i draws
// its starting positions from seed+i. Only the aggregate is reported to the
// observer.
func (s *Simulation) RunSeveral(ctx context.Context, n int) (BatchResult, error) {
	if n < 0 {
		return BatchResult{}, fmt.Errorf("trial count must be >= 0, got %d", n)
	}
	trials := make([]trial, n)
	for i := 0; i < n; i++ {
		t, err := s.runTrial(ctx, i)
		if err != nil {
			return BatchResult{}, fmt.Errorf("trial %d: %w", i, err)
		}
		trials[i] = t
	}
	res := s.collect(trials)
	s.observer.BatchCompleted(res)
	return res, nil
}

// runTrial runs the full roster once and then every cooperation-testing
// valuation with its owner reduced to the complement set. Every sub-run
// starts from the positions drawn for the full run.
func (s *Simulation) runTrial(ctx context.Context, i int) (trial, error) {
	s.Reseed(s.cfg.Seed + int64(i))
	if err := s.InitStateVariables(); err != nil {
		return trial{}, err
	}
	run, err := s.execute(ctx, s.cfg.Steps, ModeBatch)
	if err != nil {
		return trial{}, err
	}

	vals := s.Valuations()
	out := trial{run: run, full: make([]float64, len(vals)), partial: make([]float64, len(vals))}
	for j, v := range vals {
		out.full[j] = v.Value(run)
	}

	for j, v := range vals {
		if !v.cooperation {
			continue
		}
		err := s.withRoster(v.owner, v.complement, func() error {
			s.resetState()
			partial, err := s.execute(ctx, s.cfg.Steps, ModeBatch)
			if err != nil {
				return err
			}
			out.partial[j] = v.Value(partial)
			return nil
		})
		if err != nil {
			return trial{}, fmt.Errorf("partial run for %s: %w", v.name, err)
		}
	}
	return out, nil
}

func (s *Simulation) collect(trials []trial) BatchResult {
	vals := s.Valuations()
	res := BatchResult{
		Trials:     len(trials),
		Seed:       s.cfg.Seed,
		Runs:       make([]RunResult, len(trials)),
		Valuations: make([]ValuationResult, len(vals)),
	}
	for j, v := range vals {
		res.Valuations[j] = ValuationResult{
			Team:        v.owner.name,
			Name:        v.name,
			Kind:        v.kind,
			Cooperation: v.cooperation,
			Full:        make([]float64, len(trials)),
		}
		if v.cooperation {
			res.Valuations[j].Partial = make([]float64, len(trials))
		}
	}
	for i, t := range trials {
		res.Runs[i] = t.run
		for j := range vals {
			res.Valuations[j].Full[i] = t.full[j]
			if res.Valuations[j].Cooperation {
				res.Valuations[j].Partial[i] = t.partial[j]
			}
		}
	}
	for j := range res.Valuations {
		vr := &res.Valuations[j]
		vr.FullSummary = stats.Summarize(vr.Full)
		if vr.Cooperation {
			vr.PartialSummary = stats.Summarize(vr.Partial)
			vr.CooperationValue = stats.CooperationValue(vr.Full, vr.Partial)
		}
	}
	return res
}

type BatchOptions struct {
	// Workers bounds the number of concurrent simulations; values below one
	// mean one.
	Workers  int
	Log      Log
	Observer Observer
	Logger   *slog.Logger
	Fusion   Fusion
	// Progress is called after each finished trial from the collecting
	// goroutine.
	Progress func(done, total int)
}

// RunBatch runs n trials of cfg over a pool of workers, each owning its own
// Simulation. Trial i uses seed cfg.Seed+i, so the result does not depend on
// the worker count.
func RunBatch(ctx context.Context, cfg Config, n int, opts BatchOptions) (BatchResult, error) {
	if n < 0 {
		return BatchResult{}, fmt.Errorf("trial count must be >= 0, got %d", n)
	}
	simOpts := Options{Log: opts.Log, Logger: opts.Logger, Fusion: opts.Fusion}
	ref, err := New(cfg, simOpts)
	if err != nil {
		return BatchResult{}, err
	}

	workerCount := opts.Workers
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > n {
		workerCount = n
	}

	type result struct {
		idx   int
		trial trial
		err   error
	}

	jobs := make(chan int)
	results := make(chan result, n)

	sims := make([]*Simulation, workerCount)
	for w := range sims {
		if w == 0 {
			sims[w] = ref
			continue
		}
		if sims[w], err = New(cfg, simOpts); err != nil {
			return BatchResult{}, err
		}
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for _, s := range sims {
		go func(s *Simulation) {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				t, err := s.runTrial(ctx, idx)
				results <- result{idx: idx, trial: t, err: err}
			}
		}(s)
	}

	go func() {
		for i := 0; i < n; i++ {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	trials := make([]trial, n)
	var firstErr error
	done := 0
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("trial %d: %w", res.idx, res.err)
			}
			continue
		}
		trials[res.idx] = res.trial
		done++
		if opts.Progress != nil {
			opts.Progress(done, n)
		}
	}
	if firstErr != nil {
		return BatchResult{}, firstErr
	}

	out := ref.collect(trials)
	if opts.Observer != nil {
		opts.Observer.BatchCompleted(out)
	}
	return out, nil
}
