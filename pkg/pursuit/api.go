// Package pursuit runs pursuit-evasion scenarios and keeps their results.
package pursuit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/triathematician/blaisemath-sub005/internal/config"
	"github.com/triathematician/blaisemath-sub005/internal/model"
	"github.com/triathematician/blaisemath-sub005/internal/sim"
	"github.com/triathematician/blaisemath-sub005/internal/simlog"
	"github.com/triathematician/blaisemath-sub005/internal/stats"
	"github.com/triathematician/blaisemath-sub005/internal/storage"
)

const (
	defaultReportsDir = "reports"
	defaultExportsDir = "exports"
	defaultDBPath     = "pursuit.db"
	defaultTrials     = 10
	defaultWorkers    = 4
)

type Options struct {
	StoreKind  string
	DBPath     string
	ReportsDir string
	ExportsDir string
	Logger     *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger

	reportsDir string
	exportsDir string
}

// ScenarioSource names a scenario either by file or by value. Path is used
// when Scenario is nil.
type ScenarioSource struct {
	Path     string
	Scenario *config.Scenario
}

type RunRequest struct {
	ScenarioSource
	// Seed overrides the scenario seed when set.
	Seed *int64
	// Steps overrides the scenario step count when > 0.
	Steps    int
	Observer sim.Observer
	// Snapshots keeps the distance table of every step in the summary.
	Snapshots bool
}

type RunSummary struct {
	RunID  string
	Result sim.RunResult
	Events []sim.Event
	Steps  []simlog.Snapshot
}

type BatchRequest struct {
	ScenarioSource
	Seed     *int64
	Trials   int
	Workers  int
	Progress func(done, total int)
}

type BatchSummary struct {
	BatchID      string
	ArtifactsDir string
	Result       sim.BatchResult
	Wins         map[string]int
	Duration     time.Duration
}

type BatchesRequest struct {
	Scenario string
	Limit    int
}

type RunsRequest struct {
	Scenario string
	Limit    int
}

type BatchItem struct {
	BatchID      string
	CreatedAtUTC string
	Scenario     string
	Trials       int
	Seed         int64
	TopWinner    string
	BestCoop     float64
}

type ShowRequest struct {
	BatchID string
	Latest  bool
}

type ExportRequest struct {
	BatchID string
	Latest  bool
	OutDir  string
}

type ExportSummary struct {
	BatchID   string
	Directory string
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	reportsDir := opts.ReportsDir
	if reportsDir == "" {
		reportsDir = defaultReportsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.Open(context.Background(), opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		logger:     logger,
		reportsDir: reportsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Run plays one interactive run and stores its record.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	_, cfg, err := resolve(req.ScenarioSource, req.Seed)
	if err != nil {
		return RunSummary{}, err
	}
	steps := cfg.Steps
	if req.Steps > 0 {
		steps = req.Steps
	}

	rec := simlog.NewRecorder(req.Snapshots)
	s, err := sim.New(cfg, sim.Options{
		Log:      simlog.Multi{rec, simlog.NewLogger(c.logger)},
		Observer: req.Observer,
		Logger:   c.logger,
	})
	if err != nil {
		return RunSummary{}, err
	}
	res, err := s.RunSteps(ctx, steps, sim.ModeInteractive)
	if err != nil {
		return RunSummary{}, err
	}

	events := rec.Events()
	record := model.RunRecord{
		VersionedRecord: storage.Stamp(),
		ID:              uuid.NewString(),
		Scenario:        cfg.Name,
		Seed:            cfg.Seed,
		Steps:           res.Steps,
		EndTime:         res.EndTime,
		Ended:           res.Ended,
		Outcome:         res.Outcome.String(),
		Winner:          res.Winner,
		Decider:         res.Decider,
		Teams:           teamOutcomes(res.Teams),
		Events:          len(events),
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{RunID: record.ID, Result: res, Events: events, Steps: rec.Steps()}, nil
}

// Runs lists stored runs newest first, optionally for one scenario.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	return c.store.ListRuns(ctx, storage.Query{Scenario: req.Scenario, Limit: req.Limit})
}

func (c *Client) GetRun(ctx context.Context, runID string) (model.RunRecord, error) {
	if runID == "" {
		return model.RunRecord{}, errors.New("run id is required")
	}
	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	return record, nil
}

// Batch runs the scenario repeatedly in batch mode, stores the aggregate and
// writes its report artifacts.
func (c *Client) Batch(ctx context.Context, req BatchRequest) (BatchSummary, error) {
	if req.Trials < 0 {
		return BatchSummary{}, errors.New("trials must be >= 0")
	}
	if req.Trials == 0 {
		req.Trials = defaultTrials
	}
	if req.Workers <= 0 {
		req.Workers = defaultWorkers
	}

	scenario, cfg, err := resolve(req.ScenarioSource, req.Seed)
	if err != nil {
		return BatchSummary{}, err
	}

	started := time.Now()
	res, err := sim.RunBatch(ctx, cfg, req.Trials, sim.BatchOptions{
		Workers:  req.Workers,
		Logger:   c.logger,
		Progress: req.Progress,
	})
	if err != nil {
		return BatchSummary{}, err
	}
	elapsed := time.Since(started)

	wins := make(map[string]int)
	for _, run := range res.Runs {
		if run.Winner != "" {
			wins[run.Winner]++
		}
	}

	record := model.BatchRecord{
		VersionedRecord: storage.Stamp(),
		ID:              uuid.NewString(),
		Scenario:        cfg.Name,
		Seed:            cfg.Seed,
		Trials:          res.Trials,
		Workers:         req.Workers,
		Wins:            wins,
		Valuations:      valuationRecords(res.Valuations),
		DurationMS:      elapsed.Milliseconds(),
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := c.store.SaveBatch(ctx, record); err != nil {
		return BatchSummary{}, err
	}
	batchDir, err := stats.WriteBatchArtifacts(c.reportsDir, record, scenario)
	if err != nil {
		return BatchSummary{}, err
	}
	if err := stats.AppendBatchIndex(c.reportsDir, stats.IndexEntry(record)); err != nil {
		return BatchSummary{}, err
	}

	c.logger.Info("batch finished",
		"batch_id", record.ID,
		"scenario", record.Scenario,
		"trials", record.Trials,
		"workers", record.Workers,
		"duration", elapsed,
	)

	return BatchSummary{
		BatchID:      record.ID,
		ArtifactsDir: filepath.Clean(batchDir),
		Result:       res,
		Wins:         wins,
		Duration:     elapsed,
	}, nil
}

// Batches lists recorded batches newest first.
func (c *Client) Batches(_ context.Context, req BatchesRequest) ([]BatchItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListBatchIndex(c.reportsDir)
	if err != nil {
		return nil, err
	}
	if req.Scenario != "" {
		kept := entries[:0]
		for _, e := range entries {
			if e.Scenario == req.Scenario {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]BatchItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, BatchItem{
			BatchID:      e.BatchID,
			CreatedAtUTC: e.CreatedAtUTC,
			Scenario:     e.Scenario,
			Trials:       e.Trials,
			Seed:         e.Seed,
			TopWinner:    e.TopWinner,
			BestCoop:     e.BestCoop,
		})
	}
	return out, nil
}

// GetBatch reads a batch from the store, falling back to its report
// artifacts for batches recorded by another process.
func (c *Client) GetBatch(ctx context.Context, req ShowRequest) (model.BatchRecord, error) {
	batchID, err := c.pickBatch(req.BatchID, req.Latest)
	if err != nil {
		return model.BatchRecord{}, err
	}

	record, ok, err := c.store.GetBatch(ctx, batchID)
	if err != nil {
		return model.BatchRecord{}, err
	}
	if ok {
		return record, nil
	}
	record, ok, err = stats.ReadBatchRecord(c.reportsDir, batchID)
	if err != nil {
		return model.BatchRecord{}, err
	}
	if !ok {
		return model.BatchRecord{}, fmt.Errorf("batch not found: %s", batchID)
	}
	return record, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	batchID, err := c.pickBatch(req.BatchID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportBatchArtifacts(c.reportsDir, batchID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{BatchID: batchID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) pickBatch(batchID string, latest bool) (string, error) {
	if batchID != "" && latest {
		return "", errors.New("use either batch id or latest")
	}
	if !latest {
		if batchID == "" {
			return "", errors.New("batch id or latest is required")
		}
		return batchID, nil
	}
	entries, err := stats.ListBatchIndex(c.reportsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no batches available")
	}
	return entries[0].BatchID, nil
}

func resolve(src ScenarioSource, seed *int64) (config.Scenario, sim.Config, error) {
	var scenario config.Scenario
	switch {
	case src.Scenario != nil:
		scenario = *src.Scenario
	case src.Path != "":
		loaded, err := config.Load(src.Path)
		if err != nil {
			return config.Scenario{}, sim.Config{}, err
		}
		scenario = loaded
	default:
		return config.Scenario{}, sim.Config{}, errors.New("scenario or scenario path is required")
	}
	if seed != nil {
		scenario.Seed = *seed
	}
	cfg, err := scenario.SimConfig()
	if err != nil {
		return config.Scenario{}, sim.Config{}, err
	}
	return scenario, cfg, nil
}

func teamOutcomes(teams []sim.TeamResult) []model.TeamOutcome {
	out := make([]model.TeamOutcome, 0, len(teams))
	for _, t := range teams {
		out = append(out, model.TeamOutcome{
			Name:       t.Name,
			Start:      t.Start,
			Active:     t.Active,
			Safe:       t.Safe,
			CapturedBy: t.CapturedBy,
		})
	}
	return out
}

func valuationRecords(vals []sim.ValuationResult) []model.ValuationRecord {
	out := make([]model.ValuationRecord, 0, len(vals))
	for _, v := range vals {
		out = append(out, model.ValuationRecord{
			Team:             v.Team,
			Name:             v.Name,
			Kind:             string(v.Kind),
			Cooperation:      v.Cooperation,
			Full:             v.Full,
			Partial:          v.Partial,
			FullSummary:      v.FullSummary,
			PartialSummary:   v.PartialSummary,
			CooperationValue: v.CooperationValue,
		})
	}
	return out
}
