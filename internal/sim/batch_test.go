package sim

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cooperation pits three stationary pursuers against three stationary
// evaders, each pair within capture distance. Only the first pursuer plays in
// the partial run.
func cooperation() Config {
	return Config{
		Name:     "cooperation",
		StepTime: 0.1,
		Steps:    1,
		Pitch:    pitch(),
		Teams: []TeamConfig{
			{
				Name:  "pursuers",
				Size:  3,
				Agent: AgentConfig{SensorRange: 5, CommRange: 5},
				Start: at(orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{20, 0}),
				Valuations: []ValuationConfig{
					{Kind: ValueCaptures, Target: "evaders", Cooperation: true, Complement: []int{0}},
				},
			},
			{
				Name:     "evaders",
				Size:     3,
				Agent:    AgentConfig{SensorRange: 5, CommRange: 5},
				Start:    at(orb.Point{0.5, 0}, orb.Point{10.5, 0}, orb.Point{20.5, 0}),
				Captures: []CaptureConfig{{Target: "pursuers", Distance: 1}},
			},
		},
	}
}

func TestCooperationValueOfFullRoster(t *testing.T) {
	s := newSim(t, cooperation(), Options{})

	res, err := s.RunSeveral(context.Background(), 2)
	require.NoError(t, err)

	v, ok := res.Valuation("pursuers:captures:evaders")
	require.True(t, ok)
	assert.Equal(t, []float64{3, 3}, v.Full)
	assert.Equal(t, []float64{1, 1}, v.Partial)
	assert.Equal(t, 2.0, v.CooperationValue)
	assert.Equal(t, 3.0, v.FullSummary.Mean)
	assert.Equal(t, 1.0, v.PartialSummary.Mean)

	assert.Len(t, team(t, s, "pursuers").StartAgents(), 3, "full roster is restored after partial runs")
}

func TestSingleTrialMatchesDirectRun(t *testing.T) {
	direct := newSim(t, melee(), Options{})
	run, err := direct.Run(context.Background(), ModeBatch)
	require.NoError(t, err)
	values := make([]float64, 0)
	for _, v := range direct.Valuations() {
		values = append(values, v.Value(run))
	}

	batched := newSim(t, melee(), Options{})
	res, err := batched.RunSeveral(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, res.Runs, 1)
	assert.Equal(t, run, res.Runs[0])
	for j, v := range res.Valuations {
		assert.Equal(t, values[j], v.Full[0], v.Name)
	}
}

func TestRunBatchIsIndependentOfWorkerCount(t *testing.T) {
	ctx := context.Background()
	serial := newSim(t, melee(), Options{})
	want, err := serial.RunSeveral(ctx, 6)
	require.NoError(t, err)

	for _, workers := range []int{1, 4} {
		got, err := RunBatch(ctx, melee(), 6, BatchOptions{Workers: workers, Logger: quietLogger()})
		require.NoError(t, err)
		assert.Equal(t, want, got, "workers=%d", workers)
	}
}

func TestRunBatchReportsProgressAndBatchOnce(t *testing.T) {
	var calls, batches atomic.Int32
	log := &eventLog{}
	res, err := RunBatch(context.Background(), chase(), 5, BatchOptions{
		Workers: 3,
		Log:     log,
		Logger:  quietLogger(),
		Observer: ObserverFuncs{
			OnStep:  func(StepInfo) { t.Error("step notification in batch mode") },
			OnEnd:   func(RunResult) { t.Error("run notification in batch mode") },
			OnBatch: func(BatchResult) { batches.Add(1) },
		},
		Progress: func(done, total int) {
			calls.Add(1)
			assert.Equal(t, 5, total)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Trials)
	assert.EqualValues(t, 5, calls.Load())
	assert.EqualValues(t, 1, batches.Load())
	assert.Empty(t, log.events)
	assert.Zero(t, log.steps)
}

func TestRunBatchRejectsNegativeTrials(t *testing.T) {
	_, err := RunBatch(context.Background(), chase(), -1, BatchOptions{Logger: quietLogger()})
	assert.Error(t, err)

	s := newSim(t, chase(), Options{})
	_, err = s.RunSeveral(context.Background(), -1)
	assert.Error(t, err)
}

func TestRunBatchStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunBatch(ctx, melee(), 4, BatchOptions{Workers: 2, Logger: quietLogger()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRosterRestoresOnError(t *testing.T) {
	s := newSim(t, lineUp(), Options{})
	require.NoError(t, s.InitStateVariables())
	pursuers := team(t, s, "pursuers")

	boom := errors.New("boom")
	err := s.withRoster(pursuers, []AgentID{1}, func() error {
		assert.Len(t, pursuers.StartAgents(), 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, pursuers.StartAgents(), 3)
}
