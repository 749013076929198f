package simlog

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triathematician/blaisemath-sub005/internal/sim"
)

func chase() sim.Config {
	return sim.Config{
		Name:     "chase",
		StepTime: 0.5,
		Steps:    20,
		Pitch:    orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}},
		Teams: []sim.TeamConfig{
			{
				Name:    "pursuers",
				Size:    1,
				Agent:   sim.AgentConfig{SensorRange: 10, CommRange: 10, TopSpeed: 1},
				Start:   sim.StartConfig{Scheme: sim.StartSpecific, Points: []orb.Point{{0, 0}}},
				Tasks:   []sim.GeneratorConfig{{Kind: sim.GenSeek, Target: "evaders"}},
				Victory: &sim.VictoryConfig{Kind: sim.VictoryCaptured, Target: "evaders", GameEnding: true},
			},
			{
				Name:     "evaders",
				Size:     1,
				Start:    sim.StartConfig{Scheme: sim.StartSpecific, Points: []orb.Point{{3, 0}}},
				Captures: []sim.CaptureConfig{{Target: "pursuers", Distance: 1}},
			},
		},
	}
}

func run(t *testing.T, log sim.Log, mode sim.Mode) sim.RunResult {
	t.Helper()
	s, err := sim.New(chase(), sim.Options{Log: log, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	res, err := s.Run(context.Background(), mode)
	require.NoError(t, err)
	return res
}

func TestRecorderCapturesRun(t *testing.T) {
	rec := NewRecorder(true)
	res := run(t, rec, sim.ModeInteractive)

	require.True(t, res.Ended)
	captures := rec.EventsOf(sim.EventCapture)
	require.Len(t, captures, 1)
	assert.Equal(t, "pursuers/pursuers-1", captures[0].Subject)
	assert.Equal(t, "evaders/evaders-1", captures[0].Object)
	require.Len(t, rec.EventsOf(sim.EventVictory), 1)
	require.Len(t, rec.EventsOf(sim.EventEnd), 1)

	steps := rec.Steps()
	require.Len(t, steps, res.Steps)
	assert.Equal(t, 0, steps[0].Step)
	assert.Len(t, steps[0].Entries, 2)
	last := steps[len(steps)-1]
	assert.Equal(t, res.EndTime, last.Time)

	rec.Reset()
	assert.Empty(t, rec.Events())
	assert.Empty(t, rec.Steps())
}

func TestRecorderWithoutSnapshotsKeepsTimesOnly(t *testing.T) {
	rec := NewRecorder(false)
	run(t, rec, sim.ModeInteractive)
	for _, s := range rec.Steps() {
		assert.Nil(t, s.Entries)
	}
	assert.NotEmpty(t, rec.Steps())
}

func TestRecorderIsSilentInBatchMode(t *testing.T) {
	rec := NewRecorder(true)
	run(t, rec, sim.ModeBatch)
	assert.Empty(t, rec.Events())
	assert.Empty(t, rec.Steps())
}

func TestLoggerWritesEventRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.LogEvent(sim.Event{Kind: sim.EventCapture, Subject: "evaders-1", Object: "pursuers", Message: "captured", Time: 1.5})
	logger.LogEvent(sim.Event{Kind: sim.EventFault, Subject: "pursuers-1", Message: "non-finite heading"})

	out := buf.String()
	assert.Contains(t, out, "component=simulation")
	assert.Contains(t, out, "event=capture")
	assert.Contains(t, out, "subject=evaders-1")
	assert.Contains(t, out, "time=1.5")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "level=INFO")
	assert.Contains(t, lines[1], "level=WARN")
}

func TestLoggerStepsOnlyAtDebug(t *testing.T) {
	var info, debug bytes.Buffer
	run(t, NewLogger(slog.New(slog.NewTextHandler(&info, nil))), sim.ModeInteractive)
	run(t, NewLogger(slog.New(slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}))), sim.ModeInteractive)

	assert.NotContains(t, info.String(), "msg=step")
	assert.Contains(t, debug.String(), "msg=step")
	assert.Contains(t, info.String(), "event=end")
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewRecorder(false), NewRecorder(false)
	run(t, Multi{a, b}, sim.ModeInteractive)
	assert.Equal(t, a.Events(), b.Events())
	assert.Equal(t, len(a.Steps()), len(b.Steps()))
	assert.NotEmpty(t, a.Events())
}
