package sim

import (
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pitch() orb.Bound {
	return orb.Bound{Min: orb.Point{-50, -50}, Max: orb.Point{50, 50}}
}

func at(points ...orb.Point) StartConfig {
	return StartConfig{Scheme: StartSpecific, Points: points}
}

// lineUp is three stationary pursuers facing three stationary evaders, the
// first pair 0.5 apart and the others far out of capture range.
func lineUp() Config {
	return Config{
		Name:     "3v3",
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
					{Kind: ValueCaptures, Target: "evaders"},
				},
			},
			{
				Name:     "evaders",
				Size:     3,
				Agent:    AgentConfig{SensorRange: 5, CommRange: 5},
				Start:    at(orb.Point{0.5, 0}, orb.Point{10, 5}, orb.Point{20, 5}),
				Captures: []CaptureConfig{{Target: "pursuers", Distance: 1}},
			},
		},
	}
}

// chase is one pursuer heading straight at a stationary evader three units
// away, with capture at distance one.
func chase() Config {
	return Config{
		Name:     "chase",
		StepTime: 0.5,
		Steps:    100,
		Pitch:    pitch(),
		Teams: []TeamConfig{
			{
				Name:    "pursuers",
				Size:    1,
				Agent:   AgentConfig{SensorRange: 10, CommRange: 10, TopSpeed: 1},
				Start:   at(orb.Point{0, 0}),
				Tasks:   []GeneratorConfig{{Kind: GenSeek, Target: "evaders"}},
				Victory: &VictoryConfig{Kind: VictoryCaptured, Target: "evaders", GameEnding: true},
				Valuations: []ValuationConfig{
					{Kind: ValueCaptureTime, Target: "evaders"},
					{Kind: ValueVictory},
				},
			},
			{
				Name:     "evaders",
				Size:     1,
				Agent:    AgentConfig{SensorRange: 10, CommRange: 10},
				Start:    at(orb.Point{3, 0}),
				Captures: []CaptureConfig{{Target: "pursuers", Distance: 1}},
			},
		},
	}
}

// melee is a randomized scenario used for batch and determinism checks.
func melee() Config {
	return Config{
		Name:     "melee",
		StepTime: 0.1,
		Steps:    60,
		Pitch:    orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}},
		Seed:     42,
		Teams: []TeamConfig{
			{
				Name:    "pursuers",
				Size:    3,
				Agent:   AgentConfig{SensorRange: 6, CommRange: 8, TopSpeed: 2, LeadFactor: 0.5, Behavior: BehaviorLeading},
				Start:   StartConfig{Scheme: StartOffense},
				Control: []GeneratorConfig{{Kind: GenGreedy, Target: "evaders"}},
				Victory: &VictoryConfig{Kind: VictoryCaptured, Target: "evaders", GameEnding: true},
				Valuations: []ValuationConfig{
					{Kind: ValueCaptures, Target: "evaders", Cooperation: true, Complement: []int{0, 1}},
					{Kind: ValueVictory},
				},
			},
			{
				Name:     "evaders",
				Size:     4,
				Agent:    AgentConfig{SensorRange: 4, CommRange: 4, TopSpeed: 1.5},
				Start:    StartConfig{Scheme: StartDefense},
				Tasks:    []GeneratorConfig{{Kind: GenFlee, Target: "pursuers"}},
				Captures: []CaptureConfig{{Target: "pursuers", Distance: 0.5}},
				Valuations: []ValuationConfig{
					{Kind: ValueRemaining},
				},
			},
		},
	}
}

func newSim(t *testing.T, cfg Config, opts Options) *Simulation {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	s, err := New(cfg, opts)
	require.NoError(t, err)
	return s
}

func team(t *testing.T, s *Simulation, name string) *Team {
	t.Helper()
	tm, ok := s.Team(name)
	require.True(t, ok, "team %s", name)
	return tm
}

// sense runs the sensing phases of one step without moving anyone.
func sense(s *Simulation, time float64) {
	s.Table().Recalculate(time)
	for _, tm := range s.Teams() {
		tm.GatherSensoryData(s.Table())
		tm.CommunicateSensoryData(s.Table())
		tm.FuseAgentPOV()
	}
}
