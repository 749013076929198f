package sim

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func controlScenario(control GeneratorConfig, pursuers []orb.Point, evaders []orb.Point) Config {
	return Config{
		StepTime: 1,
		Steps:    1,
		Pitch:    pitch(),
		Teams: []TeamConfig{
			{
				Name:    "pursuers",
				Size:    len(pursuers),
				Agent:   AgentConfig{SensorRange: 30, CommRange: 30, TopSpeed: 1},
				Start:   at(pursuers...),
				Control: []GeneratorConfig{control},
			},
			{
				Name:  "evaders",
				Size:  len(evaders),
				Agent: AgentConfig{SensorRange: 30, CommRange: 30},
				Start: at(evaders...),
			},
		},
	}
}

func targetsOf(a *Agent) []AgentID {
	var out []AgentID
	for _, task := range a.Tasks() {
		out = append(out, task.Target.Agent)
	}
	return out
}

func TestGreedyPairsClosestFirst(t *testing.T) {
	cfg := controlScenario(
		GeneratorConfig{Kind: GenGreedy, Target: "evaders"},
		[]orb.Point{{0, 0}, {10, 0}},
		[]orb.Point{{9, 0}, {1, 0}},
	)
	s := newSim(t, cfg, Options{})
	require.NoError(t, s.InitStateVariables())
	sense(s, 0)
	team(t, s, "pursuers").AssignTasks(s.Table())

	assert.Equal(t, []AgentID{3}, targetsOf(s.Agent(0)))
	assert.Equal(t, []AgentID{2}, targetsOf(s.Agent(1)))
	assert.Equal(t, "pursuers:greedy:evaders", s.Agent(0).Tasks()[0].Source)
}

func TestGreedyLeftoverChasesNearest(t *testing.T) {
	cfg := controlScenario(
		GeneratorConfig{Kind: GenGreedy, Target: "evaders", Weight: 2},
		[]orb.Point{{0, 0}, {1, 0}, {8, 0}},
		[]orb.Point{{0, 1}},
	)
	s := newSim(t, cfg, Options{})
	require.NoError(t, s.InitStateVariables())
	sense(s, 0)
	team(t, s, "pursuers").AssignTasks(s.Table())

	for i := 0; i < 3; i++ {
		assert.Equal(t, []AgentID{3}, targetsOf(s.Agent(AgentID(i))), "pursuer %d", i)
		assert.Equal(t, 2.0, s.Agent(AgentID(i)).Tasks()[0].Weight)
	}
}

func TestGreedyWithoutSightAssignsNothing(t *testing.T) {
	cfg := controlScenario(
		GeneratorConfig{Kind: GenGreedy, Target: "evaders"},
		[]orb.Point{{0, 0}},
		[]orb.Point{{45, 45}},
	)
	s := newSim(t, cfg, Options{})
	require.NoError(t, s.InitStateVariables())
	sense(s, 0)
	team(t, s, "pursuers").AssignTasks(s.Table())

	assert.Empty(t, s.Agent(0).Tasks())
}

func TestCohesionSeeksCenterOfMass(t *testing.T) {
	cfg := controlScenario(
		GeneratorConfig{Kind: GenCohesion},
		[]orb.Point{{0, 0}, {2, 2}},
		nil,
	)
	s := newSim(t, cfg, Options{})
	require.NoError(t, s.InitStateVariables())
	sense(s, 0)
	team(t, s, "pursuers").AssignTasks(s.Table())

	for _, a := range team(t, s, "pursuers").ActiveAgents() {
		require.Len(t, a.Tasks(), 1)
		assert.Equal(t, NoAgent, a.Tasks()[0].Target.Agent)
		assert.Equal(t, orb.Point{1, 1}, a.Tasks()[0].Target.Position)
	}
}

func TestGuardHoldsMidpointToNearestThreat(t *testing.T) {
	cfg := controlScenario(
		GeneratorConfig{Kind: GenGuard, Target: "evaders", Point: orb.Point{0, 0}},
		[]orb.Point{{1, 1}},
		[]orb.Point{{4, 0}, {0, 10}},
	)
	s := newSim(t, cfg, Options{})
	require.NoError(t, s.InitStateVariables())
	sense(s, 0)
	team(t, s, "pursuers").AssignTasks(s.Table())

	tasks := s.Agent(0).Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, orb.Point{2, 0}, tasks[0].Target.Position)
}

func TestControlTasksComeBeforeAgentTasks(t *testing.T) {
	cfg := controlScenario(
		GeneratorConfig{Kind: GenCohesion},
		[]orb.Point{{0, 0}},
		[]orb.Point{{3, 0}},
	)
	cfg.Teams[0].Tasks = []GeneratorConfig{{Kind: GenGoal, Point: orb.Point{5, 5}}}
	s := newSim(t, cfg, Options{})
	require.NoError(t, s.InitStateVariables())
	sense(s, 0)
	pursuers := team(t, s, "pursuers")

	pursuers.AssignTasks(s.Table())
	pursuers.AssignTasks(s.Table())
	tasks := s.Agent(0).Tasks()
	require.Len(t, tasks, 2, "tasks are rebuilt, not accumulated")
	assert.Equal(t, "pursuers:cohesion", tasks[0].Source)
	assert.Equal(t, "pursuers:goal", tasks[1].Source)
	assert.Equal(t, orb.Point{5, 5}, tasks[1].Target.Position)
}

func TestCenterOfMass(t *testing.T) {
	cfg := controlScenario(
		GeneratorConfig{Kind: GenCohesion},
		[]orb.Point{{0, 0}, {2, 2}},
		nil,
	)
	s := newSim(t, cfg, Options{})
	require.NoError(t, s.InitStateVariables())
	pursuers := team(t, s, "pursuers")

	center, ok := pursuers.CenterOfMass()
	require.True(t, ok)
	assert.Equal(t, orb.Point{1, 1}, center)

	_, ok = team(t, s, "evaders").CenterOfMass()
	assert.False(t, ok, "no active agents")

	for _, a := range pursuers.ActiveAgents() {
		pursuers.Deactivate(a, 0)
	}
	_, ok = pursuers.CenterOfMass()
	assert.False(t, ok)
}

func TestResetRestoresRoster(t *testing.T) {
	s := newSim(t, lineUp(), Options{})
	_, err := s.Run(t.Context(), ModeBatch)
	require.NoError(t, err)
	evaders := team(t, s, "evaders")
	require.Equal(t, 2, evaders.ActiveCount())

	require.NoError(t, s.InitStateVariables())
	assert.Equal(t, 3, evaders.ActiveCount())
	assert.Zero(t, evaders.Captures(team(t, s, "pursuers")))
	assert.True(t, s.Agent(3).Active())
	assert.Equal(t, orb.Point{0.5, 0}, s.Agent(3).Position())
}

func TestGeneratorWeightDefaultsToOne(t *testing.T) {
	cfg := controlScenario(
		GeneratorConfig{Kind: GenGreedy, Target: "evaders"},
		[]orb.Point{{0, 0}},
		[]orb.Point{{0, 1}},
	)
	s := newSim(t, cfg, Options{})
	require.NoError(t, s.InitStateVariables())
	sense(s, 0)
	team(t, s, "pursuers").AssignTasks(s.Table())

	require.Len(t, s.Agent(0).Tasks(), 1)
	assert.Equal(t, 1.0, s.Agent(0).Tasks()[0].Weight)
}

func TestDeactivateIgnoresOtherTeams(t *testing.T) {
	s := newSim(t, lineUp(), Options{})
	require.NoError(t, s.InitStateVariables())
	pursuers := team(t, s, "pursuers")
	evaders := team(t, s, "evaders")

	evaders.Deactivate(s.Agent(0), 1)
	assert.True(t, s.Agent(0).Active())
	assert.Equal(t, 3, pursuers.ActiveCount())
	assert.Equal(t, 3, evaders.ActiveCount())

	pursuers.Deactivate(s.Agent(0), 1)
	assert.False(t, s.Agent(0).Active())
	assert.Equal(t, 2, pursuers.ActiveCount())
}
