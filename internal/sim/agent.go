package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/triathematician/blaisemath-sub005/internal/geom"
)

// AgentID indexes an agent in the simulation arena.
type AgentID int

// NoAgent marks a task target that is a fixed point rather than an agent.
const NoAgent AgentID = -1

type agentSet map[AgentID]struct{}

func (s agentSet) add(id AgentID) {
	s[id] = struct{}{}
}

func (s agentSet) has(id AgentID) bool {
	_, ok := s[id]
	return ok
}

func (s agentSet) clear() {
	for id := range s {
		delete(s, id)
	}
}

func (s agentSet) sorted() []AgentID {
	out := make([]AgentID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type Agent struct {
	id    AgentID
	name  string
	team  *Team
	arena *arena

	cfg        AgentConfig
	behavior   Behavior
	generators []generator

	position orb.Point
	pending  orb.Point
	velocity orb.Point
	active   bool
	removed  float64

	pov     agentSet
	commPOV agentSet
	tasks   []Task
}

func newAgent(id AgentID, name string, team *Team, a *arena, cfg AgentConfig) Agent {
	return Agent{
		id:       id,
		name:     name,
		team:     team,
		arena:    a,
		cfg:      cfg,
		behavior: resolveBehavior(cfg),
		pov:      make(agentSet),
		commPOV:  make(agentSet),
		removed:  math.NaN(),
	}
}

func (a *Agent) ID() AgentID                { return a.id }
func (a *Agent) Name() string               { return a.name }
func (a *Agent) Team() *Team                { return a.team }
func (a *Agent) Config() AgentConfig        { return a.cfg }
func (a *Agent) Position() orb.Point        { return a.position }
func (a *Agent) Velocity() orb.Point        { return a.velocity }
func (a *Agent) PendingMove() orb.Point     { return a.pending }
func (a *Agent) Active() bool               { return a.active }
func (a *Agent) POV() []AgentID             { return a.pov.sorted() }
func (a *Agent) CommPOV() []AgentID         { return a.commPOV.sorted() }
func (a *Agent) Tasks() []Task              { return append([]Task(nil), a.tasks...) }
func (a *Agent) Sees(id AgentID) bool       { return a.pov.has(id) }
func (a *Agent) View() AgentView            { return a.view() }
func (a *Agent) String() string             { return fmt.Sprintf("%s/%s", a.team.name, a.name) }
func (a *Agent) SetPosition(p orb.Point)    { a.position = p }
func (a *Agent) RemovedAt() (float64, bool) { return a.removed, !math.IsNaN(a.removed) }

func (a *Agent) view() AgentView {
	return AgentView{
		ID:         a.id,
		Name:       a.name,
		Position:   a.position,
		Velocity:   a.velocity,
		TopSpeed:   a.cfg.TopSpeed,
		LeadFactor: a.cfg.LeadFactor,
		Behavior:   a.behavior,
	}
}

func (a *Agent) reset(position orb.Point, active bool) {
	a.position = position
	a.pending = geom.Zero
	a.velocity = geom.Zero
	a.active = active
	a.removed = math.NaN()
	a.pov.clear()
	a.commPOV.clear()
	a.tasks = a.tasks[:0]
}

// GatherSensoryData replaces the POV with the agents inside sensor range.
func (a *Agent) GatherSensoryData(table *DistanceTable) {
	a.pov.clear()
	for _, id := range table.AgentsInRadius(a.id, a.cfg.SensorRange) {
		a.pov.add(id)
	}
}

// GenerateSensoryEvents pushes this agent's POV into the comm buffer of every
// active teammate within comm range. It does not change this agent.
func (a *Agent) GenerateSensoryEvents(team *Team, table *DistanceTable) {
	for _, id := range table.AgentsInRadiusOf(a.id, team.active, a.cfg.CommRange) {
		mate := &a.arena.agents[id]
		for seen := range a.pov {
			mate.commPOV.add(seen)
		}
	}
}

// FusePOV merges received data into the POV and empties the comm buffer.
func (a *Agent) FusePOV() {
	for id := range a.commPOV {
		if id != a.id {
			a.pov.add(id)
		}
	}
	a.commPOV.clear()
}

func (a *Agent) clearTasks() {
	a.tasks = a.tasks[:0]
}

func (a *Agent) addTask(task Task) {
	a.tasks = append(a.tasks, task)
}

// GenerateTasks appends the tasks of the agent's own generators, with weights
// scaled by priority.
func (a *Agent) GenerateTasks(team *Team, table *DistanceTable, priority float64) {
	for i := range a.generators {
		a.generators[i].agentTasks(a, table, priority)
	}
}

// PlanPath fuses the task list into the pending move for this step.
func (a *Agent) PlanPath(time, stepTime float64) {
	if len(a.tasks) == 0 {
		a.pending = geom.Zero
		return
	}
	dir := a.arena.fusion.Fuse(a.view(), a.tasks, time)
	if !geom.IsFinite(dir) {
		a.arena.logger.Warn("non-finite heading replaced by zero move",
			"agent", a.String(),
			"time", time,
			"tasks", len(a.tasks),
		)
		a.arena.sink().LogEvent(Event{
			Kind:     EventFault,
			Subject:  a.String(),
			Location: a.position,
			Message:  "non-finite heading",
			Time:     time,
		})
		a.pending = geom.Zero
		return
	}
	if m := geom.Mag(dir); m > 1 {
		dir = geom.Scale(dir, 1/m)
	}
	a.pending = geom.Scale(dir, a.cfg.TopSpeed*stepTime)
}

// Move commits the pending move. The committed velocity is what other agents
// observe when leading their targets.
func (a *Agent) Move(stepTime float64) {
	a.position = geom.Add(a.position, a.pending)
	if stepTime > 0 {
		a.velocity = geom.Scale(a.pending, 1/stepTime)
	}
	a.pending = geom.Zero
}

// deactivate takes the agent out of play for the rest of the run.
func (a *Agent) deactivate(time float64) {
	if !a.active {
		return
	}
	a.active = false
	a.removed = time
	a.pending = geom.Zero
	a.velocity = geom.Zero
}
