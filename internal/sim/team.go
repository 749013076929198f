package sim

import (
	"sync"

	"github.com/paulmach/orb"

	"github.com/triathematician/blaisemath-sub005/internal/geom"
)

type captureRecord struct {
	agent AgentID
	by    *Team
	time  float64
}

// Team owns a fixed roster of agents. start and active are ordered subsets of
// agents; active only shrinks during a run.
type Team struct {
	index int
	name  string
	cfg   TeamConfig
	arena *arena

	agents []AgentID
	start  []AgentID
	active []AgentID

	captures   map[*Team]int
	captureLog []captureRecord

	control    []generator
	conditions []*CaptureCondition
	victory    *VictoryCondition
	valuations []*Valuation
}

func (t *Team) Name() string       { return t.name }
func (t *Team) Config() TeamConfig { return t.cfg }
func (t *Team) Size() int          { return len(t.agents) }
func (t *Team) ActiveCount() int   { return len(t.active) }

func (t *Team) Agents() []*Agent       { return t.resolve(t.agents) }
func (t *Team) StartAgents() []*Agent  { return t.resolve(t.start) }
func (t *Team) ActiveAgents() []*Agent { return t.resolve(t.active) }

func (t *Team) CaptureConditions() []*CaptureCondition { return t.conditions }
func (t *Team) VictoryCondition() *VictoryCondition    { return t.victory }
func (t *Team) Valuations() []*Valuation               { return t.valuations }

func (t *Team) resolve(ids []AgentID) []*Agent {
	out := make([]*Agent, len(ids))
	for i, id := range ids {
		out[i] = &t.arena.agents[id]
	}
	return out
}

// Captures reports how many of this team's agents were removed by the given
// team. Passing the team itself reports agents that reached safety.
func (t *Team) Captures(by *Team) int {
	return t.captures[by]
}

func (t *Team) Safe() int {
	return t.captures[t]
}

// CenterOfMass averages the active agents' positions; ok is false when no
// agent is active.
func (t *Team) CenterOfMass() (orb.Point, bool) {
	points := make([]orb.Point, 0, len(t.active))
	for _, id := range t.active {
		points = append(points, t.arena.agents[id].position)
	}
	return geom.Centroid(points)
}

func (t *Team) reset(positions []orb.Point) {
	inStart := make(map[AgentID]bool, len(t.start))
	for _, id := range t.start {
		inStart[id] = true
	}
	for _, id := range t.agents {
		t.arena.agents[id].reset(positions[id], inStart[id])
	}
	t.active = append(t.active[:0], t.start...)
	t.captures = make(map[*Team]int)
	t.captureLog = t.captureLog[:0]
	if t.victory != nil {
		t.victory.reported = Neither
	}
}

// Deactivate removes agent from play. Agents of other teams are ignored.
// Capture bookkeeping belongs to the caller.
func (t *Team) Deactivate(agent *Agent, time float64) {
	if agent.team != t {
		return
	}
	agent.deactivate(time)
	for i, id := range t.active {
		if id == agent.id {
			t.active = append(t.active[:i], t.active[i+1:]...)
			return
		}
	}
}

func (t *Team) recordCapture(agent *Agent, by *Team, time float64) {
	t.captures[by]++
	t.captureLog = append(t.captureLog, captureRecord{agent: agent.id, by: by, time: time})
}

// sharedPOV is the union of the active members' POV restricted to active
// agents of target, ordered by AgentID.
func (t *Team) sharedPOV(target *Team) []*Agent {
	if target == nil {
		return nil
	}
	seen := make(agentSet)
	for _, id := range t.active {
		for other := range t.arena.agents[id].pov {
			seen.add(other)
		}
	}
	out := make([]*Agent, 0, len(seen))
	for _, id := range seen.sorted() {
		other := &t.arena.agents[id]
		if other.team == target && other.active {
			out = append(out, other)
		}
	}
	return out
}

// forEachActive applies fn to every active agent, one goroutine per agent
// when the simulation runs in parallel mode.
func (t *Team) forEachActive(fn func(a *Agent)) {
	agents := t.ActiveAgents()
	if !t.arena.parallel || len(agents) < 2 {
		for _, a := range agents {
			fn(a)
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(agents))
	for _, a := range agents {
		go func(a *Agent) {
			defer wg.Done()
			fn(a)
		}(a)
	}
	wg.Wait()
}

func (t *Team) GatherSensoryData(table *DistanceTable) {
	t.forEachActive(func(a *Agent) { a.GatherSensoryData(table) })
}

// CommunicateSensoryData always runs sequentially: agents write into each
// other's comm buffers.
func (t *Team) CommunicateSensoryData(table *DistanceTable) {
	for _, a := range t.ActiveAgents() {
		a.GenerateSensoryEvents(t, table)
	}
}

func (t *Team) FuseAgentPOV() {
	t.forEachActive(func(a *Agent) { a.FusePOV() })
}

// AssignTasks rebuilds every active agent's task list: control agent tasks
// first, then each agent's own.
func (t *Team) AssignTasks(table *DistanceTable) {
	for _, a := range t.ActiveAgents() {
		a.clearTasks()
	}
	for i := range t.control {
		t.control[i].controlTasks(t, table)
	}
	t.forEachActive(func(a *Agent) { a.GenerateTasks(t, table, 1) })
}

func (t *Team) PlanPaths(time, stepTime float64) {
	t.forEachActive(func(a *Agent) { a.PlanPath(time, stepTime) })
}

func (t *Team) Move(stepTime float64) {
	t.forEachActive(func(a *Agent) { a.Move(stepTime) })
}
