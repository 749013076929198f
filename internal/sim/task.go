package sim

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/triathematician/blaisemath-sub005/internal/geom"
)

type Goal int

const (
	GoalSeek Goal = iota
	GoalFlee
)

func (g Goal) String() string {
	if g == GoalFlee {
		return "flee"
	}
	return "seek"
}

// Target is either an agent, captured with the state it had when the task
// was generated, or a fixed point (Agent == NoAgent).
type Target struct {
	Agent    AgentID
	Position orb.Point
	Velocity orb.Point
}

func PointTarget(p orb.Point) Target {
	return Target{Agent: NoAgent, Position: p}
}

func agentTarget(a *Agent) Target {
	return Target{Agent: a.id, Position: a.position, Velocity: a.velocity}
}

type Task struct {
	Source string
	Owner  AgentID
	Target Target
	Weight float64
	Goal   Goal
}

type generator struct {
	name   string
	kind   GeneratorKind
	target *Team
	point  orb.Point
	weight float64
}

func newGenerator(owner string, cfg GeneratorConfig, target *Team) generator {
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%s:%s", owner, cfg.Kind)
		if target != nil {
			name += ":" + target.name
		}
	}
	weight := cfg.Weight
	if weight == 0 {
		weight = 1
	}
	return generator{name: name, kind: cfg.Kind, target: target, point: cfg.Point, weight: weight}
}

func (g *generator) task(owner *Agent, target Target, goal Goal, priority float64) Task {
	return Task{Source: g.name, Owner: owner.id, Target: target, Weight: g.weight * priority, Goal: goal}
}

// agentTasks runs a per-agent generator against the agent's own POV.
func (g *generator) agentTasks(a *Agent, table *DistanceTable, priority float64) {
	switch g.kind {
	case GenSeek, GenFlee:
		nearest := nearestInTeam(a.id, a.pov.sorted(), g.target, table)
		if nearest == nil {
			return
		}
		goal := GoalSeek
		if g.kind == GenFlee {
			goal = GoalFlee
		}
		a.addTask(g.task(a, agentTarget(nearest), goal, priority))
	case GenGoal:
		a.addTask(g.task(a, PointTarget(g.point), GoalSeek, priority))
	}
}

// controlTasks runs a team-wide generator on behalf of the control agent.
func (g *generator) controlTasks(team *Team, table *DistanceTable) {
	members := team.ActiveAgents()
	if len(members) == 0 {
		return
	}
	switch g.kind {
	case GenGreedy:
		g.greedy(team, members, table)
	case GenCohesion:
		center, ok := team.CenterOfMass()
		if !ok {
			return
		}
		for _, m := range members {
			m.addTask(g.task(m, PointTarget(center), GoalSeek, 1))
		}
	case GenGuard:
		aim := g.point
		threats := team.sharedPOV(g.target)
		if len(threats) > 0 {
			closest := threats[0]
			best := geom.Dist(g.point, closest.position)
			for _, t := range threats[1:] {
				if d := geom.Dist(g.point, t.position); d < best {
					closest, best = t, d
				}
			}
			aim = geom.Lerp(g.point, closest.position, 0.5)
		}
		for _, m := range members {
			m.addTask(g.task(m, PointTarget(aim), GoalSeek, 1))
		}
	}
}

// greedy pairs members with sensed targets, closest pair first. Members left
// over once every target is taken chase their nearest target.
func (g *generator) greedy(team *Team, members []*Agent, table *DistanceTable) {
	targets := team.sharedPOV(g.target)
	if len(targets) == 0 {
		return
	}
	type pair struct {
		m, t *Agent
		d    float64
	}
	pairs := make([]pair, 0, len(members)*len(targets))
	for _, m := range members {
		for _, t := range targets {
			pairs = append(pairs, pair{m: m, t: t, d: table.Distance(m.id, t.id)})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].d != pairs[j].d {
			return pairs[i].d < pairs[j].d
		}
		if pairs[i].m.id != pairs[j].m.id {
			return pairs[i].m.id < pairs[j].m.id
		}
		return pairs[i].t.id < pairs[j].t.id
	})

	assigned := make(map[AgentID]bool, len(members))
	taken := make(map[AgentID]bool, len(targets))
	for _, p := range pairs {
		if assigned[p.m.id] || taken[p.t.id] {
			continue
		}
		assigned[p.m.id] = true
		taken[p.t.id] = true
		p.m.addTask(g.task(p.m, agentTarget(p.t), GoalSeek, 1))
	}
	for _, p := range pairs {
		if assigned[p.m.id] {
			continue
		}
		assigned[p.m.id] = true
		p.m.addTask(g.task(p.m, agentTarget(p.t), GoalSeek, 1))
	}
}

// nearestInTeam returns the closest active candidate on team, ties broken by
// lower AgentID.
func nearestInTeam(from AgentID, candidates []AgentID, team *Team, table *DistanceTable) *Agent {
	var best *Agent
	bestDist := 0.0
	for _, id := range candidates {
		other := &team.arena.agents[id]
		if other.team != team || !other.active {
			continue
		}
		d := table.Distance(from, id)
		if best == nil || d < bestDist {
			best, bestDist = other, d
		}
	}
	return best
}
