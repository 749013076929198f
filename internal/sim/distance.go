package sim

import (
	"fmt"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const pointTolerance = 1e-9

// DistanceTable is the per-step snapshot of pairwise distances between the
// active agents. It is rebuilt by Recalculate and read-only until the next
// call; positions that change in between are not reflected.
type DistanceTable struct {
	arena *arena
	time  float64

	slot []int
	ids  []AgentID
	pos  []orb.Point
	dist []float64
	tree *rtreego.Rtree
}

type TableEntry struct {
	Agent    AgentID
	Name     string
	Team     string
	Position orb.Point
}

type indexedPoint struct {
	id   AgentID
	rect rtreego.Rect
}

func (p indexedPoint) Bounds() rtreego.Rect {
	return p.rect
}

func newDistanceTable(a *arena) *DistanceTable {
	return &DistanceTable{arena: a}
}

func (t *DistanceTable) Recalculate(time float64) {
	t.time = time
	agents := t.arena.agents

	if cap(t.slot) < len(agents) {
		t.slot = make([]int, len(agents))
	}
	t.slot = t.slot[:len(agents)]
	t.ids = t.ids[:0]
	t.pos = t.pos[:0]
	for i := range agents {
		t.slot[i] = -1
		if !agents[i].active {
			continue
		}
		t.slot[i] = len(t.ids)
		t.ids = append(t.ids, agents[i].id)
		t.pos = append(t.pos, agents[i].position)
	}

	n := len(t.ids)
	if cap(t.dist) < n*n {
		t.dist = make([]float64, n*n)
	}
	t.dist = t.dist[:n*n]
	spatials := make([]rtreego.Spatial, n)
	for i := 0; i < n; i++ {
		t.dist[i*n+i] = 0
		for j := i + 1; j < n; j++ {
			d := planar.Distance(t.pos[i], t.pos[j])
			t.dist[i*n+j] = d
			t.dist[j*n+i] = d
		}
		spatials[i] = indexedPoint{
			id:   t.ids[i],
			rect: rtreego.Point{t.pos[i][0], t.pos[i][1]}.ToRect(pointTolerance),
		}
	}
	t.tree = rtreego.NewTree(2, 4, 16, spatials...)
}

func (t *DistanceTable) Time() float64 {
	return t.time
}

func (t *DistanceTable) Len() int {
	return len(t.ids)
}

// Contains reports whether the agent was active at the last recalculation.
func (t *DistanceTable) Contains(id AgentID) bool {
	return int(id) >= 0 && int(id) < len(t.slot) && t.slot[id] >= 0
}

func (t *DistanceTable) row(id AgentID) int {
	if !t.Contains(id) {
		panic(fmt.Sprintf("sim: agent %d is not in the distance table at t=%g", id, t.time))
	}
	return t.slot[id]
}

func (t *DistanceTable) Distance(a, b AgentID) float64 {
	ra, rb := t.row(a), t.row(b)
	return t.dist[ra*len(t.ids)+rb]
}

func (t *DistanceTable) Position(id AgentID) orb.Point {
	return t.pos[t.row(id)]
}

// AgentsInRadius returns every other active agent, of any team, within radius
// of id, ordered by AgentID.
func (t *DistanceTable) AgentsInRadius(id AgentID, radius float64) []AgentID {
	r := t.row(id)
	if radius < 0 {
		return nil
	}
	hits := t.tree.SearchIntersect(rtreego.Point{t.pos[r][0], t.pos[r][1]}.ToRect(radius + pointTolerance))
	out := make([]AgentID, 0, len(hits))
	for _, hit := range hits {
		other := hit.(indexedPoint).id
		if other == id || !t.arena.agents[other].active {
			continue
		}
		if t.dist[r*len(t.ids)+t.slot[other]] <= radius {
			out = append(out, other)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AgentsInRadiusOf is AgentsInRadius restricted to candidates.
func (t *DistanceTable) AgentsInRadiusOf(id AgentID, candidates []AgentID, radius float64) []AgentID {
	r := t.row(id)
	if radius < 0 {
		return nil
	}
	out := make([]AgentID, 0, len(candidates))
	for _, other := range candidates {
		if other == id || !t.Contains(other) || !t.arena.agents[other].active {
			continue
		}
		if t.dist[r*len(t.ids)+t.slot[other]] <= radius {
			out = append(out, other)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *DistanceTable) Entries() []TableEntry {
	out := make([]TableEntry, 0, len(t.ids))
	for i, id := range t.ids {
		agent := &t.arena.agents[id]
		out = append(out, TableEntry{
			Agent:    id,
			Name:     agent.name,
			Team:     agent.team.name,
			Position: t.pos[i],
		})
	}
	return out
}
