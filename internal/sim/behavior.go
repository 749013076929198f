package sim

import (
	"github.com/paulmach/orb"

	"github.com/triathematician/blaisemath-sub005/internal/geom"
)

// AgentView is the read-only state a Behavior or Fusion sees.
type AgentView struct {
	ID         AgentID
	Name       string
	Position   orb.Point
	Velocity   orb.Point
	TopSpeed   float64
	LeadFactor float64
	Behavior   Behavior
}

// Behavior maps an agent and a target to a desired heading.
type Behavior interface {
	Direction(self AgentView, target Target, time float64) orb.Point
}

// Fusion combines the tasks of one agent into a single heading.
type Fusion interface {
	Fuse(self AgentView, tasks []Task, time float64) orb.Point
}

type BehaviorFunc func(self AgentView, target Target, time float64) orb.Point

func (f BehaviorFunc) Direction(self AgentView, target Target, time float64) orb.Point {
	return f(self, target, time)
}

type stationaryBehavior struct{}

func (stationaryBehavior) Direction(AgentView, Target, float64) orb.Point {
	return geom.Zero
}

type straightBehavior struct{}

func (straightBehavior) Direction(self AgentView, target Target, _ float64) orb.Point {
	return geom.Unit(geom.Sub(target.Position, self.Position))
}

// leadingBehavior aims at where the target will be after LeadFactor time
// units at its last observed velocity.
type leadingBehavior struct{}

func (leadingBehavior) Direction(self AgentView, target Target, _ float64) orb.Point {
	aim := geom.Add(target.Position, geom.Scale(target.Velocity, self.LeadFactor))
	return geom.Unit(geom.Sub(aim, self.Position))
}

func resolveBehavior(cfg AgentConfig) Behavior {
	if cfg.Custom != nil {
		return cfg.Custom
	}
	switch cfg.Behavior {
	case BehaviorStationary:
		return stationaryBehavior{}
	case BehaviorLeading:
		return leadingBehavior{}
	default:
		return straightBehavior{}
	}
}

// WeightedFusion sums the per-task headings by weight, reversing flee tasks,
// and normalizes the result. A non-finite sum is returned unchanged so the
// caller can detect it.
type WeightedFusion struct{}

func (WeightedFusion) Fuse(self AgentView, tasks []Task, time float64) orb.Point {
	behavior := self.Behavior
	if behavior == nil {
		behavior = straightBehavior{}
	}
	var sum orb.Point
	for _, task := range tasks {
		dir := behavior.Direction(self, task.Target, time)
		if task.Goal == GoalFlee {
			dir = geom.Scale(dir, -1)
		}
		sum = geom.Add(sum, geom.Scale(dir, task.Weight))
	}
	if !geom.IsFinite(sum) {
		return sum
	}
	return geom.Unit(sum)
}
