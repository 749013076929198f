package sim

import "fmt"

type Outcome int

const (
	Neither Outcome = iota
	FavorOwner
	FavorOpponent
)

func (o Outcome) String() string {
	switch o {
	case FavorOwner:
		return "favor_owner"
	case FavorOpponent:
		return "favor_opponent"
	default:
		return "neither"
	}
}

type VictoryCondition struct {
	owner      *Team
	target     *Team
	kind       VictoryKind
	threshold  float64
	gameEnding bool
	reported   Outcome
}

func newVictoryCondition(owner, target *Team, cfg VictoryConfig) *VictoryCondition {
	return &VictoryCondition{
		owner:      owner,
		target:     target,
		kind:       cfg.Kind,
		threshold:  cfg.Threshold,
		gameEnding: cfg.GameEnding,
	}
}

func (v *VictoryCondition) Owner() *Team      { return v.owner }
func (v *VictoryCondition) Target() *Team     { return v.target }
func (v *VictoryCondition) Kind() VictoryKind { return v.kind }
func (v *VictoryCondition) GameEnding() bool  { return v.gameEnding }

// Check evaluates the condition against the current team state. A decided
// outcome is logged on the step it changes, not on every step it holds.
func (v *VictoryCondition) Check(table *DistanceTable, log Log, time float64) Outcome {
	out := v.evaluate(time)
	if out == v.reported {
		return out
	}
	v.reported = out
	if out == Neither {
		return out
	}
	log.LogEvent(Event{
		Kind:    EventVictory,
		Subject: v.owner.name,
		Object:  v.targetName(),
		Message: fmt.Sprintf("%s condition on %s: %s", v.kind, v.owner.name, out),
		Time:    time,
	})
	return out
}

func (v *VictoryCondition) evaluate(time float64) Outcome {
	switch v.kind {
	case VictoryCaptured:
		need := countThreshold(v.threshold, len(v.target.start))
		if need > 0 && v.target.Captures(v.owner) >= need {
			return FavorOwner
		}
	case VictoryEliminated:
		if float64(v.owner.ActiveCount()) <= v.threshold {
			return FavorOpponent
		}
	case VictorySafe:
		need := countThreshold(v.threshold, len(v.owner.start))
		if need > 0 && v.owner.Safe() >= need {
			return FavorOwner
		}
	case VictorySurvive:
		if time >= v.threshold && v.owner.ActiveCount() > 0 {
			return FavorOwner
		}
	}
	return Neither
}

// Winner names the team favored by out, or "" when undecided or unknown.
func (v *VictoryCondition) Winner(out Outcome) string {
	switch out {
	case FavorOwner:
		return v.owner.name
	case FavorOpponent:
		return v.targetName()
	}
	return ""
}

func (v *VictoryCondition) targetName() string {
	if v.target == nil {
		return ""
	}
	return v.target.name
}

// countThreshold treats a non-positive threshold as "all of them".
func countThreshold(threshold float64, all int) int {
	if threshold <= 0 {
		return all
	}
	return int(threshold)
}
