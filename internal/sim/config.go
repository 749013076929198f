package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/paulmach/orb"

	"github.com/triathematician/blaisemath-sub005/internal/geom"
)

var ErrInvalidConfig = errors.New("invalid simulation config")

type BehaviorKind string

const (
	BehaviorStationary BehaviorKind = "stationary"
	BehaviorStraight   BehaviorKind = "straight"
	BehaviorLeading    BehaviorKind = "leading"
)

type StartScheme string

const (
	StartZero     StartScheme = "zero"
	StartRandom   StartScheme = "random"
	StartLine     StartScheme = "line"
	StartCircle   StartScheme = "circle"
	StartArc      StartScheme = "arc"
	StartSpecific StartScheme = "specific"
	StartSideline StartScheme = "sideline"
	StartEndzone  StartScheme = "endzone"
	StartOffense  StartScheme = "offense"
	StartDefense  StartScheme = "defense"
	StartCustom   StartScheme = "custom"
)

type GeneratorKind string

const (
	GenSeek GeneratorKind = "seek"
	GenFlee GeneratorKind = "flee"
	GenGoal GeneratorKind = "goal"

	// control agent generators
	GenGreedy   GeneratorKind = "greedy"
	GenCohesion GeneratorKind = "cohesion"
	GenGuard    GeneratorKind = "guard"
)

type CapturePolicy string

const (
	CaptureRemove     CapturePolicy = "remove"
	CaptureRemoveBoth CapturePolicy = "remove_both"
	CaptureSafety     CapturePolicy = "safety"
)

type VictoryKind string

const (
	VictoryCaptured   VictoryKind = "captured"
	VictoryEliminated VictoryKind = "eliminated"
	VictorySafe       VictoryKind = "safe"
	VictorySurvive    VictoryKind = "survive"
)

type ValuationKind string

const (
	ValueCaptures    ValuationKind = "captures"
	ValueSafe        ValuationKind = "safe"
	ValueRemaining   ValuationKind = "remaining"
	ValueCaptureTime ValuationKind = "capture_time"
	ValueVictory     ValuationKind = "victory"
)

// CustomStart places agent i of n for the custom start scheme.
type CustomStart func(i, n int, pitch orb.Bound, rng *rand.Rand) orb.Point

type StartConfig struct {
	Scheme   StartScheme
	From     orb.Point
	To       orb.Point
	Center   orb.Point
	Radius   float64
	ArcStart float64
	ArcEnd   float64
	Points   []orb.Point
	Custom   CustomStart
}

type AgentConfig struct {
	Name        string
	SensorRange float64
	CommRange   float64
	TopSpeed    float64
	LeadFactor  float64
	Behavior    BehaviorKind
	// Custom replaces the built-in behavior when set.
	Custom Behavior
}

type GeneratorConfig struct {
	Name   string
	Kind   GeneratorKind
	Target string
	Point  orb.Point
	// Weight scales the generated task weights; 0 means the default of 1.
	Weight float64
}

type CaptureConfig struct {
	Target   string
	Distance float64
	Policy   CapturePolicy
}

type VictoryConfig struct {
	Kind       VictoryKind
	Target     string
	Threshold  float64
	GameEnding bool
}

type ValuationConfig struct {
	Name        string
	Kind        ValuationKind
	Target      string
	Threshold   float64
	Cooperation bool
	// Complement lists the roster indices of the owning team that take part
	// in the partial run of a cooperation-testing valuation.
	Complement []int
}

type TeamConfig struct {
	Name string
	Size int
	// Agent holds team-wide defaults; entries of Agents override non-zero fields.
	Agent      AgentConfig
	Agents     []AgentConfig
	Start      StartConfig
	Tasks      []GeneratorConfig
	Control    []GeneratorConfig
	Captures   []CaptureConfig
	Victory    *VictoryConfig
	Valuations []ValuationConfig
}

type Config struct {
	Name     string
	StepTime float64
	Steps    int
	MaxSteps int
	Pitch    orb.Bound
	Seed     int64
	Parallel bool
	Teams    []TeamConfig
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate rejects configurations that cannot produce a well-formed run.
func Validate(cfg Config) error {
	if len(cfg.Teams) == 0 {
		return invalidf("at least one team is required")
	}
	if !(cfg.StepTime > 0) || math.IsInf(cfg.StepTime, 0) {
		return invalidf("step time must be > 0, got %v", cfg.StepTime)
	}
	if cfg.Steps < 0 {
		return invalidf("steps must be >= 0, got %d", cfg.Steps)
	}
	if cfg.MaxSteps < 0 {
		return invalidf("max steps must be >= 0, got %d", cfg.MaxSteps)
	}
	if cfg.Pitch.Max[0] < cfg.Pitch.Min[0] || cfg.Pitch.Max[1] < cfg.Pitch.Min[1] {
		return invalidf("pitch max %v is below min %v", cfg.Pitch.Max, cfg.Pitch.Min)
	}

	names := make(map[string]TeamConfig, len(cfg.Teams))
	for i, team := range cfg.Teams {
		if team.Name == "" {
			return invalidf("team %d: name is required", i)
		}
		if _, exists := names[team.Name]; exists {
			return invalidf("team %q: duplicate name", team.Name)
		}
		names[team.Name] = team
	}

	for _, team := range cfg.Teams {
		if err := validateTeam(team, names); err != nil {
			return err
		}
	}
	return nil
}

func validateTeam(team TeamConfig, teams map[string]TeamConfig) error {
	if team.Size < 0 {
		return invalidf("team %q: size must be >= 0, got %d", team.Name, team.Size)
	}
	if len(team.Agents) != 0 && len(team.Agents) != team.Size {
		return invalidf("team %q: %d agent entries for declared size %d", team.Name, len(team.Agents), team.Size)
	}
	if err := validateAgent(team.Name, "defaults", team.Agent); err != nil {
		return err
	}
	for i, agent := range team.Agents {
		if err := validateAgent(team.Name, fmt.Sprintf("agent %d", i), agent); err != nil {
			return err
		}
	}
	if err := validateStart(team); err != nil {
		return err
	}

	for i, gen := range team.Tasks {
		switch gen.Kind {
		case GenSeek, GenFlee, GenGoal:
		default:
			return invalidf("team %q: task generator %d: unsupported kind %q", team.Name, i, gen.Kind)
		}
		if err := validateGenerator(team.Name, i, gen, teams); err != nil {
			return err
		}
	}
	for i, gen := range team.Control {
		switch gen.Kind {
		case GenGreedy, GenCohesion, GenGuard:
		default:
			return invalidf("team %q: control generator %d: unsupported kind %q", team.Name, i, gen.Kind)
		}
		if err := validateGenerator(team.Name, i, gen, teams); err != nil {
			return err
		}
	}

	for i, capture := range team.Captures {
		if _, ok := teams[capture.Target]; !ok {
			return invalidf("team %q: capture condition %d: unknown target team %q", team.Name, i, capture.Target)
		}
		if capture.Target == team.Name {
			return invalidf("team %q: capture condition %d: target must be another team", team.Name, i)
		}
		if capture.Distance < 0 || math.IsNaN(capture.Distance) {
			return invalidf("team %q: capture condition %d: distance must be >= 0", team.Name, i)
		}
		switch capture.Policy {
		case "", CaptureRemove, CaptureRemoveBoth, CaptureSafety:
		default:
			return invalidf("team %q: capture condition %d: unsupported policy %q", team.Name, i, capture.Policy)
		}
	}

	if v := team.Victory; v != nil {
		switch v.Kind {
		case VictoryCaptured:
			if v.Target == "" {
				return invalidf("team %q: victory condition %q requires a target", team.Name, v.Kind)
			}
		case VictoryEliminated, VictorySafe, VictorySurvive:
		default:
			return invalidf("team %q: victory condition: unsupported kind %q", team.Name, v.Kind)
		}
		if v.Target != "" {
			if _, ok := teams[v.Target]; !ok {
				return invalidf("team %q: victory condition: unknown target team %q", team.Name, v.Target)
			}
		}
		if math.IsNaN(v.Threshold) || math.IsInf(v.Threshold, 0) {
			return invalidf("team %q: victory condition: threshold must be finite", team.Name)
		}
		if (v.Kind == VictoryCaptured || v.Kind == VictorySafe) && !isCount(v.Threshold) {
			return invalidf("team %q: victory condition %q: threshold %v is not a whole agent count", team.Name, v.Kind, v.Threshold)
		}
	}

	seen := make(map[string]bool, len(team.Valuations))
	for i, val := range team.Valuations {
		switch val.Kind {
		case ValueCaptures, ValueCaptureTime:
			if val.Target == "" {
				return invalidf("team %q: valuation %d: kind %q requires a target", team.Name, i, val.Kind)
			}
		case ValueSafe, ValueRemaining, ValueVictory:
		default:
			return invalidf("team %q: valuation %d: unsupported kind %q", team.Name, i, val.Kind)
		}
		if val.Target != "" {
			if _, ok := teams[val.Target]; !ok {
				return invalidf("team %q: valuation %d: unknown target team %q", team.Name, i, val.Target)
			}
		}
		name := valuationName(team.Name, val)
		if val.Kind == ValueCaptureTime && !isCount(val.Threshold) {
			return invalidf("team %q: valuation %q: threshold %v is not a whole agent count", team.Name, name, val.Threshold)
		}
		if seen[name] {
			return invalidf("team %q: duplicate valuation %q", team.Name, name)
		}
		seen[name] = true
		if !val.Cooperation && len(val.Complement) > 0 {
			return invalidf("team %q: valuation %q: complement set without cooperation testing", team.Name, name)
		}
		used := make(map[int]bool, len(val.Complement))
		for _, idx := range val.Complement {
			if idx < 0 || idx >= team.Size {
				return invalidf("team %q: valuation %q: complement index %d out of range [0,%d)", team.Name, name, idx, team.Size)
			}
			if used[idx] {
				return invalidf("team %q: valuation %q: duplicate complement index %d", team.Name, name, idx)
			}
			used[idx] = true
		}
	}
	return nil
}

func validateAgent(team, label string, agent AgentConfig) error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"sensor range", agent.SensorRange},
		{"comm range", agent.CommRange},
		{"top speed", agent.TopSpeed},
		{"lead factor", agent.LeadFactor},
	} {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return invalidf("team %q: %s: %s must be a finite value >= 0", team, label, f.name)
		}
	}
	switch agent.Behavior {
	case "", BehaviorStationary, BehaviorStraight, BehaviorLeading:
	default:
		return invalidf("team %q: %s: unsupported behavior %q", team, label, agent.Behavior)
	}
	return nil
}

func validateStart(team TeamConfig) error {
	start := team.Start
	switch start.Scheme {
	case "", StartZero, StartRandom, StartLine, StartSideline, StartEndzone, StartOffense, StartDefense:
	case StartCircle, StartArc:
		if start.Radius < 0 {
			return invalidf("team %q: start radius must be >= 0", team.Name)
		}
	case StartSpecific:
		if len(start.Points) != team.Size {
			return invalidf("team %q: %d specific start points for declared size %d", team.Name, len(start.Points), team.Size)
		}
		for i, p := range start.Points {
			if !geom.IsFinite(p) {
				return invalidf("team %q: specific start point %d is not finite", team.Name, i)
			}
		}
	case StartCustom:
		if start.Custom == nil {
			return invalidf("team %q: custom start scheme without a placement function", team.Name)
		}
	default:
		return invalidf("team %q: unsupported start scheme %q", team.Name, start.Scheme)
	}
	return nil
}

func validateGenerator(team string, i int, gen GeneratorConfig, teams map[string]TeamConfig) error {
	switch gen.Kind {
	case GenSeek, GenFlee, GenGreedy, GenGuard:
		if gen.Target == "" {
			return invalidf("team %q: generator %d (%s) requires a target team", team, i, gen.Kind)
		}
	}
	if gen.Target != "" {
		if _, ok := teams[gen.Target]; !ok {
			return invalidf("team %q: generator %d (%s): unknown target team %q", team, i, gen.Kind, gen.Target)
		}
	}
	if gen.Weight < 0 || math.IsNaN(gen.Weight) || math.IsInf(gen.Weight, 0) {
		return invalidf("team %q: generator %d (%s): weight must be a finite value >= 0", team, i, gen.Kind)
	}
	return nil
}

// isCount reports whether threshold names a whole number of agents. Values
// <= 0 mean every agent.
func isCount(threshold float64) bool {
	if math.IsInf(threshold, 0) {
		return false
	}
	return threshold <= 0 || threshold == math.Trunc(threshold)
}

func valuationName(team string, val ValuationConfig) string {
	if val.Name != "" {
		return val.Name
	}
	if val.Target == "" {
		return fmt.Sprintf("%s:%s", team, val.Kind)
	}
	return fmt.Sprintf("%s:%s:%s", team, val.Kind, val.Target)
}

func mergeAgent(defaults, override AgentConfig) AgentConfig {
	out := defaults
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.SensorRange != 0 {
		out.SensorRange = override.SensorRange
	}
	if override.CommRange != 0 {
		out.CommRange = override.CommRange
	}
	if override.TopSpeed != 0 {
		out.TopSpeed = override.TopSpeed
	}
	if override.LeadFactor != 0 {
		out.LeadFactor = override.LeadFactor
	}
	if override.Behavior != "" {
		out.Behavior = override.Behavior
	}
	if override.Custom != nil {
		out.Custom = override.Custom
	}
	return out
}
