package sim

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsScenarios(t *testing.T) {
	for name, cfg := range map[string]Config{
		"3v3":   lineUp(),
		"chase": chase(),
		"melee": melee(),
		"relay": relay(),
	} {
		assert.NoError(t, Validate(cfg), name)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no teams", func(c *Config) { c.Teams = nil }, "at least one team"},
		{"step time", func(c *Config) { c.StepTime = -1 }, "step time"},
		{"nan step time", func(c *Config) { c.StepTime = math.NaN() }, "step time"},
		{"steps", func(c *Config) { c.Steps = -1 }, "steps must be"},
		{"pitch", func(c *Config) { c.Pitch.Max[0] = -100 }, "pitch"},
		{"unnamed team", func(c *Config) { c.Teams[0].Name = "" }, "name is required"},
		{"duplicate team", func(c *Config) { c.Teams[1].Name = "pursuers" }, "duplicate name"},
		{"negative size", func(c *Config) { c.Teams[0].Size = -1 }, "size must be"},
		{"agent count", func(c *Config) { c.Teams[0].Agents = []AgentConfig{{}} }, "agent entries"},
		{"negative range", func(c *Config) { c.Teams[0].Agent.SensorRange = -1 }, "sensor range"},
		{"infinite speed", func(c *Config) { c.Teams[0].Agent.TopSpeed = math.Inf(1) }, "top speed"},
		{"behavior", func(c *Config) { c.Teams[0].Agent.Behavior = "teleport" }, "unsupported behavior"},
		{"start points", func(c *Config) { c.Teams[0].Start.Points = c.Teams[0].Start.Points[:1] }, "specific start points"},
		{"start scheme", func(c *Config) { c.Teams[0].Start.Scheme = "spiral" }, "unsupported start scheme"},
		{"custom start", func(c *Config) { c.Teams[0].Start = StartConfig{Scheme: StartCustom} }, "placement function"},
		{"task kind", func(c *Config) { c.Teams[0].Tasks = []GeneratorConfig{{Kind: GenGreedy, Target: "evaders"}} }, "task generator"},
		{"control kind", func(c *Config) { c.Teams[0].Control = []GeneratorConfig{{Kind: GenSeek, Target: "evaders"}} }, "control generator"},
		{"seek target", func(c *Config) { c.Teams[0].Tasks = []GeneratorConfig{{Kind: GenSeek}} }, "requires a target"},
		{"unknown target", func(c *Config) { c.Teams[0].Tasks = []GeneratorConfig{{Kind: GenFlee, Target: "ghosts"}} }, "unknown target team"},
		{"weight", func(c *Config) { c.Teams[0].Tasks = []GeneratorConfig{{Kind: GenGoal, Weight: -2}} }, "weight"},
		{"capture target", func(c *Config) { c.Teams[1].Captures[0].Target = "ghosts" }, "unknown target team"},
		{"self capture", func(c *Config) { c.Teams[1].Captures[0].Target = "evaders" }, "another team"},
		{"capture distance", func(c *Config) { c.Teams[1].Captures[0].Distance = -1 }, "distance"},
		{"capture policy", func(c *Config) { c.Teams[1].Captures[0].Policy = "maim" }, "unsupported policy"},
		{"victory target", func(c *Config) { c.Teams[0].Victory = &VictoryConfig{Kind: VictoryCaptured} }, "requires a target"},
		{"victory kind", func(c *Config) { c.Teams[0].Victory = &VictoryConfig{Kind: "draw"} }, "unsupported kind"},
		{"fractional captured threshold", func(c *Config) {
			c.Teams[0].Victory = &VictoryConfig{Kind: VictoryCaptured, Target: "evaders", Threshold: 0.5}
		}, "whole agent count"},
		{"fractional safe threshold", func(c *Config) {
			c.Teams[1].Victory = &VictoryConfig{Kind: VictorySafe, Threshold: 2.5}
		}, "whole agent count"},
		{"nan victory threshold", func(c *Config) {
			c.Teams[1].Victory = &VictoryConfig{Kind: VictorySurvive, Threshold: math.NaN()}
		}, "threshold must be finite"},
		{"fractional capture time threshold", func(c *Config) {
			c.Teams[0].Valuations[0] = ValuationConfig{Kind: ValueCaptureTime, Target: "evaders", Threshold: 1.5}
		}, "whole agent count"},
		{"infinite capture time threshold", func(c *Config) {
			c.Teams[0].Valuations[0] = ValuationConfig{Kind: ValueCaptureTime, Target: "evaders", Threshold: math.Inf(1)}
		}, "whole agent count"},
		{"nan start point", func(c *Config) { c.Teams[1].Start.Points[2] = orb.Point{math.NaN(), 0} }, "not finite"},
		{"valuation target", func(c *Config) { c.Teams[0].Valuations[0].Target = "" }, "requires a target"},
		{"valuation kind", func(c *Config) { c.Teams[0].Valuations[0].Kind = "style" }, "unsupported kind"},
		{"duplicate valuation", func(c *Config) {
			c.Teams[0].Valuations = append(c.Teams[0].Valuations, c.Teams[0].Valuations[0])
		}, "duplicate valuation"},
		{"complement without cooperation", func(c *Config) { c.Teams[0].Valuations[0].Complement = []int{0} }, "without cooperation"},
		{"complement range", func(c *Config) {
			c.Teams[0].Valuations[0].Cooperation = true
			c.Teams[0].Valuations[0].Complement = []int{3}
		}, "out of range"},
		{"complement duplicate", func(c *Config) {
			c.Teams[0].Valuations[0].Cooperation = true
			c.Teams[0].Valuations[0].Complement = []int{1, 1}
		}, "duplicate complement"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := lineUp()
			tc.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestMergeAgentOverridesNonZeroFields(t *testing.T) {
	defaults := AgentConfig{SensorRange: 4, CommRange: 6, TopSpeed: 1, Behavior: BehaviorStraight}
	got := mergeAgent(defaults, AgentConfig{Name: "x", TopSpeed: 2.5, Behavior: BehaviorLeading})

	assert.Equal(t, AgentConfig{Name: "x", SensorRange: 4, CommRange: 6, TopSpeed: 2.5, Behavior: BehaviorLeading}, got)
}
