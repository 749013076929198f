// Package config loads scenario files into simulation configurations.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/paulmach/orb"

	"github.com/triathematician/blaisemath-sub005/internal/sim"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

type Pitch struct {
	Min []float64 `koanf:"min" json:"min"`
	Max []float64 `koanf:"max" json:"max"`
}

type Agent struct {
	Name        string  `koanf:"name" json:"name,omitempty"`
	SensorRange float64 `koanf:"sensor_range" json:"sensor_range,omitempty"`
	CommRange   float64 `koanf:"comm_range" json:"comm_range,omitempty"`
	TopSpeed    float64 `koanf:"top_speed" json:"top_speed,omitempty"`
	LeadFactor  float64 `koanf:"lead_factor" json:"lead_factor,omitempty"`
	Behavior    string  `koanf:"behavior" json:"behavior,omitempty"`
}

type Start struct {
	Scheme   string      `koanf:"scheme" json:"scheme,omitempty"`
	From     []float64   `koanf:"from" json:"from,omitempty"`
	To       []float64   `koanf:"to" json:"to,omitempty"`
	Center   []float64   `koanf:"center" json:"center,omitempty"`
	Radius   float64     `koanf:"radius" json:"radius,omitempty"`
	ArcStart float64     `koanf:"arc_start" json:"arc_start,omitempty"`
	ArcEnd   float64     `koanf:"arc_end" json:"arc_end,omitempty"`
	Points   [][]float64 `koanf:"points" json:"points,omitempty"`
}

type Generator struct {
	Name   string    `koanf:"name" json:"name,omitempty"`
	Kind   string    `koanf:"kind" json:"kind"`
	Target string    `koanf:"target" json:"target,omitempty"`
	Point  []float64 `koanf:"point" json:"point,omitempty"`
	Weight float64   `koanf:"weight" json:"weight,omitempty"`
}

type Capture struct {
	Target   string  `koanf:"target" json:"target"`
	Distance float64 `koanf:"distance" json:"distance"`
	Policy   string  `koanf:"policy" json:"policy,omitempty"`
}

type Victory struct {
	Kind       string  `koanf:"kind" json:"kind"`
	Target     string  `koanf:"target" json:"target,omitempty"`
	Threshold  float64 `koanf:"threshold" json:"threshold,omitempty"`
	GameEnding bool    `koanf:"game_ending" json:"game_ending"`
}

type Valuation struct {
	Name        string  `koanf:"name" json:"name,omitempty"`
	Kind        string  `koanf:"kind" json:"kind"`
	Target      string  `koanf:"target" json:"target,omitempty"`
	Threshold   float64 `koanf:"threshold" json:"threshold,omitempty"`
	Cooperation bool    `koanf:"cooperation" json:"cooperation,omitempty"`
	Complement  []int   `koanf:"complement" json:"complement,omitempty"`
}

type Team struct {
	Name string `koanf:"name" json:"name"`
	// Size defaults to the number of agent entries.
	Size       int         `koanf:"size" json:"size"`
	Agent      Agent       `koanf:"agent" json:"agent"`
	Agents     []Agent     `koanf:"agents" json:"agents,omitempty"`
	Start      Start       `koanf:"start" json:"start"`
	Tasks      []Generator `koanf:"tasks" json:"tasks,omitempty"`
	Control    []Generator `koanf:"control" json:"control,omitempty"`
	Captures   []Capture   `koanf:"captures" json:"captures,omitempty"`
	Victory    *Victory    `koanf:"victory" json:"victory,omitempty"`
	Valuations []Valuation `koanf:"valuations" json:"valuations,omitempty"`
}

// Scenario is the file form of a simulation configuration.
type Scenario struct {
	Name     string  `koanf:"name" json:"name"`
	StepTime float64 `koanf:"step_time" json:"step_time"`
	Steps    int     `koanf:"steps" json:"steps"`
	MaxSteps int     `koanf:"max_steps" json:"max_steps,omitempty"`
	Seed     int64   `koanf:"seed" json:"seed"`
	Parallel bool    `koanf:"parallel" json:"parallel,omitempty"`
	Pitch    Pitch   `koanf:"pitch" json:"pitch"`
	Teams    []Team  `koanf:"teams" json:"teams"`
}

// Defaults are applied beneath every loaded scenario.
func Defaults() Scenario {
	return Scenario{
		Name:     "scenario",
		StepTime: 0.1,
		Steps:    100,
		Seed:     1,
		Pitch:    Pitch{Min: []float64{-50, -50}, Max: []float64{50, 50}},
	}
}

// Load reads a YAML or JSON scenario file; the format follows the extension.
func Load(path string) (Scenario, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Scenario{}, err
	}
	k, err := withDefaults()
	if err != nil {
		return Scenario{}, err
	}
	if err := k.Load(file.Provider(path), parser(format)); err != nil {
		return Scenario{}, fmt.Errorf("load scenario %s: %w", path, err)
	}
	return unmarshal(k)
}

// Parse reads a scenario from raw bytes.
func Parse(data []byte, format Format) (Scenario, error) {
	switch format {
	case FormatYAML, FormatJSON:
	default:
		return Scenario{}, fmt.Errorf("unsupported scenario format %q", format)
	}
	k, err := withDefaults()
	if err != nil {
		return Scenario{}, err
	}
	if err := k.Load(rawbytes.Provider(data), parser(format)); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	return unmarshal(k)
}

func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported scenario file extension %q", filepath.Ext(path))
	}
}

func withDefaults() (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load scenario defaults: %w", err)
	}
	return k, nil
}

func parser(format Format) koanf.Parser {
	if format == FormatJSON {
		return json.Parser()
	}
	return yaml.Parser()
}

func unmarshal(k *koanf.Koanf) (Scenario, error) {
	var out Scenario
	if err := k.Unmarshal("", &out); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	return out, nil
}

// SimConfig converts the scenario. Structural problems wrap
// sim.ErrInvalidConfig; semantic checks are left to sim.Validate.
func (s Scenario) SimConfig() (sim.Config, error) {
	cfg := sim.Config{
		Name:     s.Name,
		StepTime: s.StepTime,
		Steps:    s.Steps,
		MaxSteps: s.MaxSteps,
		Seed:     s.Seed,
		Parallel: s.Parallel,
		Teams:    make([]sim.TeamConfig, 0, len(s.Teams)),
	}
	var err error
	if cfg.Pitch.Min, err = point("pitch.min", s.Pitch.Min); err != nil {
		return sim.Config{}, err
	}
	if cfg.Pitch.Max, err = point("pitch.max", s.Pitch.Max); err != nil {
		return sim.Config{}, err
	}
	for i, team := range s.Teams {
		tc, err := team.simConfig()
		if err != nil {
			return sim.Config{}, fmt.Errorf("team %d (%s): %w", i, team.Name, err)
		}
		cfg.Teams = append(cfg.Teams, tc)
	}
	return cfg, nil
}

func (t Team) simConfig() (sim.TeamConfig, error) {
	size := t.Size
	if size == 0 {
		size = len(t.Agents)
	}
	tc := sim.TeamConfig{
		Name:  t.Name,
		Size:  size,
		Agent: t.Agent.simConfig(),
	}
	for _, a := range t.Agents {
		tc.Agents = append(tc.Agents, a.simConfig())
	}

	start, err := t.Start.simConfig()
	if err != nil {
		return sim.TeamConfig{}, err
	}
	tc.Start = start

	if tc.Tasks, err = generators("tasks", t.Tasks); err != nil {
		return sim.TeamConfig{}, err
	}
	if tc.Control, err = generators("control", t.Control); err != nil {
		return sim.TeamConfig{}, err
	}
	for _, c := range t.Captures {
		tc.Captures = append(tc.Captures, sim.CaptureConfig{
			Target:   c.Target,
			Distance: c.Distance,
			Policy:   sim.CapturePolicy(c.Policy),
		})
	}
	if v := t.Victory; v != nil {
		tc.Victory = &sim.VictoryConfig{
			Kind:       sim.VictoryKind(v.Kind),
			Target:     v.Target,
			Threshold:  v.Threshold,
			GameEnding: v.GameEnding,
		}
	}
	for _, v := range t.Valuations {
		tc.Valuations = append(tc.Valuations, sim.ValuationConfig{
			Name:        v.Name,
			Kind:        sim.ValuationKind(v.Kind),
			Target:      v.Target,
			Threshold:   v.Threshold,
			Cooperation: v.Cooperation,
			Complement:  append([]int(nil), v.Complement...),
		})
	}
	return tc, nil
}

func (a Agent) simConfig() sim.AgentConfig {
	return sim.AgentConfig{
		Name:        a.Name,
		SensorRange: a.SensorRange,
		CommRange:   a.CommRange,
		TopSpeed:    a.TopSpeed,
		LeadFactor:  a.LeadFactor,
		Behavior:    sim.BehaviorKind(a.Behavior),
	}
}

func (s Start) simConfig() (sim.StartConfig, error) {
	out := sim.StartConfig{
		Scheme:   sim.StartScheme(s.Scheme),
		Radius:   s.Radius,
		ArcStart: s.ArcStart,
		ArcEnd:   s.ArcEnd,
	}
	var err error
	if out.From, err = optionalPoint("start.from", s.From); err != nil {
		return sim.StartConfig{}, err
	}
	if out.To, err = optionalPoint("start.to", s.To); err != nil {
		return sim.StartConfig{}, err
	}
	if out.Center, err = optionalPoint("start.center", s.Center); err != nil {
		return sim.StartConfig{}, err
	}
	for i, p := range s.Points {
		pt, err := point(fmt.Sprintf("start.points[%d]", i), p)
		if err != nil {
			return sim.StartConfig{}, err
		}
		out.Points = append(out.Points, pt)
	}
	return out, nil
}

func generators(field string, gens []Generator) ([]sim.GeneratorConfig, error) {
	var out []sim.GeneratorConfig
	for i, g := range gens {
		pt, err := optionalPoint(fmt.Sprintf("%s[%d].point", field, i), g.Point)
		if err != nil {
			return nil, err
		}
		out = append(out, sim.GeneratorConfig{
			Name:   g.Name,
			Kind:   sim.GeneratorKind(g.Kind),
			Target: g.Target,
			Point:  pt,
			Weight: g.Weight,
		})
	}
	return out, nil
}

func point(field string, coords []float64) (orb.Point, error) {
	if len(coords) != 2 {
		return orb.Point{}, fmt.Errorf("%w: %s must have 2 coordinates, got %d", sim.ErrInvalidConfig, field, len(coords))
	}
	return orb.Point{coords[0], coords[1]}, nil
}

func optionalPoint(field string, coords []float64) (orb.Point, error) {
	if len(coords) == 0 {
		return orb.Point{}, nil
	}
	return point(field, coords)
}
