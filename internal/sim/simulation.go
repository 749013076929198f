package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/paulmach/orb"

	"github.com/triathematician/blaisemath-sub005/internal/geom"
)

// arena owns every agent of a simulation. Agents and teams refer to each
// other through it by AgentID; the slice is never resized after New.
type arena struct {
	agents   []Agent
	teams    []*Team
	fusion   Fusion
	logger   *slog.Logger
	parallel bool

	log     Log
	current Log
}

func (a *arena) sink() Log {
	if a.current != nil {
		return a.current
	}
	return a.log
}

type Options struct {
	Log      Log
	Observer Observer
	Logger   *slog.Logger
	Fusion   Fusion
}

type TeamResult struct {
	Name       string         `json:"name"`
	Start      int            `json:"start"`
	Active     int            `json:"active"`
	Safe       int            `json:"safe"`
	CapturedBy map[string]int `json:"captured_by,omitempty"`
}

type RunResult struct {
	Steps   int          `json:"steps"`
	EndTime float64      `json:"end_time"`
	Ended   bool         `json:"ended"`
	Outcome Outcome      `json:"outcome"`
	Winner  string       `json:"winner,omitempty"`
	Decider string       `json:"decider,omitempty"`
	Teams   []TeamResult `json:"teams"`
}

func (r RunResult) Team(name string) (TeamResult, bool) {
	for _, t := range r.Teams {
		if t.Name == name {
			return t, true
		}
	}
	return TeamResult{}, false
}

type Simulation struct {
	cfg      Config
	arena    *arena
	table    *DistanceTable
	observer Observer
	logger   *slog.Logger
	rng      *rand.Rand

	starts  []orb.Point
	step    int
	outcome Outcome
	decider *VictoryCondition
}

// New builds a simulation from cfg. Configuration errors wrap
// ErrInvalidConfig and no simulation is returned.
func New(cfg Config, opts Options) (*Simulation, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := opts.Log
	if log == nil {
		log = NopLog{}
	}
	observer := opts.Observer
	if observer == nil {
		observer = ObserverFuncs{}
	}
	fusion := opts.Fusion
	if fusion == nil {
		fusion = WeightedFusion{}
	}

	total := 0
	for _, tc := range cfg.Teams {
		total += tc.Size
	}
	a := &arena{
		agents:   make([]Agent, 0, total),
		fusion:   fusion,
		logger:   logger,
		parallel: cfg.Parallel,
		log:      log,
	}

	byName := make(map[string]*Team, len(cfg.Teams))
	for i, tc := range cfg.Teams {
		team := &Team{index: i, name: tc.Name, cfg: tc, arena: a, captures: make(map[*Team]int)}
		for j := 0; j < tc.Size; j++ {
			name := fmt.Sprintf("%s-%d", tc.Name, j+1)
			agentCfg := tc.Agent
			if len(tc.Agents) > 0 {
				agentCfg = mergeAgent(tc.Agent, tc.Agents[j])
				if tc.Agents[j].Name != "" {
					name = tc.Agents[j].Name
				}
			}
			id := AgentID(len(a.agents))
			a.agents = append(a.agents, newAgent(id, name, team, a, agentCfg))
			team.agents = append(team.agents, id)
		}
		team.start = append([]AgentID(nil), team.agents...)
		a.teams = append(a.teams, team)
		byName[tc.Name] = team
	}

	for _, team := range a.teams {
		tc := team.cfg
		for _, gc := range tc.Tasks {
			gen := newGenerator(tc.Name, gc, byName[gc.Target])
			for _, id := range team.agents {
				a.agents[id].generators = append(a.agents[id].generators, gen)
			}
		}
		for _, gc := range tc.Control {
			team.control = append(team.control, newGenerator(tc.Name, gc, byName[gc.Target]))
		}
		for _, cc := range tc.Captures {
			team.conditions = append(team.conditions, newCaptureCondition(team, byName[cc.Target], cc))
		}
		if tc.Victory != nil {
			team.victory = newVictoryCondition(team, byName[tc.Victory.Target], *tc.Victory)
		}
		for _, vc := range tc.Valuations {
			team.valuations = append(team.valuations, newValuation(team, byName[vc.Target], vc))
		}
	}

	return &Simulation{
		cfg:      cfg,
		arena:    a,
		table:    newDistanceTable(a),
		observer: observer,
		logger:   logger,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		starts:   make([]orb.Point, total),
	}, nil
}

func (s *Simulation) Config() Config          { return s.cfg }
func (s *Simulation) Table() *DistanceTable   { return s.table }
func (s *Simulation) Teams() []*Team          { return append([]*Team(nil), s.arena.teams...) }
func (s *Simulation) Agent(id AgentID) *Agent { return &s.arena.agents[id] }
func (s *Simulation) StepCount() int          { return s.step }
func (s *Simulation) Time() float64           { return float64(s.step) * s.cfg.StepTime }

func (s *Simulation) Team(name string) (*Team, bool) {
	for _, t := range s.arena.teams {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}

func (s *Simulation) Agents() []*Agent {
	out := make([]*Agent, len(s.arena.agents))
	for i := range s.arena.agents {
		out[i] = &s.arena.agents[i]
	}
	return out
}

// Valuations lists every team's valuations in team declaration order.
func (s *Simulation) Valuations() []*Valuation {
	var out []*Valuation
	for _, t := range s.arena.teams {
		out = append(out, t.valuations...)
	}
	return out
}

// Reseed restarts the random source used for starting positions.
func (s *Simulation) Reseed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
}

// InitStateVariables draws fresh starting positions and resets all run state.
func (s *Simulation) InitStateVariables() error {
	for _, team := range s.arena.teams {
		points, err := startPositions(team.cfg.Start, len(team.agents), s.cfg.Pitch, s.rng)
		if err != nil {
			return fmt.Errorf("team %q: %w", team.name, err)
		}
		for i, id := range team.agents {
			if !geom.IsFinite(points[i]) {
				return invalidf("team %q: agent %q starts at non-finite point %v", team.name, s.arena.agents[id].name, points[i])
			}
			s.starts[id] = points[i]
		}
	}
	s.resetState()
	return nil
}

// resetState puts every agent back on its starting position without drawing
// new ones.
func (s *Simulation) resetState() {
	for _, team := range s.arena.teams {
		team.reset(s.starts)
	}
	s.step = 0
	s.outcome = Neither
	s.decider = nil
}

// withRoster runs fn with team's start set replaced by ids and restores the
// full roster afterwards, whatever fn does.
func (s *Simulation) withRoster(team *Team, ids []AgentID, fn func() error) error {
	saved := team.start
	team.start = append([]AgentID(nil), ids...)
	defer func() {
		team.start = saved
	}()
	return fn()
}

// Iterate performs one time step and reports whether a game-ending victory
// condition stopped the run.
func (s *Simulation) Iterate(time float64) bool {
	log := s.arena.sink()
	teams := s.arena.teams

	s.table.Recalculate(time)

	for _, team := range teams {
		for _, cond := range team.conditions {
			cond.Check(s.table, log, time)
		}
	}

	for _, team := range teams {
		v := team.victory
		if v == nil {
			continue
		}
		if out := v.Check(s.table, log, time); out != Neither && v.gameEnding {
			s.outcome = out
			s.decider = v
			return true
		}
	}

	for _, team := range teams {
		team.GatherSensoryData(s.table)
		team.CommunicateSensoryData(s.table)
		team.FuseAgentPOV()
	}
	for _, team := range teams {
		team.AssignTasks(s.table)
	}
	for _, team := range teams {
		team.PlanPaths(time, s.cfg.StepTime)
	}
	for _, team := range teams {
		team.Move(s.cfg.StepTime)
	}
	return false
}

// Run resets the simulation and runs the configured number of steps.
func (s *Simulation) Run(ctx context.Context, mode Mode) (RunResult, error) {
	return s.RunSteps(ctx, s.cfg.Steps, mode)
}

// RunSteps resets the simulation and runs at most steps iterations, capped by
// MaxSteps when set.
func (s *Simulation) RunSteps(ctx context.Context, steps int, mode Mode) (RunResult, error) {
	if err := s.InitStateVariables(); err != nil {
		return RunResult{}, err
	}
	return s.execute(ctx, steps, mode)
}

func (s *Simulation) execute(ctx context.Context, steps int, mode Mode) (RunResult, error) {
	if s.cfg.MaxSteps > 0 && steps > s.cfg.MaxSteps {
		steps = s.cfg.MaxSteps
	}
	if mode == ModeBatch {
		s.arena.current = NopLog{}
		defer func() { s.arena.current = nil }()
	}
	log := s.arena.sink()

	var res RunResult
	for k := 0; k < steps; k++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}
		t := float64(k) * s.cfg.StepTime
		done := s.Iterate(t)
		s.step = k + 1
		if mode == ModeInteractive {
			log.LogAll(k, s.table)
			s.observer.StepCompleted(StepInfo{Step: k, Time: t, Active: s.activeCount()})
		}
		if done {
			res.Ended = true
			res.EndTime = t
			break
		}
	}
	res.Steps = s.step
	if !res.Ended {
		res.EndTime = float64(s.step) * s.cfg.StepTime
	}
	res.Outcome = s.outcome
	if s.decider != nil {
		res.Winner = s.decider.Winner(s.outcome)
		res.Decider = s.decider.owner.name
	}
	res.Teams = s.teamResults()

	if mode == ModeInteractive {
		log.LogEvent(Event{
			Kind:    EventEnd,
			Subject: s.cfg.Name,
			Object:  res.Winner,
			Message: fmt.Sprintf("run finished after %d steps", res.Steps),
			Time:    res.EndTime,
		})
		s.observer.RunEnded(res)
	}
	return res, nil
}

func (s *Simulation) activeCount() int {
	n := 0
	for _, t := range s.arena.teams {
		n += len(t.active)
	}
	return n
}

func (s *Simulation) teamResults() []TeamResult {
	out := make([]TeamResult, 0, len(s.arena.teams))
	for _, t := range s.arena.teams {
		tr := TeamResult{Name: t.name, Start: len(t.start), Active: len(t.active), Safe: t.Safe()}
		for by, n := range t.captures {
			if by == t || n == 0 {
				continue
			}
			if tr.CapturedBy == nil {
				tr.CapturedBy = make(map[string]int)
			}
			tr.CapturedBy[by.name] = n
		}
		out = append(out, tr)
	}
	return out
}
