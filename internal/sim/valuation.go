package sim

// Valuation is a statistic measured at the end of each run. A
// cooperation-testing valuation is measured a second time with the owning
// team reduced to its complement set.
type Valuation struct {
	name        string
	owner       *Team
	target      *Team
	kind        ValuationKind
	threshold   float64
	cooperation bool
	complement  []AgentID
}

func newValuation(owner, target *Team, cfg ValuationConfig) *Valuation {
	v := &Valuation{
		name:        valuationName(owner.name, cfg),
		owner:       owner,
		target:      target,
		kind:        cfg.Kind,
		threshold:   cfg.Threshold,
		cooperation: cfg.Cooperation,
	}
	for _, idx := range cfg.Complement {
		v.complement = append(v.complement, owner.agents[idx])
	}
	return v
}

func (v *Valuation) Name() string          { return v.name }
func (v *Valuation) Owner() *Team          { return v.owner }
func (v *Valuation) Target() *Team         { return v.target }
func (v *Valuation) Kind() ValuationKind   { return v.kind }
func (v *Valuation) Cooperation() bool     { return v.cooperation }
func (v *Valuation) Complement() []AgentID { return append([]AgentID(nil), v.complement...) }

// Value reads the statistic from the state left by the run that produced res.
func (v *Valuation) Value(res RunResult) float64 {
	switch v.kind {
	case ValueCaptures:
		return float64(v.target.Captures(v.owner))
	case ValueSafe:
		return float64(v.owner.Safe())
	case ValueRemaining:
		team := v.target
		if team == nil {
			team = v.owner
		}
		return float64(team.ActiveCount())
	case ValueCaptureTime:
		need := countThreshold(v.threshold, len(v.target.start))
		count := 0
		for _, rec := range v.target.captureLog {
			if rec.by != v.owner {
				continue
			}
			count++
			if need > 0 && count == need {
				return rec.time
			}
		}
		return res.EndTime
	case ValueVictory:
		if res.Winner == v.owner.name {
			return 1
		}
		return 0
	}
	return 0
}
