package sim

import "fmt"

// CaptureCondition removes agents of its owning team that come within
// distance of an agent of the target team.
type CaptureCondition struct {
	owner    *Team
	target   *Team
	distance float64
	policy   CapturePolicy
}

func newCaptureCondition(owner, target *Team, cfg CaptureConfig) *CaptureCondition {
	policy := cfg.Policy
	if policy == "" {
		policy = CaptureRemove
	}
	return &CaptureCondition{owner: owner, target: target, distance: cfg.Distance, policy: policy}
}

func (c *CaptureCondition) Owner() *Team          { return c.owner }
func (c *CaptureCondition) Target() *Team         { return c.target }
func (c *CaptureCondition) Distance() float64     { return c.distance }
func (c *CaptureCondition) Policy() CapturePolicy { return c.policy }

// Check applies the removal policy to every owner/target pair in range and
// returns the number of removals. Pairs are visited in roster order and
// agents that are already inactive are skipped.
func (c *CaptureCondition) Check(table *DistanceTable, log Log, time float64) int {
	removed := 0
	for _, defender := range c.owner.ActiveAgents() {
		if !defender.active {
			continue
		}
		for _, attacker := range c.target.ActiveAgents() {
			if !attacker.active {
				continue
			}
			if !(table.Distance(defender.id, attacker.id) <= c.distance) {
				continue
			}
			removed += c.apply(defender, attacker, log, time)
			break
		}
	}
	return removed
}

func (c *CaptureCondition) apply(defender, attacker *Agent, log Log, time float64) int {
	switch c.policy {
	case CaptureSafety:
		c.owner.Deactivate(defender, time)
		c.owner.recordCapture(defender, c.owner, time)
		log.LogEvent(Event{
			Kind:     EventSafe,
			Subject:  defender.String(),
			Object:   attacker.String(),
			Location: defender.position,
			Message:  fmt.Sprintf("%s reached safety", defender),
			Time:     time,
		})
		return 1
	case CaptureRemoveBoth:
		c.owner.Deactivate(defender, time)
		c.owner.recordCapture(defender, c.target, time)
		c.target.Deactivate(attacker, time)
		c.target.recordCapture(attacker, c.owner, time)
		log.LogEvent(Event{
			Kind:     EventCapture,
			Subject:  attacker.String(),
			Object:   defender.String(),
			Location: defender.position,
			Message:  fmt.Sprintf("%s and %s removed each other", attacker, defender),
			Time:     time,
		})
		return 2
	default:
		c.owner.Deactivate(defender, time)
		c.owner.recordCapture(defender, c.target, time)
		log.LogEvent(Event{
			Kind:     EventCapture,
			Subject:  attacker.String(),
			Object:   defender.String(),
			Location: defender.position,
			Message:  fmt.Sprintf("%s captured %s", attacker, defender),
			Time:     time,
		})
		return 1
	}
}
