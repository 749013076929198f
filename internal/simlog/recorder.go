// Package simlog provides sinks for simulation events.
package simlog

import (
	"sync"

	"github.com/triathematician/blaisemath-sub005/internal/sim"
)

// Snapshot is the state of the distance table after one logged step.
type Snapshot struct {
	Step    int
	Time    float64
	Entries []sim.TableEntry
}

// Recorder keeps every event and, when Snapshots is set, a copy of each
// logged step in memory.
type Recorder struct {
	Snapshots bool

	mu     sync.Mutex
	events []sim.Event
	steps  []Snapshot
}

func NewRecorder(snapshots bool) *Recorder {
	return &Recorder{Snapshots: snapshots}
}

func (r *Recorder) LogEvent(e sim.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) LogAll(step int, table *sim.DistanceTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.Snapshots {
		r.steps = append(r.steps, Snapshot{Step: step, Time: table.Time()})
		return
	}
	r.steps = append(r.steps, Snapshot{Step: step, Time: table.Time(), Entries: table.Entries()})
}

func (r *Recorder) Events() []sim.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sim.Event(nil), r.events...)
}

// EventsOf filters the recorded events by kind.
func (r *Recorder) EventsOf(kind sim.EventKind) []sim.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sim.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Steps() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.steps...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.steps = nil
}
