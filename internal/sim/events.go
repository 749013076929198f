package sim

import "github.com/paulmach/orb"

// Mode selects whether a run produces per-step output.
type Mode int

const (
	ModeInteractive Mode = iota
	// ModeBatch suppresses per-step log output and notifications.
	ModeBatch
)

func (m Mode) String() string {
	if m == ModeBatch {
		return "batch"
	}
	return "interactive"
}

type EventKind string

const (
	EventCapture EventKind = "capture"
	EventSafe    EventKind = "safe"
	EventVictory EventKind = "victory"
	EventFault   EventKind = "fault"
	EventEnd     EventKind = "end"
)

type Event struct {
	Kind     EventKind
	Subject  string
	Object   string
	Location orb.Point
	Message  string
	Time     float64
}

// Log receives simulation events. Implementations must be safe for concurrent
// use when the simulation runs agent phases in parallel.
type Log interface {
	LogEvent(e Event)
	LogAll(step int, table *DistanceTable)
}

type NopLog struct{}

func (NopLog) LogEvent(Event)             {}
func (NopLog) LogAll(int, *DistanceTable) {}

type StepInfo struct {
	Step   int
	Time   float64
	Active int
}

type Observer interface {
	StepCompleted(info StepInfo)
	RunEnded(result RunResult)
	BatchCompleted(result BatchResult)
}

// ObserverFuncs adapts optional callbacks to Observer.
type ObserverFuncs struct {
	OnStep  func(StepInfo)
	OnEnd   func(RunResult)
	OnBatch func(BatchResult)
}

func (o ObserverFuncs) StepCompleted(info StepInfo) {
	if o.OnStep != nil {
		o.OnStep(info)
	}
}

func (o ObserverFuncs) RunEnded(result RunResult) {
	if o.OnEnd != nil {
		o.OnEnd(result)
	}
}

func (o ObserverFuncs) BatchCompleted(result BatchResult) {
	if o.OnBatch != nil {
		o.OnBatch(result)
	}
}
