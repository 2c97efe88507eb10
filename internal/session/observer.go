package session

import (
	"sync"

	"github.com/rbright/voxscribe/internal/fsm"
)

// StatusKind classifies a status update for display.
type StatusKind string

const (
	StatusInfo       StatusKind = "info"
	StatusError      StatusKind = "error"
	StatusSuccess    StatusKind = "success"
	StatusRecording  StatusKind = "recording"
	StatusProcessing StatusKind = "processing"
)

// Snapshot is the externally visible session state.
type Snapshot struct {
	Mode       string
	State      fsm.State
	Recording  bool
	Processing bool
	Turns      int
}

// Observer receives session events. Calls arrive on the controller's owner
// goroutine and must not block.
type Observer interface {
	Status(kind StatusKind, message string)
	Output(line string)
	ClearOutput()
	State(Snapshot)
}

// ObserverFuncs adapts optional callbacks to Observer.
type ObserverFuncs struct {
	OnStatus      func(StatusKind, string)
	OnOutput      func(string)
	OnClearOutput func()
	OnState       func(Snapshot)
}

func (f ObserverFuncs) Status(kind StatusKind, message string) {
	if f.OnStatus != nil {
		f.OnStatus(kind, message)
	}
}

func (f ObserverFuncs) Output(line string) {
	if f.OnOutput != nil {
		f.OnOutput(line)
	}
}

func (f ObserverFuncs) ClearOutput() {
	if f.OnClearOutput != nil {
		f.OnClearOutput()
	}
}

func (f ObserverFuncs) State(snapshot Snapshot) {
	if f.OnState != nil {
		f.OnState(snapshot)
	}
}

// observers fans events out to every registered observer.
type observers struct {
	mu   sync.RWMutex
	list []Observer
}

func (o *observers) add(observer Observer) {
	if observer == nil {
		return
	}
	o.mu.Lock()
	o.list = append(o.list, observer)
	o.mu.Unlock()
}

func (o *observers) each(fn func(Observer)) {
	o.mu.RLock()
	list := append([]Observer(nil), o.list...)
	o.mu.RUnlock()
	for _, observer := range list {
		fn(observer)
	}
}

func (o *observers) status(kind StatusKind, message string) {
	o.each(func(observer Observer) { observer.Status(kind, message) })
}

func (o *observers) output(line string) {
	o.each(func(observer Observer) { observer.Output(line) })
}

func (o *observers) clearOutput() {
	o.each(func(observer Observer) { observer.ClearOutput() })
}

func (o *observers) state(snapshot Snapshot) {
	o.each(func(observer Observer) { observer.State(snapshot) })
}
