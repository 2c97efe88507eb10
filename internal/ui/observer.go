package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/voxscribe/internal/session"
)

// sender is the subset of *tea.Program used to deliver session events.
type sender interface {
	Send(tea.Msg)
}

// ProgramObserver forwards session events into a running bubbletea program.
type ProgramObserver struct {
	program sender
}

// NewProgramObserver binds an observer to program.
func NewProgramObserver(program *tea.Program) *ProgramObserver {
	return &ProgramObserver{program: program}
}

func (o *ProgramObserver) Status(kind session.StatusKind, message string) {
	o.program.Send(StatusMsg{Kind: kind, Message: message})
}

func (o *ProgramObserver) Output(line string) {
	o.program.Send(OutputMsg{Line: line})
}

func (o *ProgramObserver) ClearOutput() {
	o.program.Send(ClearOutputMsg{})
}

func (o *ProgramObserver) State(snapshot session.Snapshot) {
	o.program.Send(StateMsg{Snapshot: snapshot})
}
