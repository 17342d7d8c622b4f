// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the sink console
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a console request for the sink
type Command int

const (
	// CommandStartScan starts discovery
	CommandStartScan Command = iota
	// CommandAlternateDecoder selects the alternate decoder for 10 ms frames
	CommandAlternateDecoder
	// CommandShutdown closes files and exits
	CommandShutdown
)

func (c Command) String() string {
	switch c {
	case CommandStartScan:
		return "start scanning"
	case CommandAlternateDecoder:
		return "use alternate decoder"
	case CommandShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Controls holds channels for console communication
type Controls struct {
	Commands chan Command
	Quit     chan struct{}
}

// NewControls creates a new console control handler
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan Command, 10),
		Quit:     make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		state:    "starting",
		controls: controls,
	}
}

// Run creates the TUI program; the caller runs it
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
