// ABOUTME: Bubbletea model for the sink console
// ABOUTME: Shows discovery and stream status and maps keys to sink commands
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Usage lists the console commands
const Usage = `## Broadcast Sink
s - start scanning
q - use alternate decoder if 10 ms
x - close files and exit
`

// Model represents the TUI state
type Model struct {
	// Controller
	connected  bool
	bridgeAddr string

	// Discovery
	state       string
	sourceName  string
	sourceAddr  string
	broadcastID uint32

	// Stream
	config       string
	decoder      string
	playbackRate int
	alternate    bool
	gapMode      bool

	// Stats
	frames    uint64
	concealed uint64
	received  uint64
	dropped   uint64
	underrun  bool

	showUsage bool
	lastError string
	controls  *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case ErrorMsg:
		m.lastError = msg.Err.Error()
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderStats()
	if m.lastError != "" {
		s += fmt.Sprintf("│ Error: %-45s │\n", truncate(m.lastError, 45))
	}
	if m.showUsage {
		s += m.renderUsage()
	}
	s += m.renderHelp()

	return s
}

// renderHeader renders controller and state
func (m Model) renderHeader() string {
	connStatus := "Disconnected"
	if m.connected {
		connStatus = fmt.Sprintf("Controller at %s", m.bridgeAddr)
	}

	return fmt.Sprintf(`┌─ Broadcast Sink ─────────────────────────────────────┐
│ Status: %-44s │
│ State:  %-44s │
├──────────────────────────────────────────────────────┤
`, truncate(connStatus, 44), truncate(m.state, 44))
}

// renderStreamInfo renders the followed source and its configuration
func (m Model) renderStreamInfo() string {
	if m.sourceAddr == "" {
		return "│ No broadcast                                         │\n"
	}

	s := fmt.Sprintf("│ Source: %-44s │\n", truncate(fmt.Sprintf("%s '%s'", m.sourceAddr, m.sourceName), 44))
	s += fmt.Sprintf("│ ID:     %-44s │\n", fmt.Sprintf("%06x", m.broadcastID))
	if m.config == "" {
		s += "│   (waiting for BASE)                                 │\n"
		return s
	}
	s += fmt.Sprintf("│ Config: %-44s │\n", truncate(m.config, 44))

	switch {
	case m.gapMode:
		s += fmt.Sprintf("│ Mode:   %-44s │\n", "gap reporting")
	case m.decoder != "":
		s += fmt.Sprintf("│ Output: %-44s │\n", fmt.Sprintf("%s decoder, %d Hz", m.decoder, m.playbackRate))
	}
	return s
}

// renderStats renders receive statistics
func (m Model) renderStats() string {
	buffer := "ok"
	if m.underrun {
		buffer = "underrun"
	}
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Frames: %-44s │
│ Buffer: %-44s │
`, fmt.Sprintf("%d  PLC: %d  Dropped: %d of %d", m.frames, m.concealed, m.dropped, m.received), buffer)
}

// renderUsage renders the command list
func (m Model) renderUsage() string {
	return `│ s - start scanning                                   │
│ q - use alternate decoder if 10 ms                   │
│ x - close files and exit                             │
`
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	alt := ""
	if m.alternate {
		alt = " (alt)"
	}
	return fmt.Sprintf(`│ s:Scan  q:Alt decoder%-6s  x:Exit  ?:Usage        │
└──────────────────────────────────────────────────────┘
`, alt)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "s":
		m.showUsage = false
		m.send(CommandStartScan)
	case "q":
		m.showUsage = false
		m.alternate = true
		m.send(CommandAlternateDecoder)
	case "x", "ctrl+c":
		m.send(CommandShutdown)
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	default:
		m.showUsage = true
	}

	return m, nil
}

func (m Model) send(cmd Command) {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Commands <- cmd:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.BridgeAddr != "" {
		m.bridgeAddr = msg.BridgeAddr
	}
	if msg.State != "" {
		m.state = msg.State
	}
	m.sourceName = msg.SourceName
	m.sourceAddr = msg.SourceAddr
	m.broadcastID = msg.BroadcastID
	m.config = msg.Config
	m.decoder = msg.Decoder
	m.playbackRate = msg.PlaybackRate
	m.gapMode = msg.GapMode
	m.alternate = m.alternate || msg.Alternate
	m.frames = msg.Frames
	m.concealed = msg.Concealed
	m.received = msg.Received
	m.dropped = msg.Dropped
	m.underrun = msg.Underrun
}

// StatusMsg updates TUI state. Connection fields are only applied when
// set; the rest is a full snapshot.
type StatusMsg struct {
	Connected  *bool
	BridgeAddr string
	State      string

	SourceName   string
	SourceAddr   string
	BroadcastID  uint32
	Config       string
	Decoder      string
	PlaybackRate int
	GapMode      bool
	Alternate    bool

	Frames    uint64
	Concealed uint64
	Received  uint64
	Dropped   uint64
	Underrun  bool
}

// ErrorMsg reports a controller failure
type ErrorMsg struct {
	Err error
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
