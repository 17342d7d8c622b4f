// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key commands and rendering
package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil)

	if model.connected {
		t.Error("expected connected to be false initially")
	}

	if model.state != "starting" {
		t.Errorf("expected initial state 'starting', got '%s'", model.state)
	}

	if model.showUsage {
		t.Error("expected usage hidden initially")
	}
}

func TestStatusMsgConnected(t *testing.T) {
	model := NewModel(nil)

	connected := true
	model.applyStatus(StatusMsg{Connected: &connected, BridgeAddr: "127.0.0.1:8765"})

	if !model.connected {
		t.Error("expected connected to be true after status update")
	}
	if model.bridgeAddr != "127.0.0.1:8765" {
		t.Errorf("expected bridgeAddr '127.0.0.1:8765', got '%s'", model.bridgeAddr)
	}

	// Snapshots without connection fields keep the connection
	model.applyStatus(StatusMsg{State: "Streaming"})
	if !model.connected {
		t.Error("expected connection to survive a snapshot")
	}
}

func TestStatusMsgSnapshot(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		State:      "Streaming",
		SourceName: "broadcast",
		SourceAddr: "06:05:04:03:02:01",
		Config:     "1 bis, 48000 Hz",
		Frames:     10,
		Concealed:  2,
	})
	if model.frames != 10 || model.concealed != 2 {
		t.Errorf("unexpected counters %d/%d", model.frames, model.concealed)
	}

	// A restart clears the source
	model.applyStatus(StatusMsg{State: "WaitBroadcastAdvertisement"})
	if model.sourceAddr != "" {
		t.Errorf("expected source cleared, got '%s'", model.sourceAddr)
	}
	if model.state != "WaitBroadcastAdvertisement" {
		t.Errorf("unexpected state '%s'", model.state)
	}
}

func TestKeyCommands(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls)

	updated, _ := model.Update(keyMsg("s"))
	model = updated.(Model)
	updated, _ = model.Update(keyMsg("q"))
	model = updated.(Model)

	if got := <-controls.Commands; got != CommandStartScan {
		t.Errorf("expected start scan, got %v", got)
	}
	if got := <-controls.Commands; got != CommandAlternateDecoder {
		t.Errorf("expected alternate decoder, got %v", got)
	}
	if !model.alternate {
		t.Error("expected alternate flag after q")
	}
}

func TestExitKey(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls)

	_, cmd := model.Update(keyMsg("x"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if got := <-controls.Commands; got != CommandShutdown {
		t.Errorf("expected shutdown, got %v", got)
	}
	select {
	case <-controls.Quit:
	default:
		t.Error("expected quit signal")
	}
}

func TestUnknownKeyShowsUsage(t *testing.T) {
	model := NewModel(nil)
	model.width = 80

	updated, _ := model.Update(keyMsg("z"))
	model = updated.(Model)
	if !model.showUsage {
		t.Fatal("expected usage after unknown key")
	}
	if !strings.Contains(model.View(), "q - use alternate decoder if 10 ms") {
		t.Error("expected usage text in view")
	}

	updated, _ = model.Update(keyMsg("s"))
	model = updated.(Model)
	if model.showUsage {
		t.Error("expected usage hidden after a command")
	}
}

func TestViewLoading(t *testing.T) {
	model := NewModel(nil)
	if model.View() != "Loading..." {
		t.Error("expected loading view before window size")
	}
}

func TestViewGapMode(t *testing.T) {
	model := NewModel(nil)
	model.width = 80
	model.applyStatus(StatusMsg{SourceAddr: "06:05:04:03:02:01", Config: "1 bis", GapMode: true})

	if !strings.Contains(model.View(), "gap reporting") {
		t.Error("expected gap reporting mode in view")
	}
}

func TestErrorMsg(t *testing.T) {
	model := NewModel(nil)
	model.width = 80

	updated, _ := model.Update(ErrorMsg{Err: errors.New("hardware error 0x03")})
	model = updated.(Model)
	if !strings.Contains(model.View(), "hardware error 0x03") {
		t.Error("expected error in view")
	}
}

func TestTruncate(t *testing.T) {
	if truncate("short", 10) != "short" {
		t.Error("short strings should be unchanged")
	}
	if got := truncate("a very long source name", 10); got != "a very ..." {
		t.Errorf("unexpected truncation '%s'", got)
	}
}
