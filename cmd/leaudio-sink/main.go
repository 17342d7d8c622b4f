// ABOUTME: Entry point for the LE Audio broadcast sink
// ABOUTME: Parses CLI flags, loads configuration and runs the receiver
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/leaudio-sink/internal/app"
	"github.com/Resonate-Protocol/leaudio-sink/internal/config"
	"github.com/Resonate-Protocol/leaudio-sink/internal/ui"
	"github.com/Resonate-Protocol/leaudio-sink/internal/version"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	configFile  = flag.String("config", "", "YAML configuration file")
	bridgeAddr  = flag.String("bridge", "", "Controller bridge address host:port (skip mDNS)")
	logFile     = flag.String("log-file", "", "Log file path (overrides config)")
	wavPath     = flag.String("wav", "", "Dump received audio to this WAV file")
	audioOut    = flag.String("output", "", "Audio output: oto, malgo or null")
	metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on this address")
	manualStart = flag.Bool("manual-start", false, "Wait for 's' before scanning")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs  = flag.Bool("stream-logs", false, "Alias for -no-tui")
)

func main() {
	flag.Parse()

	settings, err := loadSettings()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Determine if we should use TUI or streaming logs
	useTUI := !(*noTUI || *streamLogs)

	f, err := os.OpenFile(settings.Logging.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
		log.Printf("Starting %s %s", version.Product, version.Version)
		fmt.Print(ui.Usage)
	}

	controls := ui.NewControls()

	var tuiProg *tea.Program
	if useTUI {
		tuiProg, err = ui.Run(controls)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI stopped: %v", err)
			}
		}()
	} else {
		go readCommands(os.Stdin, controls)
	}

	updateTUI := func(msg tea.Msg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	receiver := app.New(app.Config{
		Settings: settings,
		OnStatus: func(msg ui.StatusMsg) { updateTUI(msg) },
		OnError: func(err error) {
			log.Printf("Receiver error: %v", err)
			updateTUI(ui.ErrorMsg{Err: err})
		},
	})

	if err := receiver.Start(); err != nil {
		if tuiProg != nil {
			tuiProg.Quit()
		}
		log.Fatalf("Failed to start receiver: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	running := true
	for running {
		select {
		case cmd := <-controls.Commands:
			log.Printf("Console command: %s", cmd)
			if cmd == ui.CommandShutdown {
				running = false
				continue
			}
			receiver.Command(cmd)
		case <-controls.Quit:
			running = false
		case <-receiver.Done():
			log.Printf("Controller bridge disconnected")
			running = false
		case <-sigChan:
			log.Printf("Shutdown signal received")
			running = false
		}
	}

	if err := receiver.Stop(); err != nil {
		log.Printf("Error stopping receiver: %v", err)
	}
	if tuiProg != nil {
		tuiProg.Quit()
	}
}

// loadSettings reads the config file, then applies flag overrides
func loadSettings() (*config.Config, error) {
	settings := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	if *bridgeAddr != "" {
		settings.Bridge.Address = *bridgeAddr
	}
	if *logFile != "" {
		settings.Logging.File = *logFile
	}
	if *wavPath != "" {
		settings.Audio.WAVPath = *wavPath
	}
	if *audioOut != "" {
		settings.Audio.Output = *audioOut
	}
	if *metricsAddr != "" {
		settings.Metrics.Enabled = true
		settings.Metrics.Address = *metricsAddr
	}
	if *manualStart {
		settings.Sink.AutoStart = false
	}
	return settings, settings.Validate()
}

// readCommands maps the first character of each stdin line to a command
func readCommands(r io.Reader, controls *ui.Controls) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		switch line[0] {
		case 's':
			controls.Commands <- ui.CommandStartScan
		case 'q':
			controls.Commands <- ui.CommandAlternateDecoder
		case 'x':
			controls.Commands <- ui.CommandShutdown
			return
		default:
			fmt.Print(ui.Usage)
		}
	}
}
