// ABOUTME: Main receiver application orchestration
// ABOUTME: Coordinates controller bridge, run loop, sink, audio output and console
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/leaudio-sink/internal/config"
	"github.com/Resonate-Protocol/leaudio-sink/internal/discovery"
	"github.com/Resonate-Protocol/leaudio-sink/internal/hci"
	"github.com/Resonate-Protocol/leaudio-sink/internal/metrics"
	"github.com/Resonate-Protocol/leaudio-sink/internal/runloop"
	"github.com/Resonate-Protocol/leaudio-sink/internal/sink"
	"github.com/Resonate-Protocol/leaudio-sink/internal/ui"
	"github.com/Resonate-Protocol/leaudio-sink/internal/wavdump"
	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio/output"
)

const (
	statusInterval = 500 * time.Millisecond
	shutdownWait   = 2 * time.Second
)

// Config holds receiver configuration
type Config struct {
	Settings *config.Config

	// OnStatus receives a snapshot every status interval
	OnStatus func(ui.StatusMsg)
	OnError  func(error)
}

// Receiver runs one broadcast sink against a remote controller
type Receiver struct {
	config  Config
	loop    *runloop.Loop
	bridge  *hci.Bridge
	sink    *sink.Sink
	metrics *metrics.Metrics
	wav     *wavdump.Writer

	bridgeAddr string

	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// New creates a receiver
func New(cfg Config) *Receiver {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Receiver{
		config:   cfg,
		loop:     runloop.New(),
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}
}

// Start locates the controller bridge, starts the run loop and connects.
// The sink begins scanning once the controller reports ready.
func (r *Receiver) Start() error {
	settings := r.config.Settings

	addr, path, err := r.resolveBridge()
	if err != nil {
		return err
	}
	r.bridgeAddr = addr

	if settings.Metrics.Enabled {
		r.metrics = metrics.New()
		go func() {
			if err := r.metrics.Serve(r.ctx, settings.Metrics.Address); err != nil {
				log.Printf("Metrics server failed: %v", err)
			}
		}()
	}

	var recorder sink.Recorder
	if settings.Audio.WAVPath != "" {
		r.wav = wavdump.New(settings.Audio.WAVPath)
		recorder = r.wav
	}

	out, err := newOutput(settings.Audio)
	if err != nil {
		return err
	}

	r.bridge = hci.NewBridge(hci.Config{
		Addr:        addr,
		Path:        path,
		DialTimeout: settings.Bridge.GetDialTimeout(),
	}, r)

	r.sink, err = sink.New(sink.Options{
		Scheduler:           r.loop,
		Controller:          r.bridge,
		Output:              &loopOutput{Output: out, loop: r.loop, timeout: settings.Audio.GetOutputBuffer()},
		Recorder:            recorder,
		Metrics:             r.metrics,
		PrimaryDecoder:      settings.Audio.PrimaryDecoder,
		AlternateDecoder:    settings.Audio.AlternateDecoder,
		BufferFrames:        settings.Audio.BufferFrames,
		ScanInterval:        settings.Sink.ScanInterval,
		ScanWindow:          settings.Sink.ScanWindow,
		PeriodicSyncTimeout: settings.Sink.PeriodicSyncTimeout,
		BIGSyncTimeout:      settings.Sink.BIGSyncTimeout,
		BIGHandle:           settings.Sink.BIGHandle,
		AutoStart:           settings.Sink.AutoStart,
		OnError:             r.onError,
	})
	if err != nil {
		return fmt.Errorf("failed to create sink: %w", err)
	}

	go func() {
		defer close(r.loopDone)
		r.loop.Run(r.ctx)
	}()

	if err := r.bridge.Connect(); err != nil {
		r.cancel()
		return fmt.Errorf("connection failed: %w", err)
	}
	log.Printf("Connected to controller bridge: %s", addr)

	if r.config.OnStatus != nil {
		connected := true
		r.config.OnStatus(ui.StatusMsg{Connected: &connected, BridgeAddr: addr})
		go r.statusLoop()
	}
	return nil
}

// resolveBridge returns the configured address or browses for one
func (r *Receiver) resolveBridge() (string, string, error) {
	settings := r.config.Settings.Bridge
	if settings.Address != "" {
		return settings.Address, settings.Path, nil
	}

	log.Printf("Starting controller bridge discovery...")
	disc := discovery.NewManager(discovery.Config{Service: settings.Service})
	ctx, cancel := context.WithTimeout(r.ctx, settings.GetFindTimeout())
	defer cancel()

	bridge, err := disc.Find(ctx)
	if err != nil {
		return "", "", err
	}
	path := settings.Path
	if bridge.Path != "" {
		path = bridge.Path
	}
	return bridge.Addr(), path, nil
}

// HandleEvent implements hci.Handler; events are processed on the loop
func (r *Receiver) HandleEvent(ev hci.Event) {
	r.loop.Post(func() { r.sink.HandleEvent(ev) })
}

// HandleISO implements hci.Handler; the pooled packet is released once the
// sink is done with it
func (r *Receiver) HandleISO(pkt *hci.ISOData) {
	r.loop.Post(func() {
		r.sink.HandleISO(pkt.Data)
		pkt.Release()
	})
}

// Command runs a console command on the loop
func (r *Receiver) Command(cmd ui.Command) {
	switch cmd {
	case ui.CommandStartScan:
		r.loop.Post(func() {
			if err := r.sink.StartScanning(); err != nil {
				log.Printf("Cannot start scanning: %v", err)
			}
		})
	case ui.CommandAlternateDecoder:
		r.loop.Post(r.sink.RequestAlternateDecoder)
	case ui.CommandShutdown:
		go r.Stop()
	}
}

// Status returns a sink snapshot taken on the loop
func (r *Receiver) Status() (sink.Status, bool) {
	var st sink.Status
	ok := r.loop.CallTimeout(func() { st = r.sink.Status() }, time.Second)
	return st, ok
}

// Done is closed once the controller connection is gone
func (r *Receiver) Done() <-chan struct{} {
	if r.bridge == nil {
		return r.ctx.Done()
	}
	return r.bridge.Done()
}

// statusLoop periodically pushes status snapshots
func (r *Receiver) statusLoop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if st, ok := r.Status(); ok {
				r.config.OnStatus(StatusMsg(st))
			}
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Receiver) onError(err error) {
	if r.config.OnError != nil {
		r.config.OnError(err)
	}
}

// Stop shuts the sink down on the loop, then stops the loop
func (r *Receiver) Stop() error {
	r.stopOnce.Do(func() {
		if r.sink != nil && r.ctx.Err() == nil {
			done := r.loop.CallTimeout(func() { r.stopErr = r.sink.Shutdown() }, shutdownWait)
			if !done {
				r.stopErr = fmt.Errorf("shutdown timed out")
			}
		}
		r.cancel()
		if r.sink != nil {
			<-r.loopDone
		}
		if r.bridge != nil {
			r.bridge.Close()
		}
		log.Printf("Receiver stopped")
	})
	return r.stopErr
}

// StatusMsg converts a sink snapshot for the console
func StatusMsg(st sink.Status) ui.StatusMsg {
	msg := ui.StatusMsg{
		State:     st.State.String(),
		Alternate: st.AlternateRequested,
	}
	if !st.HaveSession {
		return msg
	}

	msg.SourceName = st.Source.Name
	msg.SourceAddr = st.Source.Address.String()
	msg.BroadcastID = st.Source.BroadcastID
	msg.GapMode = st.Source.CountMode
	if st.HaveConfig {
		msg.Config = st.Config.String()
	}
	msg.Decoder = st.Decoder
	msg.PlaybackRate = st.PlaybackRate
	msg.Frames = st.Frames
	msg.Concealed = st.Concealed
	msg.Received = st.Playback.Received
	msg.Dropped = st.Playback.Dropped
	msg.Underrun = st.Underrun
	return msg
}

// newOutput creates the configured audio backend
func newOutput(cfg config.AudioConfig) (output.Output, error) {
	switch cfg.Output {
	case "oto":
		return output.NewOto(cfg.GetOutputBuffer()), nil
	case "malgo":
		return output.NewMalgo(cfg.GetOutputBuffer()), nil
	case "null":
		return output.NewNull(cfg.GetOutputBuffer()), nil
	default:
		return nil, fmt.Errorf("unknown audio output %q", cfg.Output)
	}
}
