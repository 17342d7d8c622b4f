// ABOUTME: LE Audio broadcast sink state machine
// ABOUTME: Discovers a broadcast, syncs to its BIG and feeds decoded audio to playback
package sink

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/leaudio-sink/internal/hci"
	"github.com/Resonate-Protocol/leaudio-sink/internal/metrics"
	"github.com/Resonate-Protocol/leaudio-sink/internal/playback"
	"github.com/Resonate-Protocol/leaudio-sink/internal/runloop"
	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio/decode"
	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio/output"
	"github.com/Resonate-Protocol/leaudio-sink/pkg/leaudio"
)

var (
	// ErrHardware wraps controller and transport failures passed to OnError
	ErrHardware = errors.New("sink: controller failure")

	// ErrNotReady is returned when scanning is requested too early or late
	ErrNotReady = errors.New("sink: not ready to scan")
)

// Recorder receives every assembled frame of a session
type Recorder interface {
	Open(channels, sampleRate int) error
	WriteFrame(pcm []int16) error
	Close() error
}

// Options configures a Sink
type Options struct {
	Scheduler  runloop.Scheduler
	Controller hci.Controller

	// Output plays the assembled audio; nil decodes without playing
	Output output.Output
	// Recorder, if set, gets a copy of every assembled frame
	Recorder Recorder
	Metrics  *metrics.Metrics
	// Diagnostics receives gap reports; defaults to stdout
	Diagnostics io.Writer

	PrimaryDecoder   string
	AlternateDecoder string
	// BufferFrames is the playback buffer size in frames
	BufferFrames int

	// Scan interval and window in 0.625 ms units
	ScanInterval uint16
	ScanWindow   uint16
	// Sync timeouts in 10 ms units
	PeriodicSyncTimeout uint16
	BIGSyncTimeout      uint16
	BIGHandle           uint8

	// AutoStart begins scanning as soon as the controller is ready
	AutoStart bool

	OnStateChange func(State)
	OnError       func(error)
}

func (o *Options) setDefaults() {
	if o.Diagnostics == nil {
		o.Diagnostics = os.Stdout
	}
	if o.PrimaryDecoder == "" {
		o.PrimaryDecoder = "lc3"
	}
	if o.AlternateDecoder == "" {
		o.AlternateDecoder = "opus"
	}
	if o.BufferFrames <= 0 {
		o.BufferFrames = 10
	}
	if o.ScanInterval == 0 {
		o.ScanInterval = 0x30
	}
	if o.ScanWindow == 0 {
		o.ScanWindow = 0x30
	}
	if o.PeriodicSyncTimeout == 0 {
		o.PeriodicSyncTimeout = 1000
	}
	if o.BIGSyncTimeout == 0 {
		o.BIGSyncTimeout = 100
	}
	if o.BIGHandle == 0 {
		o.BIGHandle = 1
	}
}

// Sink follows one broadcast at a time. Every method must be called from
// the scheduler's goroutine.
type Sink struct {
	opts Options

	state              State
	controllerReady    bool
	alternateRequested bool

	session    *Session
	assembler  *playback.Assembler
	gap        *gapReporter
	outputOpen bool
	stats      statsReporter
}

// New creates a sink waiting for its controller
func New(opts Options) (*Sink, error) {
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if opts.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	opts.setDefaults()

	s := &Sink{opts: opts, state: StateWaitControllerReady}
	s.opts.Metrics.SetState(int(s.state))
	return s, nil
}

// State returns the current state
func (s *Sink) State() State {
	return s.state
}

// Session returns the active session, or nil
func (s *Sink) Session() *Session {
	return s.session
}

// HandleEvent processes one controller event
func (s *Sink) HandleEvent(ev hci.Event) {
	switch ev := ev.(type) {
	case hci.ControllerReady:
		s.onControllerReady()

	case hci.HardwareError:
		s.fail(fmt.Errorf("%w: hardware error 0x%02x", ErrHardware, ev.Code))

	case hci.TransportError:
		s.fail(fmt.Errorf("%w: %v", ErrHardware, ev.Err))

	case hci.CommandComplete:
		if ev.Status != 0 {
			log.Printf("Command %s failed with status 0x%02x", hci.Command{Opcode: ev.Opcode}, ev.Status)
		}

	case hci.CommandStatus:
		if ev.Status != 0 {
			log.Printf("Command %s rejected with status 0x%02x", hci.Command{Opcode: ev.Opcode}, ev.Status)
		}

	case hci.AdvReport:
		if s.state == StateWaitBroadcastAdvertisement {
			s.onAdvertisement(ev)
		}

	case hci.PeriodicSyncEstablished:
		s.onPeriodicSyncEstablished(ev)

	case hci.PeriodicAdvReport:
		if s.state == StateWaitConfigurationAndGroupInfo && !s.session.HaveBASE {
			s.onPeriodicReport(ev)
			s.checkReady()
		}

	case hci.BIGInfoReport:
		if s.state == StateWaitConfigurationAndGroupInfo && !s.session.HaveBIGInfo {
			s.onBIGInfo(ev)
			s.checkReady()
		}

	case hci.BIGSyncCreated:
		if s.state == StateWaitGroupSyncEstablished {
			s.onBIGSyncCreated(ev)
		}

	case hci.BIGSyncFailed:
		if s.state == StateWaitGroupSyncEstablished {
			log.Printf("BIG sync failed with status 0x%02x, restarting discovery", ev.Status)
			s.restartDiscovery()
		}

	case hci.BIGSyncLost:
		if s.state == StateStreaming || s.state == StateWaitGroupSyncEstablished {
			log.Printf("BIG sync lost (reason 0x%02x)", ev.Reason)
			s.opts.Metrics.SessionLost()
			s.restartDiscovery()
		}
	}
}

func (s *Sink) onControllerReady() {
	log.Printf("Controller ready")
	s.controllerReady = true
	if s.state != StateWaitControllerReady {
		return
	}
	if s.opts.AutoStart {
		s.startScanning()
	}
}

func (s *Sink) fail(err error) {
	log.Printf("Controller error: %v", err)
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
}

// StartScanning begins discovery once the controller is ready. It only
// applies before the first scan.
func (s *Sink) StartScanning() error {
	if !s.controllerReady {
		return fmt.Errorf("%w: controller not ready", ErrNotReady)
	}
	if s.state != StateWaitControllerReady {
		return fmt.Errorf("%w: already %s", ErrNotReady, s.state)
	}
	s.startScanning()
	return nil
}

// RequestAlternateDecoder selects the alternate decoder for the next
// session that uses 10 ms frames
func (s *Sink) RequestAlternateDecoder() {
	s.alternateRequested = true
	log.Printf("Using %s decoder for 10 ms frames", s.opts.AlternateDecoder)
}

func (s *Sink) startScanning() {
	s.setState(StateWaitBroadcastAdvertisement)
	s.send(hci.SetExtendedScanParameters(hci.ScanParams{
		ScanType:     hci.ScanActive,
		Interval:     s.opts.ScanInterval,
		Window:       s.opts.ScanWindow,
		FilterPolicy: hci.FilterAcceptAll,
	}))
	s.send(hci.SetExtendedScanEnable(true))
	log.Printf("Start scan..")
}

func (s *Sink) onAdvertisement(rep hci.AdvReport) {
	src, ok := matchSource(rep)
	if !ok {
		return
	}
	log.Printf("Broadcast source found, addr %s, name: '%s' (pts-mode: %v, count: %v)",
		src.Address, src.Name, src.PTSMode, src.CountMode)

	s.session = newSession(src)

	// Ignore every other advertiser from here on
	s.send(hci.AddDeviceToAcceptList(src.AddressType, src.Address))
	s.send(hci.SetExtendedScanParameters(hci.ScanParams{
		ScanType:     hci.ScanActive,
		Interval:     s.opts.ScanInterval,
		Window:       s.opts.ScanWindow,
		FilterPolicy: hci.FilterAcceptList,
	}))
	s.send(hci.ClearPeriodicAdvertiserList())
	s.send(hci.AddDeviceToPeriodicAdvertiserList(src.AddressType, src.Address, src.SID))

	s.setState(StateWaitConfigurationAndGroupInfo)
	log.Printf("Start periodic advertising sync")
	s.send(hci.PeriodicAdvCreateSync(hci.PeriodicSyncParams{
		Options:     hci.PeriodicSyncUseList,
		SID:         src.SID,
		AddressType: src.AddressType,
		Address:     src.Address,
		Timeout:     s.opts.PeriodicSyncTimeout,
	}))
}

func (s *Sink) onPeriodicSyncEstablished(ev hci.PeriodicSyncEstablished) {
	if s.state != StateWaitConfigurationAndGroupInfo {
		return
	}
	if ev.Status != 0 {
		log.Printf("Periodic advertising sync failed with status 0x%02x, restarting discovery", ev.Status)
		s.restartDiscovery()
		return
	}
	s.session.SyncHandle = ev.SyncHandle
	s.session.PeriodicSynced = true
	log.Printf("Periodic advertising sync established, handle 0x%04x", ev.SyncHandle)
}

func (s *Sink) onPeriodicReport(rep hci.PeriodicAdvReport) {
	sess := s.session
	sess.SyncHandle = rep.SyncHandle
	sess.PeriodicSynced = true

	if sess.Source.VendorFallback {
		sess.Config = leaudio.DefaultAudioConfig()
		sess.Source.PTSMode = false
		sess.Source.CountMode = false
		sess.HaveBASE = true
		log.Printf("Source sends no BASE, using %s", sess.Config)
		return
	}

	if !rep.Complete() {
		log.Printf("Periodic advertisement (status %d): %s", rep.DataStatus, hex.EncodeToString(rep.Data))
		return
	}

	base, found, err := leaudio.FindBASE(rep.Data)
	if err != nil {
		log.Printf("Discarding periodic advertisement: %v", err)
		return
	}
	if !found {
		return
	}
	cfg, err := base.AudioConfig()
	if err != nil {
		log.Printf("Discarding BASE: %v", err)
		return
	}

	sess.Config = cfg
	sess.HaveBASE = true
	log.Printf("BASE: presentation delay %v, %d subgroups, %s", cfg.PresentationDelay, cfg.NumSubgroups, cfg)
}

func (s *Sink) onBIGInfo(ev hci.BIGInfoReport) {
	sess := s.session
	sess.BIGInfo = ev
	sess.SyncHandle = ev.SyncHandle
	sess.PeriodicSynced = true
	sess.HaveBIGInfo = true
	log.Printf("BIGInfo: sync handle 0x%04x, %d bis, max sdu %d, encrypted %v",
		ev.SyncHandle, ev.NumBIS, ev.MaxSDU, ev.Encrypted)
}

func (s *Sink) checkReady() {
	if s.session.ready() {
		s.enterCreateBIGSync()
	}
}

func (s *Sink) enterCreateBIGSync() {
	sess := s.session
	cfg := sess.Config

	s.send(hci.SetExtendedScanEnable(false))

	sess.channels = make([]*channel, cfg.NumBIS)
	for i := range sess.channels {
		sess.channels[i] = &channel{index: i}
	}

	if sess.Source.CountMode {
		s.gap = newGapReporter(s.opts.Diagnostics, s.opts.Metrics)
		log.Printf("Configure: %d channels in gap reporting mode", cfg.NumBIS)
	} else {
		if err := s.setupDecoders(); err != nil {
			log.Printf("Decoder setup failed: %v", err)
			s.restartDiscovery()
			return
		}
		if err := s.setupPlayback(); err != nil {
			log.Printf("Playback setup failed: %v", err)
			if s.opts.OnError != nil {
				s.opts.OnError(fmt.Errorf("playback setup: %w", err))
			}
			s.restartDiscovery()
			return
		}
		log.Printf("Configure: %d channels, sampling rate %d, samples per frame %d, decoder %s",
			cfg.NumBIS, cfg.SampleRateHz, s.assembler.SamplesPerFrame(), sess.Decoder)
	}

	bis := make([]uint8, cfg.NumBIS)
	for i := range bis {
		bis[i] = uint8(i + 1)
	}
	s.setState(StateWaitGroupSyncEstablished)
	log.Printf("BIG create sync for BIS %v", bis)
	s.send(hci.BIGCreateSync(hci.BIGSyncParams{
		BIGHandle:  s.opts.BIGHandle,
		SyncHandle: sess.SyncHandle,
		Timeout:    s.opts.BIGSyncTimeout,
		BIS:        bis,
	}))
}

// setupDecoders gives every channel its own decoder instance
func (s *Sink) setupDecoders() error {
	sess := s.session
	cfg := sess.Config

	name := s.opts.PrimaryDecoder
	if s.alternateRequested && cfg.FrameDuration == audio.FrameDuration10000us {
		name = s.opts.AlternateDecoder
	}

	err := s.newDecoders(name)
	if err != nil && name != s.opts.PrimaryDecoder {
		log.Printf("Decoder %s unavailable (%v), using %s", name, err, s.opts.PrimaryDecoder)
		name = s.opts.PrimaryDecoder
		err = s.newDecoders(name)
	}
	if err != nil {
		return err
	}
	sess.Decoder = name
	return nil
}

func (s *Sink) newDecoders(name string) error {
	sess := s.session
	cfg := sess.Config

	for _, ch := range sess.channels {
		d, err := decode.New(name)
		if err == nil {
			err = d.Configure(cfg.SampleRateHz, cfg.FrameDuration, cfg.OctetsPerFrame)
		}
		if err != nil {
			s.closeDecoders()
			return fmt.Errorf("%s decoder for channel %d: %w", name, ch.index, err)
		}
		ch.decoder = d
	}
	return nil
}

func (s *Sink) closeDecoders() {
	if s.session == nil {
		return
	}
	for _, ch := range s.session.channels {
		if ch.decoder != nil {
			ch.decoder.Close()
			ch.decoder = nil
		}
	}
}

// setupPlayback creates the playback buffer and starts the output
func (s *Sink) setupPlayback() error {
	sess := s.session
	cfg := sess.Config

	samplesPerFrame := sess.channels[0].decoder.SamplesPerFrame()
	frameBytes := cfg.NumBIS * samplesPerFrame * audio.BytesPerSample
	asm, err := playback.NewAssembler(playback.NewRing(s.opts.BufferFrames*frameBytes), cfg.NumBIS, samplesPerFrame)
	if err != nil {
		return err
	}
	asm.OnFrame = s.recordFrame
	asm.OnUnderrun = func(active bool) {
		if active {
			s.opts.Metrics.Underrun()
		}
	}
	s.assembler = asm

	rate := cfg.SampleRateHz
	if sess.Source.PTSMode && cfg.NumBIS > 1 {
		rate = cfg.SampleRateHz / cfg.NumBIS
		log.Printf("PTS workaround: playback at %d Hz", rate)
	}
	sess.PlaybackRate = rate

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.Open(cfg.NumBIS, cfg.SampleRateHz); err != nil {
			log.Printf("WAV dump disabled: %v", err)
		}
	}

	if s.opts.Output == nil {
		return nil
	}
	if err := s.opts.Output.Init(cfg.NumBIS, rate, s.Pull); err != nil {
		return fmt.Errorf("output init: %w", err)
	}
	s.outputOpen = true
	if err := s.opts.Output.StartStream(); err != nil {
		return fmt.Errorf("output start: %w", err)
	}
	return nil
}

func (s *Sink) recordFrame(pcm []int16) {
	if s.opts.Recorder == nil {
		return
	}
	if err := s.opts.Recorder.WriteFrame(pcm); err != nil {
		log.Printf("WAV dump write failed: %v", err)
	}
}

// Pull is the audio output callback. It must run on the scheduler's
// goroutine like every other Sink method.
func (s *Sink) Pull(buf []int16) {
	if s.assembler == nil {
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	s.assembler.Pull(buf)
}

func (s *Sink) onBIGSyncCreated(ev hci.BIGSyncCreated) {
	sess := s.session
	if len(ev.Handles) < len(sess.channels) {
		log.Printf("BIG sync created with %d streams, expected %d, restarting discovery", len(ev.Handles), len(sess.channels))
		s.send(hci.BIGTerminateSync(s.opts.BIGHandle))
		s.restartDiscovery()
		return
	}
	handles := ev.Handles[:len(sess.channels)]
	for i, handle := range handles {
		for _, other := range handles[:i] {
			if handle == other {
				log.Printf("BIG sync created with duplicate connection handle 0x%04x, restarting discovery", handle)
				s.send(hci.BIGTerminateSync(s.opts.BIGHandle))
				s.restartDiscovery()
				return
			}
		}
	}

	for i, ch := range sess.channels {
		ch.timer.Stop()
		ch.timer = nil
		ch.handle = ev.Handles[i]
		ch.lastSeq = 0
		ch.received = false
		ch.prefix = nil
		ch.framesThisSecond = 0
	}
	log.Printf("BIG sync created with BIS connection handles %v", ev.Handles[:len(sess.channels)])

	now := s.opts.Scheduler.Now()
	sess.Started = now
	s.stats.reset(now, s.assembler)
	s.opts.Metrics.SessionStarted()
	s.setState(StateStreaming)
	log.Printf("Start receiving, session %s", sess.ID)
}

// HandleISO processes one ISO data packet (without H4 indicator)
func (s *Sink) HandleISO(data []byte) {
	if s.state != StateStreaming {
		return
	}

	pkt, err := leaudio.DecodeISO(data)
	if err != nil {
		log.Printf("Dropping ISO packet: %v", err)
		return
	}
	if pkt.SDULength == 0 || len(pkt.SDU) == 0 {
		return
	}

	ch, ok := s.session.channelFor(pkt.Handle)
	if !ok {
		return
	}

	now := s.opts.Scheduler.Now()
	if s.gap != nil {
		s.gap.observe(ch, pkt, now, s.session.Started)
		return
	}
	s.onPacket(ch, pkt, now)
}

// Shutdown leaves the broadcast, closes outputs and powers the radio off
func (s *Sink) Shutdown() error {
	if s.state == StateIdle {
		return nil
	}
	log.Printf("Shutdown...")

	switch s.state {
	case StateWaitBroadcastAdvertisement:
		s.send(hci.SetExtendedScanEnable(false))
	case StateWaitConfigurationAndGroupInfo:
		s.send(hci.SetExtendedScanEnable(false))
		if s.session.PeriodicSynced {
			s.send(hci.PeriodicAdvTerminateSync(s.session.SyncHandle))
		} else {
			s.send(hci.PeriodicAdvCreateSyncCancel())
		}
	case StateWaitGroupSyncEstablished, StateStreaming:
		s.send(hci.BIGTerminateSync(s.opts.BIGHandle))
	}

	s.teardownSession()
	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.Close(); err != nil {
			log.Printf("Failed to close WAV dump: %v", err)
		}
	}
	s.setState(StateIdle)

	if err := s.opts.Controller.PowerOff(); err != nil {
		return fmt.Errorf("power off: %w", err)
	}
	return nil
}

// restartDiscovery drops the session and scans again from scratch
func (s *Sink) restartDiscovery() {
	s.teardownSession()
	s.startScanning()
}

// teardownSession cancels every timer before discarding channel state
func (s *Sink) teardownSession() {
	if sess := s.session; sess != nil {
		for _, ch := range sess.channels {
			ch.timer.Stop()
			ch.timer = nil
		}
		s.closeDecoders()
		sess.channels = nil
	}

	if s.outputOpen {
		if err := s.opts.Output.StopStream(); err != nil {
			log.Printf("Failed to stop output: %v", err)
		}
		if err := s.opts.Output.Close(); err != nil {
			log.Printf("Failed to close output: %v", err)
		}
		s.outputOpen = false
	}

	s.assembler = nil
	s.gap = nil
	s.session = nil
}

func (s *Sink) setState(state State) {
	if s.state == state {
		return
	}
	log.Printf("State: %s -> %s", s.state, state)
	s.state = state
	s.opts.Metrics.SetState(int(state))
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(state)
	}
}

func (s *Sink) send(cmd hci.Command) {
	if err := s.opts.Controller.Send(cmd); err != nil {
		log.Printf("Failed to send %s: %v", cmd, err)
	}
}
