// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo; the device data callback pulls through the sink callback
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library. Unlike oto it
// can close and reopen its device, so every session gets its own format.
type Malgo struct {
	mu         sync.Mutex
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate int
	channels   int
	period     time.Duration
	running    bool

	// reader is swapped by Init while the device may be pulling
	reader atomic.Pointer[callbackReader]
}

// NewMalgo creates a new Malgo output. period sizes the device period;
// zero uses miniaudio's default.
func NewMalgo(period time.Duration) Output {
	return &Malgo{period: period}
}

// Init opens the playback device for the given format, reusing it when the
// format is unchanged
func (m *Malgo) Init(channels, sampleRate int, cb Callback) error {
	if channels < 1 || sampleRate < 1 {
		return fmt.Errorf("invalid format: %d channels at %d Hz", channels, sampleRate)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil && m.sampleRate == sampleRate && m.channels == channels {
		log.Printf("Audio output already initialized with same format, reusing device")
		m.reader.Store(newCallbackReader(channels, cb))
		return nil
	}

	if m.device != nil {
		log.Printf("Format change detected (%dHz/%dch -> %dHz/%dch), reinitializing device",
			m.sampleRate, m.channels, sampleRate, channels)
		m.closeDevice()
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(m.period / time.Millisecond)
	deviceConfig.Alsa.NoMMap = 1

	m.reader.Store(newCallbackReader(channels, cb))
	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample)
		},
	})
	if err != nil {
		m.reader.Store(nil)
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	m.device = device
	m.sampleRate = sampleRate
	m.channels = channels

	log.Printf("Audio output initialized: %dHz, %d channels (malgo)", sampleRate, channels)
	return nil
}

// dataCallback is called by malgo to fill the device buffer
func (m *Malgo) dataCallback(pOutput []byte) {
	n := 0
	if r := m.reader.Load(); r != nil {
		n, _ = r.Read(pOutput)
	}
	for i := n; i < len(pOutput); i++ {
		pOutput[i] = 0
	}
}

// StartStream starts the device
func (m *Malgo) StartStream() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return fmt.Errorf("output not initialized")
	}
	if m.running {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.running = true
	return nil
}

// StopStream stops the device; its callback no longer runs afterwards
func (m *Malgo) StopStream() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil || !m.running {
		return nil
	}
	m.running = false
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device == nil {
		return
	}
	if m.running {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.running = false
	}
	m.device.Uninit()
	m.device = nil
	m.reader.Store(nil)
}
