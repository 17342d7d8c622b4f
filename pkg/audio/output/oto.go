// ABOUTME: Oto-based audio output implementation
// ABOUTME: Pulls PCM through the sink callback from oto's player goroutine
package output

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library
type Oto struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	sampleRate int
	channels   int
	bufferTime time.Duration
	suspended  bool
}

// NewOto creates a new Oto output. bufferTime sizes oto's device buffer;
// zero uses oto's default.
func NewOto(bufferTime time.Duration) Output {
	return &Oto{bufferTime: bufferTime}
}

// Init initializes the output device
func (o *Oto) Init(channels, sampleRate int, cb Callback) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// oto allows one context per process
	if o.otoCtx != nil && (o.sampleRate != sampleRate || o.channels != channels) {
		log.Printf("Audio output cannot switch from %dHz %dch to %dHz %dch",
			o.sampleRate, o.channels, sampleRate, channels)
		return fmt.Errorf("%w: oto is open at %dHz %dch, need %dHz %dch",
			ErrFormatChange, o.sampleRate, o.channels, sampleRate, channels)
	}

	if o.player != nil {
		o.player.Close()
		o.player = nil
	}

	switch {
	case o.otoCtx == nil:
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   o.bufferTime,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan

		o.otoCtx = ctx
		o.sampleRate = sampleRate
		o.channels = channels

	default:
		log.Printf("Audio output already initialized with same format, reusing context")
	}

	if o.suspended {
		if err := o.otoCtx.Resume(); err != nil {
			return fmt.Errorf("failed to resume oto context: %w", err)
		}
		o.suspended = false
	}

	o.player = o.otoCtx.NewPlayer(newCallbackReader(o.channels, cb))

	log.Printf("Audio output initialized: %dHz, %d channels", o.sampleRate, o.channels)
	return nil
}

// StartStream starts playback
func (o *Oto) StartStream() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return fmt.Errorf("output not initialized")
	}
	o.player.Play()
	return nil
}

// StopStream pauses playback
func (o *Oto) StopStream() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	o.player.Pause()
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var firstErr error
	if o.player != nil {
		firstErr = o.player.Close()
		o.player = nil
	}
	if o.otoCtx != nil && !o.suspended {
		if err := o.otoCtx.Suspend(); err != nil && firstErr == nil {
			firstErr = err
		}
		o.suspended = true
	}
	return firstErr
}
