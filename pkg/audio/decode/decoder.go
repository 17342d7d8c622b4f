// ABOUTME: Decoder interface definition and backend registry
// ABOUTME: Common frame decode contract for all broadcast codec backends
package decode

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Resonate-Protocol/leaudio-sink/pkg/audio"
)

// ErrUnknownCodec is returned by New for an unregistered backend name
var ErrUnknownCodec = errors.New("decode: unknown codec")

// Decoder decodes one codec frame per call into 16-bit PCM.
// A Decoder instance holds the state of exactly one stream.
type Decoder interface {
	// Configure prepares the decoder for a sample rate, frame duration and
	// the announced octets per codec frame
	Configure(sampleRate int, duration audio.FrameDuration, octetsPerFrame int) error

	// SamplesPerFrame returns the per-channel sample count of one frame
	SamplesPerFrame() int

	// Decode writes SamplesPerFrame samples to out[0], out[stride], ...
	// A nil payload or badFrame set requests a concealment frame. The
	// result reports whether the decoder detected a corrupted frame.
	Decode(payload []byte, badFrame bool, out []int16, stride int) (bool, error)

	// Close releases decoder resources
	Close() error
}

// Factory creates an unconfigured Decoder
type Factory func() Decoder

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"lc3":  NewLC3,
		"pcm":  NewPCM,
		"opus": NewOpus,
	}
)

// Register adds or replaces a named decoder backend
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New creates a decoder for the named backend
func New(name string) (Decoder, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	return f(), nil
}

// Names lists the registered backends
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkOutput verifies out can hold a strided frame
func checkOutput(out []int16, stride, samples int) error {
	if stride < 1 {
		return fmt.Errorf("invalid stride %d", stride)
	}
	if samples > 0 && len(out) < (samples-1)*stride+1 {
		return fmt.Errorf("output holds %d samples, need %d at stride %d", len(out), samples, stride)
	}
	return nil
}
