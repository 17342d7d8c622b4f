// ABOUTME: Device-less audio output
// ABOUTME: Pulls and discards samples in real time for headless operation
package output

import (
	"fmt"
	"sync"
	"time"
)

// Null pulls samples at the configured rate and discards them, keeping the
// playback buffer draining when no audio device is present
type Null struct {
	mu       sync.Mutex
	interval time.Duration
	channels int
	rate     int
	cb       Callback
	stop     chan struct{}
	done     chan struct{}
	pulls    int64
}

// NewNull creates a Null output pulling every interval
func NewNull(interval time.Duration) *Null {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &Null{interval: interval}
}

// Init records the format and callback
func (n *Null) Init(channels, sampleRate int, cb Callback) error {
	if channels < 1 || sampleRate < 1 {
		return fmt.Errorf("invalid format: %d channels at %d Hz", channels, sampleRate)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = channels
	n.rate = sampleRate
	n.cb = cb
	return nil
}

// StartStream starts the pull ticker
func (n *Null) StartStream() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cb == nil {
		return fmt.Errorf("output not initialized")
	}
	if n.stop != nil {
		return nil
	}

	frames := int(int64(n.rate) * int64(n.interval) / int64(time.Second))
	if frames < 1 {
		frames = 1
	}
	buf := make([]int16, frames*n.channels)
	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	go n.run(n.cb, buf, n.stop, n.done)
	return nil
}

func (n *Null) run(cb Callback, buf []int16, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cb(buf)
			n.mu.Lock()
			n.pulls++
			n.mu.Unlock()
		}
	}
}

// StopStream stops the pull ticker and waits for it to exit
func (n *Null) StopStream() error {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

// Close stops the stream
func (n *Null) Close() error {
	return n.StopStream()
}

// Pulls returns how many times the callback has been invoked
func (n *Null) Pulls() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pulls
}
