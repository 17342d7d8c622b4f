// ABOUTME: WAV file dump of received audio
// ABOUTME: Writes every assembled 16-bit frame to a PCM WAV file
package wavdump

import (
	"fmt"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Writer records interleaved 16-bit frames to a WAV file. Open may be
// called again for a new session; the previous file is finalized first.
type Writer struct {
	path string

	file *os.File
	enc  *wav.Encoder
	buf  *audio.IntBuffer

	frames int
}

// New creates a writer for path; nothing is created until Open
func New(path string) *Writer {
	return &Writer{path: path}
}

// Open starts a new file for the given format, replacing any existing one
func (w *Writer) Open(channels, sampleRate int) error {
	if err := w.Close(); err != nil {
		log.Printf("Failed to finalize previous wav dump: %v", err)
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create wav dump: %w", err)
	}

	w.file = f
	w.enc = wav.NewEncoder(f, sampleRate, 16, channels, 1)
	w.buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	w.frames = 0

	log.Printf("Writing received audio to %s (%dch, %dHz)", w.path, channels, sampleRate)
	return nil
}

// WriteFrame appends one interleaved frame
func (w *Writer) WriteFrame(pcm []int16) error {
	if w.enc == nil {
		return nil
	}

	if cap(w.buf.Data) < len(pcm) {
		w.buf.Data = make([]int, len(pcm))
	}
	w.buf.Data = w.buf.Data[:len(pcm)]
	for i, s := range pcm {
		w.buf.Data[i] = int(s)
	}

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write wav frame: %w", err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written to the current file
func (w *Writer) Frames() int {
	return w.frames
}

// Close finalizes the header and closes the file
func (w *Writer) Close() error {
	if w.enc == nil {
		return nil
	}

	encErr := w.enc.Close()
	fileErr := w.file.Close()
	w.enc = nil
	w.file = nil

	if encErr != nil {
		return fmt.Errorf("failed to finalize wav dump: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("failed to close wav dump: %w", fileErr)
	}
	log.Printf("Closed wav dump %s after %d frames", w.path, w.frames)
	return nil
}
