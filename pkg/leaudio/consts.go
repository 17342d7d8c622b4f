// ABOUTME: LE Audio assigned numbers used by the broadcast sink
// ABOUTME: AD types, service UUIDs, LTV tags and the sampling frequency table
package leaudio

import "errors"

// AD structure types
const (
	ADTypeShortenedLocalName = 0x08
	ADTypeCompleteLocalName  = 0x09
	ADTypeServiceData16      = 0x16
)

// 16-bit service UUIDs carried in service data
const (
	UUIDBasicAudioAnnouncement     uint16 = 0x1851
	UUIDBroadcastAudioAnnouncement uint16 = 0x1852
)

// Codec specific configuration LTV types
const (
	LTVSamplingFrequency      = 0x01
	LTVFrameDuration          = 0x02
	LTVAudioChannelAllocation = 0x03
	LTVOctetsPerCodecFrame    = 0x04
)

// MaxBIS is the largest number of streams a sink session handles
const MaxBIS = 2

// codecIDLen is coding format + company ID + vendor codec ID
const codecIDLen = 5

// samplingFrequencies maps LTV sampling frequency index 1..13 to Hz
var samplingFrequencies = [...]int{
	8000, 11025, 16000, 22050, 24000, 32000, 44100,
	48000, 88200, 96000, 176400, 192000, 384000,
}

var (
	// ErrTruncated is returned when a declared length runs past the buffer
	ErrTruncated = errors.New("leaudio: truncated data")

	// ErrInvalid is returned for structurally complete but unusable data
	ErrInvalid = errors.New("leaudio: invalid data")

	// ErrFragmented is returned for ISO continuation fragments
	ErrFragmented = errors.New("leaudio: fragmented iso sdu")
)

// SamplingFrequencyHz resolves an LTV sampling frequency index
func SamplingFrequencyHz(index uint8) (int, bool) {
	if index < 1 || int(index) > len(samplingFrequencies) {
		return 0, false
	}
	return samplingFrequencies[index-1], true
}
