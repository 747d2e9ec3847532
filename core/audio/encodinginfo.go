// Package audio describes the raw audio fed to a streaming transcript source.
package audio

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultSampleRate = 16000
	DefaultFormat     = EncodingLinear16
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: DefaultFormat}
}

// EncodingInfo describes single channel PCM or companded audio.
type EncodingInfo struct {
	SampleRate int
	Format     EncodingFormat
}

// ParseEncoding builds an EncodingInfo from a format name such as
// "linear16" and a sample rate in Hz.
func ParseEncoding(format string, sampleRate int) (EncodingInfo, error) {
	encoding := EncodingInfo{SampleRate: sampleRate, Format: EncodingFormat(strings.ToLower(strings.TrimSpace(format)))}
	if encoding.Format.ByteSize() < 0 {
		return EncodingInfo{}, fmt.Errorf("unknown audio format %q", format)
	}
	if sampleRate <= 0 {
		return EncodingInfo{}, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return encoding, nil
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	}
	return 0
}

// ChunkSize is the number of bytes holding d worth of audio.
func (e EncodingInfo) ChunkSize(d time.Duration) int {
	size := e.Format.ByteSize()
	if size < 0 {
		return 0
	}
	return int(int64(e.SampleRate) * int64(size) * d.Milliseconds() / 1000)
}

// Silence returns d worth of silent audio.
func (e EncodingInfo) Silence(d time.Duration) []byte {
	chunk := make([]byte, e.ChunkSize(d))
	if value := e.SilenceValue(); value != 0 {
		for i := range chunk {
			chunk[i] = value
		}
	}
	return chunk
}

type EncodingFormat string

func (e EncodingFormat) Name() string {
	return string(e)
}

func (e EncodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    EncodingFormat = "mulaw"
	EncodingALaw     EncodingFormat = "alaw"
	EncodingLinear16 EncodingFormat = "linear16"
)
