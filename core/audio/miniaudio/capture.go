// Package miniaudio captures microphone audio with miniaudio and exposes it
// as a channel of encoded chunks.
package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/overlay-core/core/audio"
)

const (
	periodSizeInFrames = 480
	bufferedChunks     = 64
)

var ErrUnsupportedEncoding = errors.New("capture supports linear16 only")

// Capture records single channel audio from the default input device.
type Capture struct {
	// audioContext is only kept to uninitialize it
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	encoding     audio.EncodingInfo

	mu      sync.Mutex
	out     chan []byte
	started bool
	closed  bool
}

func NewCapture(encoding audio.EncodingInfo) (*Capture, error) {
	if encoding.IsZero() {
		encoding = audio.GetDefaultEncodingInfo()
	}
	if encoding.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedEncoding, encoding.Format.Name())
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	c := &Capture{
		audioContext: audioCtx,
		encoding:     encoding,
		out:          make(chan []byte, bufferedChunks),
	}

	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(encoding.SampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = periodSizeInFrames
	config.Periods = 3

	c.device, err = malgo.InitDevice(audioCtx.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			c.deliver(pInput[:n])
		},
	})
	if err != nil {
		c.freeContext()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return c, nil
}

func (c *Capture) Encoding() audio.EncodingInfo { return c.encoding }

// Start begins recording. The returned channel is closed by Close or once
// ctx is done.
func (c *Capture) Start(ctx context.Context) (<-chan []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("capture closed")
	}
	if c.started {
		return c.out, nil
	}

	if err := c.device.Start(); err != nil {
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}
	c.started = true

	go func() {
		<-ctx.Done()
		if err := c.Close(); err != nil {
			logger.Warn("failed to close capture", "error", err)
		}
	}()

	return c.out, nil
}

// deliver copies a device buffer into the output channel. Chunks are
// dropped while the consumer is behind.
func (c *Capture) deliver(samples []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	chunk := make([]byte, len(samples))
	copy(chunk, samples)
	select {
	case c.out <- chunk:
	default:
		logger.Debug("dropping captured audio, consumer is behind", "bytes", len(chunk))
	}
}

func (c *Capture) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.out)
	device := c.device
	c.mu.Unlock()

	var err error
	if device != nil {
		if device.IsStarted() {
			if stopErr := device.Stop(); stopErr != nil {
				err = fmt.Errorf("failed to stop capture device: %w", stopErr)
			}
		}
		device.Uninit()
	}
	c.freeContext()
	return err
}

func (c *Capture) freeContext() {
	if c.audioContext == nil {
		return
	}
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
	c.audioContext = nil
}
