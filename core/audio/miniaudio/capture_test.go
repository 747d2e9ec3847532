package miniaudio

import (
	"errors"
	"testing"

	"github.com/koscakluka/overlay-core/core/audio"
)

func TestDeliverCopiesSamples(t *testing.T) {
	c := &Capture{out: make(chan []byte, 1)}

	samples := []byte{1, 2, 3, 4}
	c.deliver(samples)
	samples[0] = 9

	chunk := <-c.out
	if chunk[0] != 1 || len(chunk) != 4 {
		t.Fatalf("expected an independent copy of the samples, got %v", chunk)
	}
}

func TestDeliverDropsWhenConsumerIsBehind(t *testing.T) {
	c := &Capture{out: make(chan []byte, 1)}

	c.deliver([]byte{1})
	c.deliver([]byte{2})

	if got := len(c.out); got != 1 {
		t.Fatalf("expected 1 buffered chunk, got %d", got)
	}
	if chunk := <-c.out; chunk[0] != 1 {
		t.Fatalf("expected the first chunk to be kept, got %v", chunk)
	}
}

func TestCloseEndsStream(t *testing.T) {
	c := &Capture{out: make(chan []byte, 1)}

	if err := c.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	c.deliver([]byte{1})
	if _, ok := <-c.out; ok {
		t.Fatalf("expected the stream to be closed")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("expected a second close to be a no-op, got %v", err)
	}
}

func TestNewCaptureRejectsCompandedAudio(t *testing.T) {
	_, err := NewCapture(audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw})
	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Fatalf("expected ErrUnsupportedEncoding, got %v", err)
	}
}
