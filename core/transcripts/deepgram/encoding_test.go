package deepgram

import (
	"errors"
	"net/url"
	"testing"

	"github.com/koscakluka/overlay-core/core/audio"
)

func TestValidateEncoding(t *testing.T) {
	testCases := []struct {
		name      string
		encoding  audio.EncodingInfo
		expectErr bool
	}{
		{name: "linear16 at 16kHz", encoding: audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingLinear16}},
		{name: "linear16 at 48kHz", encoding: audio.EncodingInfo{SampleRate: 48000, Format: audio.EncodingLinear16}},
		{name: "mulaw at 8kHz", encoding: audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw}},
		{name: "alaw at 8kHz", encoding: audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingALaw}},
		{name: "alaw at 16kHz", encoding: audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingALaw}, expectErr: true},
		{name: "unsupported rate", encoding: audio.EncodingInfo{SampleRate: 44100, Format: audio.EncodingLinear16}, expectErr: true},
		{name: "unknown format", encoding: audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingFormat("opus")}, expectErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := validateEncoding(testCase.encoding)
			if testCase.expectErr {
				if !errors.Is(err, ErrUnsupportedEncoding) {
					t.Fatalf("expected ErrUnsupportedEncoding, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestSetEncodingParams(t *testing.T) {
	params := url.Values{}
	setEncodingParams(params, audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw})

	expected := map[string]string{"encoding": "mulaw", "sample_rate": "8000", "channels": "1"}
	for key, value := range expected {
		if got := params.Get(key); got != value {
			t.Fatalf("expected %s=%s, got %q", key, value, got)
		}
	}
}
