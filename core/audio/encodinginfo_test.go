package audio

import (
	"testing"
	"time"
)

func TestParseEncoding(t *testing.T) {
	testCases := []struct {
		name       string
		format     string
		sampleRate int
		expected   EncodingInfo
		expectErr  bool
	}{
		{name: "linear16", format: "linear16", sampleRate: 16000, expected: EncodingInfo{SampleRate: 16000, Format: EncodingLinear16}},
		{name: "case and spaces", format: " MULAW ", sampleRate: 8000, expected: EncodingInfo{SampleRate: 8000, Format: EncodingMulaw}},
		{name: "unknown format", format: "flac", sampleRate: 16000, expectErr: true},
		{name: "missing rate", format: "alaw", sampleRate: 0, expectErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := ParseEncoding(testCase.format, testCase.sampleRate)
			if testCase.expectErr {
				if err == nil {
					t.Fatalf("expected an error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != testCase.expected {
				t.Fatalf("expected %+v, got %+v", testCase.expected, got)
			}
		})
	}
}

func TestSilence(t *testing.T) {
	linear := EncodingInfo{SampleRate: 16000, Format: EncodingLinear16}
	if got := linear.ChunkSize(50 * time.Millisecond); got != 1600 {
		t.Fatalf("expected 1600 bytes, got %d", got)
	}

	mulaw := EncodingInfo{SampleRate: 8000, Format: EncodingMulaw}
	chunk := mulaw.Silence(10 * time.Millisecond)
	if len(chunk) != 80 {
		t.Fatalf("expected 80 bytes, got %d", len(chunk))
	}
	for i, b := range chunk {
		if b != 0xFF {
			t.Fatalf("expected mulaw silence at %d, got %#x", i, b)
		}
	}
}
