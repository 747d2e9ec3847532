package deepgram

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/koscakluka/overlay-core/core/audio"
)

const compandedSampleRate = 8000

var ErrUnsupportedEncoding = errors.New("encoding not accepted by deepgram")

var supportedSampleRates = []int{8000, 16000, 24000, 32000, 48000}

// validateEncoding reports whether the listen endpoint accepts raw audio in
// encoding. A-law and mu-law are only accepted at telephony rate.
func validateEncoding(encoding audio.EncodingInfo) error {
	if !slices.Contains(supportedSampleRates, encoding.SampleRate) {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedEncoding, encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
	case audio.EncodingALaw, audio.EncodingMulaw:
		if encoding.SampleRate != compandedSampleRate {
			return fmt.Errorf("%w: %s requires %d Hz, got %d", ErrUnsupportedEncoding,
				encoding.Format.Name(), compandedSampleRate, encoding.SampleRate)
		}
	default:
		return fmt.Errorf("%w: format %q", ErrUnsupportedEncoding, encoding.Format.Name())
	}

	return nil
}

// setEncodingParams describes single channel raw audio on a listen URL.
func setEncodingParams(params url.Values, encoding audio.EncodingInfo) {
	params.Set("encoding", encoding.Format.Name())
	params.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	params.Set("channels", "1")
}
