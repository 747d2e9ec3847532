// Package transcripts defines the inbound transcript stream contract. A
// speech-to-text provider is treated as an opaque producer of possibly
// partial utterance strings.
package transcripts

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Transcript is the latest text of the current utterance. Partial results
// carry the cumulative text so far; IsFinal closes the utterance.
type Transcript struct {
	Text       string
	IsFinal    bool
	ReceivedAt time.Time
}

func Partial(text string) Transcript {
	return Transcript{Text: text, ReceivedAt: time.Now()}
}

func Final(text string) Transcript {
	return Transcript{Text: text, IsFinal: true, ReceivedAt: time.Now()}
}

// ErrSourceClosed is returned by a Source that cannot produce any further
// streams.
var ErrSourceClosed = errors.New("transcript source closed")

// Source opens a transcript stream. The returned channel is closed when the
// stream ends or ctx is cancelled. Listening restarts by calling Transcripts
// again.
type Source interface {
	Transcripts(ctx context.Context) (<-chan Transcript, error)
}

// ChannelSource adapts a single long-lived channel into a restartable
// Source. Streams are served one at a time; a transcript taken off the
// shared channel by a cancelled stream is handed to the next one.
type ChannelSource struct {
	in <-chan Transcript

	streamMu sync.Mutex

	mu      sync.Mutex
	pending []Transcript
	closed  bool
}

func NewChannelSource(in <-chan Transcript) *ChannelSource {
	return &ChannelSource{in: in}
}

func (s *ChannelSource) Transcripts(ctx context.Context) (<-chan Transcript, error) {
	if s == nil || s.in == nil || s.isClosed() {
		return nil, ErrSourceClosed
	}

	out := make(chan Transcript)
	go func() {
		s.streamMu.Lock()
		defer s.streamMu.Unlock()
		defer close(out)

		for {
			transcript, ok := s.popPending()
			if !ok {
				select {
				case <-ctx.Done():
					return
				case transcript, ok = <-s.in:
					if !ok {
						s.markClosed()
						return
					}
				}
			}

			select {
			case out <- transcript:
			case <-ctx.Done():
				s.pushPending(transcript)
				return
			}
		}
	}()

	return out, nil
}

func (s *ChannelSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed && len(s.pending) == 0
}

func (s *ChannelSource) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
}

func (s *ChannelSource) popPending() (Transcript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return Transcript{}, false
	}
	transcript := s.pending[0]
	s.pending = s.pending[1:]
	return transcript, true
}

func (s *ChannelSource) pushPending(transcript Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append([]Transcript{transcript}, s.pending...)
}
