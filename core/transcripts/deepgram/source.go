// Package deepgram streams audio to the Deepgram live transcription API and
// exposes the results as a restartable transcripts.Source.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/overlay-core/core/audio"
	"github.com/koscakluka/overlay-core/core/transcripts"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultListenURL = "wss://api.deepgram.com/v1/listen"
	DefaultModel     = "nova-3"
	DefaultLanguage  = "en-US"

	APIKeyEnv = "DEEPGRAM_API_KEY"

	keepAliveInterval = 5 * time.Second
)

var ErrMissingAPIKey = errors.New("deepgram api key not found")

type SourceOption func(*Source)

// WithAPIKey overrides the key read from DEEPGRAM_API_KEY.
func WithAPIKey(apiKey string) SourceOption {
	return func(s *Source) { s.apiKey = apiKey }
}

func WithListenURL(listenURL string) SourceOption {
	return func(s *Source) {
		if listenURL != "" {
			s.listenURL = listenURL
		}
	}
}

func WithEncoding(encoding audio.EncodingInfo) SourceOption {
	return func(s *Source) {
		if !encoding.IsZero() {
			s.encoding = encoding
		}
	}
}

func WithModel(model string) SourceOption {
	return func(s *Source) {
		if model != "" {
			s.model = model
		}
	}
}

func WithLanguage(language string) SourceOption {
	return func(s *Source) {
		if language != "" {
			s.language = language
		}
	}
}

func WithDialer(dialer *websocket.Dialer) SourceOption {
	return func(s *Source) {
		if dialer != nil {
			s.dialer = dialer
		}
	}
}

// Source opens one Deepgram websocket per transcript stream and forwards
// audio chunks from a shared channel to whichever stream is open. Closing the
// audio channel ends the current stream and the source.
type Source struct {
	apiKey    string
	listenURL string
	model     string
	language  string
	encoding  audio.EncodingInfo
	dialer    *websocket.Dialer

	audio  <-chan []byte
	closed atomic.Bool
}

func NewSource(audioIn <-chan []byte, opts ...SourceOption) *Source {
	s := &Source{
		listenURL: DefaultListenURL,
		model:     DefaultModel,
		language:  DefaultLanguage,
		encoding:  audio.GetDefaultEncodingInfo(),
		dialer:    websocket.DefaultDialer,
		audio:     audioIn,
	}
	s.apiKey, _ = os.LookupEnv(APIKeyEnv)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Source) Transcripts(ctx context.Context) (<-chan transcripts.Transcript, error) {
	if s.audio == nil || s.closed.Load() {
		return nil, transcripts.ErrSourceClosed
	}

	ctx, span := tracer.Start(ctx, "open deepgram stream")
	defer span.End()

	if err := validateEncoding(s.encoding); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid encoding")
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}
	span.SetAttributes(
		attribute.String("encoding", s.encoding.Format.Name()),
		attribute.Int("sample_rate", s.encoding.SampleRate),
	)

	conn, err := s.connectWebsocket(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open websocket")
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream := &listenStream{conn: conn, lastWrite: time.Now()}
	out := make(chan transcripts.Transcript)

	go func() {
		<-streamCtx.Done()
		stream.close()
	}()
	go s.pumpAudio(streamCtx, stream)
	go func() {
		defer cancel()
		defer close(out)
		stream.readTranscripts(streamCtx, out)
	}()

	return out, nil
}

func (s *Source) connectWebsocket(ctx context.Context) (*websocket.Conn, error) {
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	listenURL, err := url.Parse(s.listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}
	queryParams := listenURL.Query()
	setEncodingParams(queryParams, s.encoding)
	queryParams.Set("model", s.model)
	queryParams.Set("language", s.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := s.dialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

// pumpAudio forwards audio to the stream until ctx is done or the audio
// channel closes, keeping the connection alive while no audio arrives.
func (s *Source) pumpAudio(ctx context.Context, stream *listenStream) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-s.audio:
			if !ok {
				s.closed.Store(true)
				if err := stream.closeStream(); err != nil {
					logger.Warn("failed to close deepgram stream", "error", err)
				}
				return
			}
			if err := stream.sendAudio(chunk); err != nil {
				logger.Warn("failed to send audio to deepgram", "error", err)
				return
			}
		case <-ticker.C:
			if err := stream.keepAlive(keepAliveInterval); err != nil {
				logger.Warn("failed to send keep alive to deepgram", "error", err)
			}
		}
	}
}

type controlMessage struct {
	Type string `json:"type"`
}

type listenStream struct {
	connMu    sync.Mutex
	conn      *websocket.Conn
	lastWrite time.Time
	closed    bool
}

func (s *listenStream) sendAudio(chunk []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed {
		return net.ErrClosed
	}
	s.lastWrite = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (s *listenStream) keepAlive(idle time.Duration) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed || time.Since(s.lastWrite) < idle {
		return nil
	}
	s.lastWrite = time.Now()
	return s.conn.WriteJSON(controlMessage{Type: "KeepAlive"})
}

// closeStream asks Deepgram to flush pending results and end the stream.
func (s *listenStream) closeStream() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed {
		return nil
	}
	return s.conn.WriteJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)})
}

func (s *listenStream) close() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.conn.Close()
}

func (s *listenStream) readTranscripts(ctx context.Context, out chan<- transcripts.Transcript) {
	var assembler utteranceAssembler
	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("failed to read deepgram websocket message", "error", err)
			}
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		transcript, ok, err := assembler.process(msg)
		if err != nil {
			logger.Warn("failed to process deepgram message", "error", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case out <- transcript:
		case <-ctx.Done():
			return
		}
	}
}
