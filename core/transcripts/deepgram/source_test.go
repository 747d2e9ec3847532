package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/overlay-core/core/audio"
	"github.com/koscakluka/overlay-core/core/transcripts"
)

type handshake struct {
	authorization string
	query         url.Values
}

type fakeDeepgram struct {
	server     *httptest.Server
	handshakes chan handshake
	controls   chan string
}

// newFakeDeepgram serves a listen endpoint that waits for the first client
// message, replies with script and then closes the stream normally.
func newFakeDeepgram(t *testing.T, script ...[]byte) *fakeDeepgram {
	t.Helper()

	fake := &fakeDeepgram{
		handshakes: make(chan handshake, 4),
		controls:   make(chan string, 4),
	}
	upgrader := websocket.Upgrader{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.handshakes <- handshake{authorization: r.Header.Get("Authorization"), query: r.URL.Query()}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.TextMessage {
			var control controlMessage
			if json.Unmarshal(msg, &control) == nil {
				fake.controls <- control.Type
			}
		}

		for _, reply := range script {
			if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *fakeDeepgram) url() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func collect(t *testing.T, stream <-chan transcripts.Transcript) []transcripts.Transcript {
	t.Helper()

	var got []transcripts.Transcript
	timeout := time.After(2 * time.Second)
	for {
		select {
		case transcript, ok := <-stream:
			if !ok {
				return got
			}
			got = append(got, transcript)
		case <-timeout:
			t.Fatalf("expected stream to close, got %+v so far", got)
		}
	}
}

func TestSourceStreamsCumulativeTranscripts(t *testing.T) {
	fake := newFakeDeepgram(t,
		results("show", false, false),
		[]byte(`{"type":"SpeechStarted"}`),
		results("show bone", true, true),
	)

	audioIn := make(chan []byte, 1)
	source := NewSource(audioIn, WithAPIKey("test-key"), WithListenURL(fake.url()))

	stream, err := source.Transcripts(context.Background())
	if err != nil {
		t.Fatalf("expected stream to open, got %v", err)
	}
	audioIn <- audio.GetDefaultEncodingInfo().Silence(20 * time.Millisecond)

	got := collect(t, stream)
	if len(got) != 2 {
		t.Fatalf("expected 2 transcripts, got %+v", got)
	}
	if got[0].Text != "show" || got[0].IsFinal {
		t.Fatalf("expected partial \"show\", got %+v", got[0])
	}
	if got[1].Text != "show bone" || !got[1].IsFinal {
		t.Fatalf("expected final \"show bone\", got %+v", got[1])
	}

	request := <-fake.handshakes
	if request.authorization != "Token test-key" {
		t.Fatalf("expected token authorization, got %q", request.authorization)
	}
	expectedQuery := map[string]string{
		"encoding":        "linear16",
		"sample_rate":     "16000",
		"channels":        "1",
		"model":           DefaultModel,
		"interim_results": "true",
		"vad_events":      "true",
	}
	for key, expected := range expectedQuery {
		if got := request.query.Get(key); got != expected {
			t.Fatalf("expected %s=%s, got %q", key, expected, got)
		}
	}
}

func TestSourceClosesWhenAudioEnds(t *testing.T) {
	fake := newFakeDeepgram(t, results("hide skin", true, true))

	audioIn := make(chan []byte)
	source := NewSource(audioIn, WithAPIKey("test-key"), WithListenURL(fake.url()))

	stream, err := source.Transcripts(context.Background())
	if err != nil {
		t.Fatalf("expected stream to open, got %v", err)
	}
	close(audioIn)

	got := collect(t, stream)
	if len(got) != 1 || got[0].Text != "hide skin" {
		t.Fatalf("expected the flushed final transcript, got %+v", got)
	}
	if control := <-fake.controls; control != "CloseStream" {
		t.Fatalf("expected CloseStream, got %q", control)
	}

	if _, err := source.Transcripts(context.Background()); !errors.Is(err, transcripts.ErrSourceClosed) {
		t.Fatalf("expected ErrSourceClosed, got %v", err)
	}
}

func TestSourceStopsOnContextCancel(t *testing.T) {
	fake := newFakeDeepgram(t)

	source := NewSource(make(chan []byte), WithAPIKey("test-key"), WithListenURL(fake.url()))
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := source.Transcripts(ctx)
	if err != nil {
		t.Fatalf("expected stream to open, got %v", err)
	}

	cancel()
	if got := collect(t, stream); len(got) != 0 {
		t.Fatalf("expected no transcripts, got %+v", got)
	}
}

func TestSourceRequiresAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	source := NewSource(make(chan []byte))
	if _, err := source.Transcripts(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestSourceRejectsUnsupportedEncoding(t *testing.T) {
	source := NewSource(make(chan []byte),
		WithAPIKey("test-key"),
		WithEncoding(audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingMulaw}),
	)
	if _, err := source.Transcripts(context.Background()); err == nil {
		t.Fatalf("expected an encoding error")
	}
}

func TestSourceWithoutAudioIsClosed(t *testing.T) {
	source := NewSource(nil, WithAPIKey("test-key"))
	if _, err := source.Transcripts(context.Background()); !errors.Is(err, transcripts.ErrSourceClosed) {
		t.Fatalf("expected ErrSourceClosed, got %v", err)
	}
}
