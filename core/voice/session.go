// Package voice gates a continuous transcript stream behind spoken wake and
// sleep phrases and turns awake utterances into component commands.
package voice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/transcripts"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type State int

const (
	Asleep State = iota
	Awake
)

func (s State) String() string {
	switch s {
	case Asleep:
		return "asleep"
	case Awake:
		return "awake"
	default:
		return "unknown"
	}
}

const (
	DefaultSleepAfter           = 30 * time.Second
	DefaultCommandFlagDuration  = time.Second
	DefaultWakeFeedbackDuration = 500 * time.Millisecond
)

var (
	DefaultWakePhrases  = []string{"hey probe", "probe", "hey model", "model", "activate", "listen"}
	DefaultSleepPhrases = []string{"stop listening", "stop", "sleep", "goodbye"}
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	State            State
	WakeWordDetected bool
	CommandExecuted  bool
	RecognizedText   string
	ExecutedText     string
}

type SessionOption func(*Session)

func WithMatcher(matcher *commands.Matcher) SessionOption {
	return func(s *Session) {
		if matcher != nil {
			s.matcher = matcher
		}
	}
}

func WithClock(clock Clock) SessionOption {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithEventEmitter(emit func(events.Event)) SessionOption {
	return func(s *Session) {
		if emit != nil {
			s.emit = emit
		}
	}
}

// WithSleepAfter sets the inactivity window after which an awake session
// falls asleep.
func WithSleepAfter(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.sleepAfter = d
		}
	}
}

func WithWakePhrases(phrases ...string) SessionOption {
	return func(s *Session) { s.wakePhrases = normalizePhrases(phrases) }
}

func WithSleepPhrases(phrases ...string) SessionOption {
	return func(s *Session) { s.sleepPhrases = normalizePhrases(phrases) }
}

// Session is the wake/sleep gate. It is safe for concurrent use; transcripts
// are expected from one goroutine while timers fire from others.
type Session struct {
	matcher *commands.Matcher
	clock   Clock
	emit    eventEmitter

	sleepAfter      time.Duration
	commandFlagFor  time.Duration
	wakeFeedbackFor time.Duration
	wakePhrases     []string
	sleepPhrases    []string

	mu      sync.Mutex
	state   State
	stopped bool

	sleepTimer    guardedTimer
	executedTimer guardedTimer
	wakeTimer     guardedTimer

	// handledText is the normalized text that produced the last command.
	// Partials extending it belong to the same utterance and are ignored.
	handledText string

	wakeWordDetected bool
	commandExecuted  bool
	recognizedText   string
	executedText     string
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		matcher:         commands.NewMatcher(),
		clock:           RealClock,
		emit:            noopEventEmitter,
		sleepAfter:      DefaultSleepAfter,
		commandFlagFor:  DefaultCommandFlagDuration,
		wakeFeedbackFor: DefaultWakeFeedbackDuration,
		wakePhrases:     normalizePhrases(DefaultWakePhrases),
		sleepPhrases:    normalizePhrases(DefaultSleepPhrases),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		State:            s.state,
		WakeWordDetected: s.wakeWordDetected,
		CommandExecuted:  s.commandExecuted,
		RecognizedText:   s.recognizedText,
		ExecutedText:     s.executedText,
	}
}

// HandleTranscript advances the state machine with the latest text of the
// current utterance. It returns the command recognized from it, if any.
func (s *Session) HandleTranscript(ctx context.Context, transcript transcripts.Transcript) (commands.Match, bool) {
	ctx, span := tracer.Start(ctx, "handle transcript", trace.WithAttributes(
		attribute.Bool("transcript.final", transcript.IsFinal),
	))
	defer span.End()

	var pending []events.Event
	match, matched := s.handle(transcript, &pending)
	span.SetAttributes(attribute.String("voice.state", s.State().String()))
	if matched {
		span.SetAttributes(
			attribute.String("voice.command", match.Command.String()),
			attribute.String("voice.strategy", match.Strategy),
		)
		commandCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("voice.strategy", match.Strategy)))
	}

	for _, event := range pending {
		s.emit(event)
	}
	return match, matched
}

func (s *Session) handle(transcript transcripts.Transcript, pending *[]events.Event) (commands.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return commands.Match{}, false
	}

	text := commands.Normalize(transcript.Text)
	if text == "" {
		if transcript.IsFinal {
			s.handledText = ""
		}
		return commands.Match{}, false
	}
	s.recognizedText = transcript.Text

	defer func() {
		if transcript.IsFinal {
			s.handledText = ""
		}
	}()

	if containsPhrase(text, s.sleepPhrases) {
		if s.state == Awake {
			logger.Info("sleep phrase heard", "transcript", transcript.Text)
			s.fallAsleep(events.SleepReasonPhrase, pending)
		}
		return commands.Match{}, false
	}

	if s.state == Asleep {
		if containsPhrase(text, s.wakePhrases) {
			logger.Info("wake phrase heard", "transcript", transcript.Text)
			s.state = Awake
			s.armSleep()
			s.raiseWakeFeedback(pending)
			*pending = append(*pending, events.NewSessionAwake(transcript.Text))
		}
		return commands.Match{}, false
	}

	if s.handledText != "" {
		if strings.HasPrefix(text, s.handledText) {
			return commands.Match{}, false
		}
		// A transcript that does not extend the handled text starts a new
		// utterance, as when the stream was restarted before its final.
		s.handledText = ""
	}

	match, ok := s.matcher.Match(text)
	if !ok {
		logger.Debug("no command recognized", "transcript", transcript.Text)
		return commands.Match{}, false
	}

	s.handledText = text
	s.armSleep()
	s.raiseCommandExecuted(transcript.Text, pending)
	*pending = append(*pending, events.NewCommandRecognized(match.Command, match.Strategy, transcript.Text))
	logger.Info("command recognized",
		"command", match.Command.String(),
		"strategy", match.Strategy,
		"transcript", transcript.Text,
	)
	return match, true
}

// Stop puts the session to sleep for good and cancels every pending timer.
func (s *Session) Stop() {
	var pending []events.Event

	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.state == Awake {
			s.fallAsleep(events.SleepReasonStopped, &pending)
		}
		s.executedTimer.cancel()
		s.wakeTimer.cancel()
	}
	s.mu.Unlock()

	for _, event := range pending {
		s.emit(event)
	}
}

func (s *Session) fallAsleep(reason events.SleepReason, pending *[]events.Event) {
	s.state = Asleep
	s.handledText = ""
	s.sleepTimer.cancel()
	*pending = append(*pending, events.NewSessionAsleep(reason))
}

func (s *Session) armSleep() {
	s.sleepTimer.arm(s.clock, s.sleepAfter, s.onSleepDeadline)
}

func (s *Session) onSleepDeadline(generation uint64) {
	var pending []events.Event

	s.mu.Lock()
	if s.sleepTimer.current(generation) && s.state == Awake {
		logger.Info("session fell asleep after inactivity", "after", s.sleepAfter.String())
		s.fallAsleep(events.SleepReasonTimeout, &pending)
	}
	s.mu.Unlock()

	for _, event := range pending {
		s.emit(event)
	}
}

func (s *Session) raiseCommandExecuted(text string, pending *[]events.Event) {
	s.commandExecuted = true
	s.executedText = text
	*pending = append(*pending, events.NewCommandExecutedChanged(true, text))

	s.executedTimer.arm(s.clock, s.commandFlagFor, func(generation uint64) {
		s.clearFlag(generation, &s.executedTimer, &s.commandExecuted, events.NewCommandExecutedChanged(false, ""))
	})
}

func (s *Session) raiseWakeFeedback(pending *[]events.Event) {
	s.wakeWordDetected = true
	*pending = append(*pending, events.NewWakeWordDetectedChanged(true))

	s.wakeTimer.arm(s.clock, s.wakeFeedbackFor, func(generation uint64) {
		s.clearFlag(generation, &s.wakeTimer, &s.wakeWordDetected, events.NewWakeWordDetectedChanged(false))
	})
}

func (s *Session) clearFlag(generation uint64, timer *guardedTimer, flag *bool, cleared events.Event) {
	s.mu.Lock()
	fire := timer.current(generation) && *flag
	if fire {
		*flag = false
	}
	s.mu.Unlock()

	if fire {
		s.emit(cleared)
	}
}

// guardedTimer holds at most one armed timer. Arming bumps the generation so
// a callback that lost the race with a re-arm or cancel becomes a no-op.
// Callers hold the session mutex.
type guardedTimer struct {
	generation uint64
	timer      Timer
}

func (t *guardedTimer) arm(clock Clock, d time.Duration, fire func(generation uint64)) {
	t.cancel()
	generation := t.generation
	t.timer = clock.AfterFunc(d, func() { fire(generation) })
}

func (t *guardedTimer) cancel() {
	t.generation++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *guardedTimer) current(generation uint64) bool {
	return t.timer != nil && t.generation == generation
}

func normalizePhrases(phrases []string) []string {
	normalized := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		if phrase = commands.Normalize(phrase); phrase != "" {
			normalized = append(normalized, phrase)
		}
	}
	return normalized
}

// containsPhrase reports whether any phrase occurs in text on word
// boundaries. Text must already be normalized.
func containsPhrase(text string, phrases []string) bool {
	padded := " " + text + " "
	for _, phrase := range phrases {
		if strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}
	return false
}
