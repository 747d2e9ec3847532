package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/components"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/scene"
	"github.com/koscakluka/overlay-core/core/tracking"
	"github.com/koscakluka/overlay-core/core/transcripts"
	"github.com/koscakluka/overlay-core/core/voice"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const applierFlushTimeout = 2 * time.Second

var (
	ErrOrchestratorClosed = errors.New("orchestrator closed")
	ErrAlreadyStarted     = errors.New("orchestrator already started")
	ErrMissingAssetLoader = errors.New("anchor events require an asset loader")
)

// Orchestrator runs one tracking session and one voice session against a
// shared scene. Recognized commands are applied to the components of the
// reference object's model.
type Orchestrator struct {
	renderer scene.Renderer
	loader   scene.AssetLoader
	preload  bool

	anchorEvents     <-chan tracking.AnchorEvent
	transcriptSource transcripts.Source

	processorOptions []tracking.ProcessorOption
	sessionOptions   []voice.SessionOption
	applierOptions   []components.ApplierOption
	listenOptions    []voice.ListenOption

	processor *tracking.Processor
	session   *voice.Session
	applier   *components.Applier
	player    *eventPlayer

	referenceMu     sync.Mutex
	referenceAnchor uuid.UUID

	started   atomic.Bool
	closeOnce sync.Once
	closed    chan struct{}
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		player: newEventPlayer(),
		closed: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.renderer == nil {
		o.renderer = scene.NewMemory()
	}
	if o.loader == nil {
		if loader, ok := o.renderer.(scene.AssetLoader); ok {
			o.loader = loader
		}
	}

	o.processor = tracking.NewProcessor(o.renderer, o.loader,
		append(o.processorOptions, tracking.WithEventEmitter(o.dispatch))...)
	o.session = voice.NewSession(append(o.sessionOptions, voice.WithEventEmitter(o.dispatch))...)
	o.applier = components.NewApplier(o.renderer,
		append(o.applierOptions, components.WithEventEmitter(o.dispatch))...)

	return o
}

func (o *Orchestrator) isClosed() bool {
	select {
	case <-o.closed:
		return true
	default:
		return false
	}
}

// Close stops a running Orchestrate call. Closing before Orchestrate makes
// it return ErrOrchestratorClosed.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() { close(o.closed) })
}

// Orchestrate runs the configured sessions until ctx is done, Close is
// called, or every configured source is exhausted. Without any source it
// waits for ctx or Close, serving HandleTranscript and Apply calls.
//
// Orchestrate may be called once. Events queued when it returns are
// delivered to the callbacks before it returns.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) (err error) {
	if o.isClosed() {
		return ErrOrchestratorClosed
	}
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	options := OrchestrateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-o.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	ctx, span := tracer.Start(ctx, "orchestrate", trace.WithAttributes(
		attribute.Bool("tracking", o.anchorEvents != nil),
		attribute.Bool("voice", o.transcriptSource != nil),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	emit := newCallbackEventEmitter(options)
	o.player.StartLoop(context.WithoutCancel(ctx), func(_ context.Context, event events.Event) { emit(event) })
	o.applier.Start(ctx)
	defer o.shutdown(ctx)

	if o.anchorEvents != nil && o.loader == nil {
		return ErrMissingAssetLoader
	}
	if o.preload {
		if o.loader == nil {
			return ErrMissingAssetLoader
		}
		if err := o.processor.Preload(ctx); err != nil {
			return fmt.Errorf("failed to preload assets: %w", err)
		}
	}

	var workers []namedWorker
	if o.anchorEvents != nil {
		workers = append(workers, namedWorker{name: "tracking", run: func(ctx context.Context) error {
			return o.processor.Run(ctx, o.anchorEvents)
		}})
	}
	if o.transcriptSource != nil {
		workers = append(workers, namedWorker{name: "voice", run: func(ctx context.Context) error {
			return voice.Listen(ctx, o.transcriptSource, o.session, o.listenOptions...)
		}})
	}

	if len(workers) == 0 {
		<-ctx.Done()
		return nil
	}
	return runWorkers(ctx, workers...)
}

// shutdown lets the applier finish queued commands, then stops the
// sessions and delivers the remaining events.
func (o *Orchestrator) shutdown(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), applierFlushTimeout)
	defer cancel()

	if err := o.applier.Flush(flushCtx); err != nil {
		logger.Warn("failed to flush queued commands", "error", err)
	}
	o.applier.Stop()
	o.applier.AwaitDone()
	o.session.Stop()

	pending := o.player.queuedEventCount()
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("events.pending_at_shutdown", pending))
	logger.Debug("delivering queued events", "count", pending)
	o.player.Stop()
	o.player.AwaitDone()
}

// dispatch routes an event to the internal consumers and queues it for the
// callbacks.
func (o *Orchestrator) dispatch(event events.Event) {
	switch typedEvent := event.(type) {
	case events.CommandRecognized:
		o.applier.Apply(typedEvent.Command)
	case events.VisualizationAttached:
		if typedEvent.ReferenceName == o.processor.ReferenceName() && o.claimReferenceAnchor(typedEvent.AnchorID) {
			o.applier.SetModel(typedEvent.Model)
		}
	case events.VisualizationDetached:
		if o.releaseReferenceAnchor(typedEvent.AnchorID) {
			o.applier.SetModel(scene.Entity{})
		}
	}

	if o.started.Load() {
		o.player.Ingest(event)
	}
}

func (o *Orchestrator) claimReferenceAnchor(anchorID uuid.UUID) bool {
	o.referenceMu.Lock()
	defer o.referenceMu.Unlock()

	if o.referenceAnchor != uuid.Nil {
		return false
	}
	o.referenceAnchor = anchorID
	return true
}

func (o *Orchestrator) releaseReferenceAnchor(anchorID uuid.UUID) bool {
	o.referenceMu.Lock()
	defer o.referenceMu.Unlock()

	if o.referenceAnchor != anchorID {
		return false
	}
	o.referenceAnchor = uuid.Nil
	return true
}

// HandleTranscript feeds a transcript to the voice session directly,
// bypassing the transcript source.
func (o *Orchestrator) HandleTranscript(ctx context.Context, transcript transcripts.Transcript) (commands.Match, bool) {
	return o.session.HandleTranscript(ctx, transcript)
}

// Apply queues a command for the visibility applier. It reports false once
// the orchestrator has stopped.
func (o *Orchestrator) Apply(command commands.Command) bool {
	return o.applier.Apply(command)
}

// Flush waits until every command queued so far has been applied.
func (o *Orchestrator) Flush(ctx context.Context) error {
	return o.applier.Flush(ctx)
}

func (o *Orchestrator) Session() voice.Snapshot { return o.session.Snapshot() }

func (o *Orchestrator) Visualizations() []tracking.Visualization {
	return o.processor.Registry().Snapshot()
}

func (o *Orchestrator) Frames() tracking.FrameSet { return o.processor.Frames() }

// Components lists the discovered components of the current reference
// model in catalog order.
func (o *Orchestrator) Components() []components.Component {
	registry := o.applier.Registry()

	var found []components.Component
	for _, id := range registry.Registered() {
		if component, ok := registry.Get(id); ok {
			found = append(found, component)
		}
	}
	return found
}
