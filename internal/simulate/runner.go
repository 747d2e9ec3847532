package simulate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	orchestration "github.com/koscakluka/overlay-core/core"
	"github.com/koscakluka/overlay-core/core/components"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/tracking"
	"github.com/koscakluka/overlay-core/core/transcripts"
	"github.com/koscakluka/overlay-core/core/voice"
	"go.opentelemetry.io/otel/codes"
)

const defaultSettleTimeout = 5 * time.Second

var ErrAnchorNotSettled = errors.New("anchor visualization did not settle")

// Result is the state observed after the last step, before the tracking
// session is torn down.
type Result struct {
	Events         []events.Event
	Components     []components.Component
	Visualizations []tracking.Visualization
	Frames         tracking.FrameSet
	Session        voice.Snapshot
}

type RunnerOption func(*Runner)

func WithOrchestratorOptions(opts ...orchestration.OrchestratorOption) RunnerOption {
	return func(r *Runner) { r.orchestratorOptions = append(r.orchestratorOptions, opts...) }
}

// WithEventHandler observes every event as it is delivered.
func WithEventHandler(handler func(events.Event)) RunnerOption {
	return func(r *Runner) { r.onEvent = handler }
}

// WithSettleTimeout bounds how long an added anchor may take to attach or
// fail before the run is aborted.
func WithSettleTimeout(timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		if timeout > 0 {
			r.settleTimeout = timeout
		}
	}
}

type Runner struct {
	orchestratorOptions []orchestration.OrchestratorOption
	onEvent             func(events.Event)
	settleTimeout       time.Duration

	mu      sync.Mutex
	events  []events.Event
	waiters map[uuid.UUID]chan struct{}
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		settleTimeout: defaultSettleTimeout,
		waiters:       make(map[uuid.UUID]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run replays script against a fresh scene built from its assets. Each
// added anchor is awaited until its visualization attaches or fails, so
// later steps observe a settled scene.
func (r *Runner) Run(ctx context.Context, script *Script) (*Result, error) {
	ctx, span := tracer.Start(ctx, "simulate")
	defer span.End()

	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()

	anchors := make(chan tracking.AnchorEvent)
	opts := append([]orchestration.OrchestratorOption{
		orchestration.WithRenderer(script.NewScene()),
		orchestration.WithAnchorEvents(anchors),
	}, r.orchestratorOptions...)
	o := orchestration.NewOrchestrator(opts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- o.Orchestrate(runCtx, orchestration.WithEventCallback(r.record))
	}()

	result, stepErr := r.replay(runCtx, o, anchors, script.Steps)

	close(anchors)
	if err := <-done; err != nil {
		stepErr = fmt.Errorf("orchestrator failed: %w", err)
	}
	if stepErr != nil {
		span.RecordError(stepErr)
		span.SetStatus(codes.Error, stepErr.Error())
	}

	r.mu.Lock()
	result.Events = append([]events.Event(nil), r.events...)
	r.mu.Unlock()

	return result, stepErr
}

func (r *Runner) replay(ctx context.Context, o *orchestration.Orchestrator, anchors chan<- tracking.AnchorEvent, steps []Step) (*Result, error) {
	for i, step := range steps {
		if err := r.step(ctx, o, anchors, step); err != nil {
			return &Result{}, fmt.Errorf("step %d: %w", i, err)
		}
	}

	if err := o.Flush(ctx); err != nil {
		return &Result{}, fmt.Errorf("failed to flush commands: %w", err)
	}

	return &Result{
		Components:     o.Components(),
		Visualizations: o.Visualizations(),
		Frames:         o.Frames(),
		Session:        o.Session(),
	}, nil
}

func (r *Runner) step(ctx context.Context, o *orchestration.Orchestrator, anchors chan<- tracking.AnchorEvent, step Step) error {
	switch {
	case step.Add != nil:
		settled := r.expect(AnchorID(step.Add.ID))
		if err := send(ctx, anchors, step.Add.event(tracking.AnchorAdded)); err != nil {
			return err
		}
		return r.awaitSettled(ctx, step.Add.ID, settled)
	case step.Update != nil:
		return send(ctx, anchors, step.Update.event(tracking.AnchorUpdated))
	case step.Remove != nil:
		return send(ctx, anchors, step.Remove.event(tracking.AnchorRemoved))
	case step.Say != nil:
		transcript := transcripts.Final(step.Say.Text)
		if step.Say.Partial {
			transcript = transcripts.Partial(step.Say.Text)
		}
		if match, ok := o.HandleTranscript(ctx, transcript); ok {
			logger.Debug("scripted transcript matched", "text", step.Say.Text, "command", match.Command.String())
		}
		return nil
	case step.Wait > 0:
		select {
		case <-time.After(step.Wait):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func send(ctx context.Context, anchors chan<- tracking.AnchorEvent, event tracking.AnchorEvent) error {
	select {
	case anchors <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) expect(anchorID uuid.UUID) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	settled := make(chan struct{})
	r.waiters[anchorID] = settled
	return settled
}

func (r *Runner) awaitSettled(ctx context.Context, id string, settled <-chan struct{}) error {
	timer := time.NewTimer(r.settleTimeout)
	defer timer.Stop()

	select {
	case <-settled:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %s", ErrAnchorNotSettled, id)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) record(event events.Event) {
	var anchorID uuid.UUID
	switch e := event.(type) {
	case events.VisualizationAttached:
		anchorID = e.AnchorID
	case events.VisualizationFailed:
		anchorID = e.AnchorID
	}

	r.mu.Lock()
	r.events = append(r.events, event)
	if settled, ok := r.waiters[anchorID]; ok && anchorID != uuid.Nil {
		delete(r.waiters, anchorID)
		close(settled)
	}
	r.mu.Unlock()

	if r.onEvent != nil {
		r.onEvent(event)
	}
}
