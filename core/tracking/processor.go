// Package tracking turns a stream of anchor events into rendered
// visualizations and keeps the virtual dependent object aligned with its
// physical counterpart relative to the reference object.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/posemath"
	"github.com/koscakluka/overlay-core/core/scene"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const DefaultReferenceName = "VirtualPhantomTracked"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

type ProcessorOption func(*Processor)

// WithReferenceName sets which reference object template acts as the root
// of the tracked group.
func WithReferenceName(name string) ProcessorOption {
	return func(p *Processor) {
		if name != "" {
			p.referenceName = name
		}
	}
}

func WithModelSelector(selector ModelSelector) ProcessorOption {
	return func(p *Processor) { p.selector = selector }
}

func WithEventEmitter(emit func(events.Event)) ProcessorOption {
	return func(p *Processor) {
		if emit != nil {
			p.emit = emit
		}
	}
}

type loadResult struct {
	visualization *Visualization
	model         scene.Entity
	err           error
}

// Processor consumes anchor events sequentially. Asset loads run in their
// own goroutines and report back to the processing loop, so every registry
// and frame mutation happens on one goroutine.
type Processor struct {
	renderer      scene.Renderer
	models        *modelCache
	selector      ModelSelector
	referenceName string
	emit          eventEmitter

	registry *Registry
	tracker  *FrameTracker

	referenceAnchor uuid.UUID
	dependentAnchor uuid.UUID

	started     atomic.Bool
	completions chan loadResult
	loadsCtx    context.Context
	loads       sync.WaitGroup
}

func NewProcessor(renderer scene.Renderer, loader scene.AssetLoader, opts ...ProcessorOption) *Processor {
	p := &Processor{
		renderer:      renderer,
		models:        newModelCache(loader),
		selector:      NewModelSelector(DefaultReferenceName, nil),
		referenceName: DefaultReferenceName,
		emit:          noopEventEmitter,
		registry:      NewRegistry(),
		completions:   make(chan loadResult),
		loadsCtx:      context.Background(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.tracker = NewFrameTracker(renderer, WithFrameEventEmitter(func(event events.Event) { p.emit(event) }))
	return p
}

func (p *Processor) Registry() *Registry { return p.registry }

func (p *Processor) Frames() FrameSet { return p.tracker.Frames() }

func (p *Processor) ReferenceName() string { return p.referenceName }

// Preload loads the assets the session cannot run without: the reference
// object's model and the default model. Any failure is fatal for startup.
func (p *Processor) Preload(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "preload assets")
	defer span.End()

	assets := uniqueNonEmpty(p.selector.AssetFor(p.referenceName), p.selector.DefaultAsset())
	for i, asset := range assets {
		if _, err := p.models.prototype(ctx, ctx, asset); err != nil {
			err = fmt.Errorf("failed to preload asset %q: %w", asset, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		p.emit(events.NewAssetPreloaded(asset, i+1, len(assets)))
	}
	return nil
}

// Run processes anchorEvents until the channel closes or ctx is done, then
// cancels outstanding loads and tears every visualization down. Run may be
// called once.
func (p *Processor) Run(ctx context.Context, anchorEvents <-chan AnchorEvent) error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New("anchor stream processor already started")
	}

	loadsCtx, cancelLoads := context.WithCancel(ctx)
	p.loadsCtx = loadsCtx
	defer func() {
		cancelLoads()
		p.loads.Wait()
		p.teardown(context.WithoutCancel(ctx))
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case result := <-p.completions:
			p.completeLoad(ctx, result)
		case event, ok := <-anchorEvents:
			if !ok {
				logger.Info("anchor stream ended")
				return nil
			}
			p.process(ctx, event)
		}
	}
}

func (p *Processor) process(ctx context.Context, event AnchorEvent) {
	ctx, span := tracer.Start(ctx, "process anchor event", trace.WithAttributes(
		attribute.String("anchor.id", event.AnchorID.String()),
		attribute.String("anchor.event", event.Kind.String()),
		attribute.String("anchor.reference_name", event.ReferenceName),
	))
	defer span.End()

	anchorEventCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("anchor.event", event.Kind.String())))

	var err error
	switch event.Kind {
	case AnchorAdded:
		err = p.added(ctx, event)
	case AnchorUpdated:
		err = p.updated(event)
	case AnchorRemoved:
		err = p.removed(event)
	default:
		logger.Warn("unknown anchor event kind", "anchor_id", event.AnchorID.String(), "kind", int(event.Kind))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("anchor event not fully applied",
			"anchor_id", event.AnchorID.String(),
			"event", event.Kind.String(),
			"error", err,
		)
	}
}

func (p *Processor) added(ctx context.Context, event AnchorEvent) error {
	if _, ok := p.registry.lookup(event.AnchorID); ok {
		logger.Warn("duplicate anchor added, ignoring", "anchor_id", event.AnchorID.String())
		return nil
	}

	root, err := p.renderer.NewEntity("anchor " + event.AnchorID.String())
	if err != nil {
		return fmt.Errorf("failed to create anchor entity: %w", err)
	}
	if err := p.renderer.Attach(root, p.renderer.Root(), event.WorldPose); err != nil {
		return fmt.Errorf("failed to attach anchor entity: %w", err)
	}

	loadCtx, cancel := context.WithCancel(p.loadsCtx)
	visualization := &Visualization{
		AnchorID:      event.AnchorID,
		ReferenceName: event.ReferenceName,
		AssetName:     p.selector.AssetFor(event.ReferenceName),
		Root:          root,
		State:         VisualizationLoading,
		cancel:        cancel,
	}
	if err := p.registry.reserve(visualization); err != nil {
		cancel()
		return err
	}

	p.observePhysical(event)
	if _, _, err := p.tracker.Recompute(); err != nil {
		logger.Warn("failed to apply local pose", "error", err)
	}

	p.loads.Add(1)
	go p.load(trace.ContextWithSpan(loadCtx, trace.SpanFromContext(ctx)), visualization)
	return nil
}

func (p *Processor) load(ctx context.Context, visualization *Visualization) {
	defer p.loads.Done()

	ctx, span := tracer.Start(ctx, "load visualization", trace.WithAttributes(
		attribute.String("anchor.id", visualization.AnchorID.String()),
		attribute.String("asset.name", visualization.AssetName),
	))
	defer span.End()

	model, err := p.models.instance(ctx, p.loadsCtx, visualization.AssetName)
	if err != nil && ctx.Err() == nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	select {
	case p.completions <- loadResult{visualization: visualization, model: model, err: err}:
	case <-ctx.Done():
	}
}

func (p *Processor) completeLoad(ctx context.Context, result loadResult) {
	visualization := result.visualization
	if !p.registry.isCurrent(visualization) {
		logger.Debug("discarding load for removed anchor", "anchor_id", visualization.AnchorID.String())
		return
	}

	if result.err != nil {
		assetLoadCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		logger.Warn("failed to load visualization, skipping anchor",
			"anchor_id", visualization.AnchorID.String(),
			"asset", visualization.AssetName,
			"error", result.err,
		)
		p.registry.update(visualization, func(v *Visualization) { v.State = VisualizationFailed })
		if err := p.renderer.Detach(visualization.Root); err != nil {
			logger.Warn("failed to detach anchor entity", "anchor_id", visualization.AnchorID.String(), "error", err)
		}
		p.emit(events.NewVisualizationFailed(visualization.AnchorID, visualization.AssetName, result.err))
		return
	}
	assetLoadCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "loaded")))

	authored, err := p.renderer.LocalPose(result.model)
	if err != nil {
		authored = posemath.Identity()
	}
	if err := p.renderer.Attach(result.model, visualization.Root, authored); err != nil {
		logger.Warn("failed to attach model", "anchor_id", visualization.AnchorID.String(), "error", err)
		p.registry.update(visualization, func(v *Visualization) { v.State = VisualizationFailed })
		p.emit(events.NewVisualizationFailed(visualization.AnchorID, visualization.AssetName, err))
		return
	}
	p.registry.update(visualization, func(v *Visualization) {
		v.Model = result.model
		v.State = VisualizationLive
	})

	switch visualization.AnchorID {
	case p.referenceAnchor:
		err = p.tracker.SetVirtualReference(result.model)
	case p.dependentAnchor:
		err = p.tracker.SetVirtualDependent(result.model, visualization.Root, authored)
	}
	if err != nil {
		logger.Warn("failed to register virtual frame", "anchor_id", visualization.AnchorID.String(), "error", err)
	}

	logger.Info("visualization attached",
		"anchor_id", visualization.AnchorID.String(),
		"reference_name", visualization.ReferenceName,
		"asset", visualization.AssetName,
	)
	p.emit(events.NewVisualizationAttached(visualization.AnchorID, visualization.ReferenceName, visualization.AssetName, result.model))
}

func (p *Processor) updated(event AnchorEvent) error {
	visualization, ok := p.registry.lookup(event.AnchorID)
	if !ok {
		logger.Warn("update for unknown anchor, ignoring", "anchor_id", event.AnchorID.String())
		return nil
	}

	if visualization.State != VisualizationFailed {
		if err := p.renderer.SetLocalPose(visualization.Root, event.WorldPose); err != nil {
			return fmt.Errorf("failed to move anchor entity: %w", err)
		}
	}

	p.observePhysical(event)
	if err := p.tracker.RefreshVirtualFrames(); err != nil {
		return err
	}
	if _, _, err := p.tracker.Recompute(); err != nil {
		return err
	}
	return nil
}

func (p *Processor) removed(event AnchorEvent) error {
	visualization, ok := p.registry.remove(event.AnchorID)
	if !ok {
		logger.Warn("removal of unknown anchor, ignoring", "anchor_id", event.AnchorID.String())
		return nil
	}

	return p.release(visualization)
}

// release undoes everything added set up for the visualization. Frame slots
// keep their last-known values.
func (p *Processor) release(visualization *Visualization) error {
	visualization.cancel()

	var errs []error
	switch visualization.AnchorID {
	case p.referenceAnchor:
		if err := p.tracker.ClearVirtualReference(); err != nil {
			errs = append(errs, err)
		}
		p.referenceAnchor = uuid.Nil
	case p.dependentAnchor:
		if err := p.tracker.ClearVirtualDependent(); err != nil {
			errs = append(errs, err)
		}
		p.dependentAnchor = uuid.Nil
	}

	if visualization.State != VisualizationFailed {
		if err := p.renderer.Detach(visualization.Root); err != nil {
			errs = append(errs, fmt.Errorf("failed to detach anchor entity: %w", err))
		}
	}
	if visualization.State == VisualizationLive {
		p.emit(events.NewVisualizationDetached(visualization.AnchorID))
	}

	return errors.Join(errs...)
}

// observePhysical feeds the anchor's world pose into the frame set when the
// anchor is the tracked reference or the tracked dependent. The first
// dependent anchor to appear is tracked until it is removed.
func (p *Processor) observePhysical(event AnchorEvent) {
	if event.ReferenceName == p.referenceName {
		if p.referenceAnchor == uuid.Nil {
			p.referenceAnchor = event.AnchorID
		}
		if p.referenceAnchor == event.AnchorID {
			p.tracker.UpdatePhysicalReference(event.WorldPose)
		}
		return
	}

	if p.dependentAnchor == uuid.Nil {
		p.dependentAnchor = event.AnchorID
	}
	if p.dependentAnchor == event.AnchorID {
		p.tracker.UpdatePhysicalDependent(event.WorldPose)
	}
}

func (p *Processor) teardown(ctx context.Context) {
	_, span := tracer.Start(ctx, "teardown visualizations")
	defer span.End()

	drained := p.registry.drain()
	span.SetAttributes(attribute.Int("visualizations", len(drained)))
	for _, visualization := range drained {
		if err := p.release(visualization); err != nil {
			logger.Warn("failed to tear down visualization", "anchor_id", visualization.AnchorID.String(), "error", err)
		}
	}
}

func uniqueNonEmpty(values ...string) []string {
	unique := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		duplicate := false
		for _, seen := range unique {
			if seen == value {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, value)
		}
	}
	return unique
}
