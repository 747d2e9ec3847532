// Package components applies voice commands to the parts of a loaded model.
// All changes go through a single Applier loop so enable and disable
// transitions on one component never interleave.
package components

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/posemath"
	"github.com/koscakluka/overlay-core/core/scene"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultAnimationDuration = 300 * time.Millisecond
	DefaultSettleDelay       = 350 * time.Millisecond
	CollapsedScale           = 0.01

	applierQueueCapacity = 32
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

type ApplierOption func(*Applier)

func WithEventEmitter(emit func(events.Event)) ApplierOption {
	return func(a *Applier) {
		if emit != nil {
			a.emit = emit
		}
	}
}

// WithAfterFunc replaces time.AfterFunc for the delayed settle checks.
func WithAfterFunc(afterFunc func(time.Duration, func())) ApplierOption {
	return func(a *Applier) {
		if afterFunc != nil {
			a.afterFunc = afterFunc
		}
	}
}

// WithAnimations turns the scale animations on or off. Without them changes
// are applied immediately.
func WithAnimations(enabled bool) ApplierOption {
	return func(a *Applier) { a.animate = enabled }
}

type applierItem struct {
	command *commands.Command
	model   *scene.Entity
	settle  *settleCheck
	flushed chan struct{}
}

type settleCheck struct {
	component  *Component
	generation uint64
}

// Applier is the single writer of the component registry.
type Applier struct {
	renderer  scene.Renderer
	registry  *Registry
	emit      eventEmitter
	afterFunc func(time.Duration, func())
	animate   bool

	queue   chan applierItem
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once
	started   atomic.Bool
}

func NewApplier(renderer scene.Renderer, opts ...ApplierOption) *Applier {
	a := &Applier{
		renderer:  renderer,
		registry:  NewRegistry(),
		emit:      noopEventEmitter,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		animate:   true,
		queue:     make(chan applierItem, applierQueueCapacity),
		closeCh:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Applier) Registry() *Registry { return a.registry }

func (a *Applier) canIngest() bool {
	select {
	case <-a.closeCh:
		return false
	default:
		return true
	}
}

// Start runs the apply loop until Stop is called or ctx is done.
func (a *Applier) Start(ctx context.Context) (started bool) {
	if !a.canIngest() {
		return false
	}

	a.startOnce.Do(func() {
		started = true
		a.started.Store(true)
		go func() {
			defer close(a.done)

			for {
				select {
				case <-ctx.Done():
					a.Stop()
					return
				case <-a.closeCh:
					return
				case item := <-a.queue:
					a.process(ctx, item)
				}
			}
		}()
	})

	return started
}

func (a *Applier) Stop() {
	a.endOnce.Do(func() { close(a.closeCh) })
}

func (a *Applier) AwaitDone() {
	if a.started.Load() {
		<-a.done
	}
}

// Apply queues a command. It reports false once the applier is stopped.
func (a *Applier) Apply(command commands.Command) bool {
	return a.ingest(applierItem{command: &command})
}

// SetModel queues discovery of the components under model, replacing the
// current registry.
func (a *Applier) SetModel(model scene.Entity) bool {
	return a.ingest(applierItem{model: &model})
}

// Flush waits until everything queued before it has been applied. It
// returns early once ctx is done or the applier stops.
func (a *Applier) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	if !a.ingest(applierItem{flushed: flushed}) {
		return nil
	}

	select {
	case <-flushed:
		return nil
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Applier) ingest(item applierItem) bool {
	if !a.canIngest() {
		return false
	}

	select {
	case <-a.closeCh:
		return false
	case a.queue <- item:
		return true
	}
}

func (a *Applier) process(ctx context.Context, item applierItem) {
	switch {
	case item.model != nil:
		a.discover(ctx, *item.model)
	case item.command != nil:
		a.apply(ctx, *item.command)
	case item.settle != nil:
		a.settle(*item.settle)
	case item.flushed != nil:
		close(item.flushed)
	}
}

func (a *Applier) discover(ctx context.Context, model scene.Entity) {
	_, span := tracer.Start(ctx, "discover components", trace.WithAttributes(attribute.String("model", model.String())))
	defer span.End()

	a.registry.reset()
	for id, entity := range Discover(a.renderer, model) {
		baseline, err := a.renderer.LocalPose(entity)
		if err != nil {
			logger.Warn("failed to read component pose", "component", id.String(), "error", err)
			continue
		}
		a.registry.register(id, entity, baseline)
	}

	span.SetAttributes(attribute.Int("components", a.registry.Len()))
	var missing []string
	for _, id := range commands.Catalog() {
		if _, ok := a.registry.lookup(id); !ok {
			missing = append(missing, id.String())
		}
	}
	logger.Info("components discovered", "count", a.registry.Len(), "missing", missing)
}

func (a *Applier) apply(ctx context.Context, command commands.Command) {
	_, span := tracer.Start(ctx, "apply command", trace.WithAttributes(attribute.String("command", command.String())))
	defer span.End()

	targets := []commands.Component{command.Target}
	if command.AppliesToAll() {
		targets = a.registry.Registered()
	}

	for _, id := range targets {
		component, ok := a.registry.lookup(id)
		if !ok {
			logger.Warn("component not found", "component", id.String(), "available", a.registry.Registered())
			continue
		}

		var err error
		switch command.Type {
		case commands.Enable:
			err = a.enable(component)
		case commands.Disable:
			err = a.disable(component)
		case commands.Toggle:
			if component.Enabled {
				err = a.disable(component)
			} else {
				err = a.enable(component)
			}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("failed to apply command", "component", id.String(), "error", err)
		}
	}
}

func (a *Applier) enable(component *Component) error {
	generation := a.mark(component, true)

	if err := a.renderer.StopAnimations(component.Entity); err != nil {
		return err
	}
	if err := a.renderer.SetEnabled(component.Entity, true); err != nil {
		return err
	}

	if a.animate {
		if err := a.renderer.SetLocalPose(component.Entity, posemath.WithScale(component.Baseline, CollapsedScale)); err != nil {
			return err
		}
		if err := a.renderer.Animate(component.Entity, component.Baseline, DefaultAnimationDuration, scene.EaseOut); err != nil {
			return err
		}
		a.scheduleSettle(component, generation)
	} else if err := a.renderer.SetLocalPose(component.Entity, component.Baseline); err != nil {
		return err
	}

	a.emit(events.NewComponentVisibilityChanged(component.ID, true))
	return nil
}

func (a *Applier) disable(component *Component) error {
	generation := a.mark(component, false)

	if err := a.renderer.StopAnimations(component.Entity); err != nil {
		return err
	}

	if a.animate {
		current, err := a.renderer.LocalPose(component.Entity)
		if err != nil {
			return err
		}
		if err := a.renderer.Animate(component.Entity, posemath.WithScale(current, CollapsedScale), DefaultAnimationDuration, scene.EaseIn); err != nil {
			return err
		}
		a.scheduleSettle(component, generation)
	} else if err := a.renderer.SetEnabled(component.Entity, false); err != nil {
		return err
	}

	a.emit(events.NewComponentVisibilityChanged(component.ID, false))
	return nil
}

func (a *Applier) mark(component *Component, enabled bool) uint64 {
	var generation uint64
	a.registry.update(component, func(c *Component) {
		c.Enabled = enabled
		c.generation++
		generation = c.generation
	})
	return generation
}

func (a *Applier) scheduleSettle(component *Component, generation uint64) {
	a.afterFunc(DefaultSettleDelay, func() {
		a.ingest(applierItem{settle: &settleCheck{component: component, generation: generation}})
	})
}

// settle finishes a transition once its animation has had time to run: a
// disabled component is hidden, an enabled one is forced visible at its
// baseline scale. Checks superseded by a later change are dropped.
func (a *Applier) settle(check settleCheck) {
	component := check.component
	if current, ok := a.registry.lookup(component.ID); !ok || current != component || component.generation != check.generation {
		return
	}

	if !component.Enabled {
		if err := a.renderer.SetEnabled(component.Entity, false); err != nil {
			logger.Warn("failed to hide component", "component", component.ID.String(), "error", err)
		}
		return
	}

	if err := a.renderer.SetEnabled(component.Entity, true); err != nil {
		logger.Warn("failed to show component", "component", component.ID.String(), "error", err)
		return
	}
	if local, err := a.renderer.LocalPose(component.Entity); err == nil && posemath.Scale(local) < 0.1 {
		if err := a.renderer.SetLocalPose(component.Entity, component.Baseline); err != nil {
			logger.Warn("failed to restore component scale", "component", component.ID.String(), "error", err)
		}
	}
}
