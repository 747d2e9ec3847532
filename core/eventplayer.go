package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/overlay-core/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const eventQueueCapacity = 64

// eventPlayer hands outbound events to the callbacks one at a time, in the
// order they were emitted. Events still queued when the player stops are
// played before the loop exits.
type eventPlayer struct {
	queue   chan eventQueueItem
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newEventPlayer() *eventPlayer {
	return &eventPlayer{
		queue:   make(chan eventQueueItem, eventQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (loop *eventPlayer) CanIngest() bool {
	if loop == nil {
		return false
	}

	select {
	case <-loop.closeCh:
		return false
	default:
		return true
	}
}

func (loop *eventPlayer) StartLoop(baseCtx context.Context, play func(context.Context, events.Event)) (started bool) {
	if loop == nil || play == nil || !loop.CanIngest() {
		return false
	}

	loop.startOnce.Do(func() {
		started = true
		loop.started.Store(true)
		go func() {
			defer close(loop.done)

			for {
				select {
				case <-loop.closeCh:
					loop.flush(baseCtx, play)
					return
				case queuedEvent := <-loop.queue:
					loop.processQueuedEvent(baseCtx, queuedEvent, play)
				}
			}
		}()
	})

	return started
}

func (loop *eventPlayer) flush(baseCtx context.Context, play func(context.Context, events.Event)) {
	for {
		select {
		case queuedEvent := <-loop.queue:
			loop.processQueuedEvent(baseCtx, queuedEvent, play)
		default:
			return
		}
	}
}

func (loop *eventPlayer) Stop() {
	if loop == nil {
		return
	}

	loop.endOnce.Do(func() { close(loop.closeCh) })
}

func (loop *eventPlayer) AwaitDone() {
	if loop == nil {
		return
	}

	if loop.started.Load() {
		<-loop.done
	}
}

type eventQueueItem struct {
	event    events.Event
	queuedAt time.Time
}

func (loop *eventPlayer) Ingest(event events.Event) bool {
	if loop == nil || !loop.CanIngest() {
		return false
	}

	queueItem := eventQueueItem{event: event, queuedAt: time.Now()}
	select {
	case <-loop.closeCh:
		return false
	case loop.queue <- queueItem:
		return true
	}
}

func (loop *eventPlayer) processQueuedEvent(baseContext context.Context, queuedEvent eventQueueItem, play func(context.Context, events.Event)) {
	ctx, span := tracer.Start(baseContext, "play event",
		trace.WithAttributes(attribute.String("event.kind", string(queuedEvent.event.Kind()))))
	defer span.End()

	queuedTime := time.Since(queuedEvent.queuedAt).Seconds()
	span.SetAttributes(attribute.Float64("event.queued_time", queuedTime))
	eventsPlayed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(queuedEvent.event.Kind()))))

	play(ctx, queuedEvent.event)
}

func (loop *eventPlayer) queuedEventCount() int {
	if loop == nil {
		return 0
	}

	return len(loop.queue)
}
