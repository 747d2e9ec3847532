package components

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/posemath"
	"github.com/koscakluka/overlay-core/core/scene"
)

type visibilityLog struct {
	mu      sync.Mutex
	changes []events.ComponentVisibilityChanged
}

func (l *visibilityLog) emit(event events.Event) {
	if change, ok := event.(events.ComponentVisibilityChanged); ok {
		l.mu.Lock()
		defer l.mu.Unlock()

		l.changes = append(l.changes, change)
	}
}

func (l *visibilityLog) snapshot() []events.ComponentVisibilityChanged {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]events.ComponentVisibilityChanged(nil), l.changes...)
}

type manualTimers struct {
	mu      sync.Mutex
	pending []func()
}

func (m *manualTimers) afterFunc(_ time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = append(m.pending, f)
}

func (m *manualTimers) fireAll() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, f := range pending {
		f()
	}
}

func eventually(t *testing.T, condition func() bool, format string, args ...any) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf(format, args...)
		}
		time.Sleep(time.Millisecond)
	}
}

type applierHarness struct {
	mem     *scene.Memory
	applier *Applier
	log     *visibilityLog
	timers  *manualTimers
	model   scene.Entity
}

func newApplierHarness(t *testing.T) *applierHarness {
	t.Helper()

	bone := scene.NewNode("Bone")
	bone.Local = posemath.TranslationOnly(mgl64.Vec3{0, 0.05, 0})
	mem := scene.NewMemory(scene.WithAsset("head", scene.NewNode("head",
		bone,
		scene.NewNode("brain"),
		scene.NewNode("Skin"),
		scene.NewNode("Soft_Tissue"),
	)))
	model, err := mem.Load(context.Background(), "head")
	if err != nil {
		t.Fatalf("expected model to load, got %v", err)
	}

	log := &visibilityLog{}
	timers := &manualTimers{}
	applier := NewApplier(mem, WithEventEmitter(log.emit), WithAfterFunc(timers.afterFunc))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		applier.AwaitDone()
	})
	applier.Start(ctx)
	applier.SetModel(model)
	eventually(t, func() bool { return applier.Registry().Len() == 4 }, "expected 4 discovered components, got %d", applier.Registry().Len())

	return &applierHarness{mem: mem, applier: applier, log: log, timers: timers, model: model}
}

func (h *applierHarness) entity(t *testing.T, id commands.Component) scene.Entity {
	t.Helper()

	component, ok := h.applier.Registry().Get(id)
	if !ok {
		t.Fatalf("expected %s to be registered", id)
	}
	return component.Entity
}

func (h *applierHarness) waitForChanges(t *testing.T, count int) []events.ComponentVisibilityChanged {
	t.Helper()

	eventually(t, func() bool { return len(h.log.snapshot()) >= count }, "expected %d visibility changes, got %d", count, len(h.log.snapshot()))
	return h.log.snapshot()
}

func TestApplierDisableCollapsesThenHides(t *testing.T) {
	h := newApplierHarness(t)
	bone := h.entity(t, commands.Bone)

	h.applier.Apply(commands.Command{Type: commands.Disable, Target: commands.Bone})
	changes := h.waitForChanges(t, 1)
	if changes[0].Component != commands.Bone || changes[0].Enabled {
		t.Fatalf("expected bone disabled, got %+v", changes[0])
	}

	animations := h.mem.Animations(bone)
	if len(animations) != 1 {
		t.Fatalf("expected 1 animation, got %d", len(animations))
	}
	if animations[0].Easing != scene.EaseIn || animations[0].Duration != DefaultAnimationDuration {
		t.Fatalf("expected %s ease-in collapse, got %+v", DefaultAnimationDuration, animations[0])
	}
	if got := posemath.Scale(animations[0].To); got < CollapsedScale-1e-9 || got > CollapsedScale+1e-9 {
		t.Fatalf("expected collapse to scale %v, got %v", CollapsedScale, got)
	}
	if !h.mem.IsEnabled(bone) {
		t.Fatalf("expected bone to stay visible until the animation settles")
	}

	h.timers.fireAll()
	eventually(t, func() bool { return !h.mem.IsEnabled(bone) }, "expected bone hidden after settling")
}

func TestApplierEnableRestoresBaseline(t *testing.T) {
	h := newApplierHarness(t)
	bone := h.entity(t, commands.Bone)
	baseline := posemath.TranslationOnly(mgl64.Vec3{0, 0.05, 0})

	h.applier.Apply(commands.Command{Type: commands.Disable, Target: commands.Bone})
	h.applier.Apply(commands.Command{Type: commands.Enable, Target: commands.Bone})
	changes := h.waitForChanges(t, 2)
	if !changes[1].Enabled {
		t.Fatalf("expected bone enabled, got %+v", changes[1])
	}

	animations := h.mem.Animations(bone)
	if len(animations) != 1 || animations[0].Easing != scene.EaseOut {
		t.Fatalf("expected a single ease-out animation after stopping the collapse, got %+v", animations)
	}
	if got, _ := h.mem.LocalPose(bone); !posemath.ApproxEqual(got, baseline, posemath.DefaultTolerance) {
		t.Fatalf("expected baseline pose %v, got %v", baseline, got)
	}

	// The settle check queued by the disable is stale and must not hide it.
	h.timers.fireAll()
	h.applier.Apply(commands.Command{Type: commands.Toggle, Target: commands.Skin})
	h.waitForChanges(t, 3)
	if !h.mem.IsEnabled(bone) {
		t.Fatalf("expected bone to remain visible")
	}
}

func TestApplierToggle(t *testing.T) {
	h := newApplierHarness(t)

	h.applier.Apply(commands.Command{Type: commands.Toggle, Target: commands.Brain})
	h.applier.Apply(commands.Command{Type: commands.Toggle, Target: commands.Brain})
	changes := h.waitForChanges(t, 2)

	if changes[0].Enabled || !changes[1].Enabled {
		t.Fatalf("expected disable then enable, got %+v", changes)
	}
	if component, _ := h.applier.Registry().Get(commands.Brain); !component.Enabled {
		t.Fatalf("expected brain enabled")
	}
}

func TestApplierAllFollowsCatalogOrder(t *testing.T) {
	h := newApplierHarness(t)

	h.applier.Apply(commands.Command{Type: commands.Disable, Target: commands.All})
	changes := h.waitForChanges(t, 4)

	expected := []commands.Component{commands.Bone, commands.Brain, commands.Skin, commands.SoftTissue}
	for i, id := range expected {
		if changes[i].Component != id || changes[i].Enabled {
			t.Fatalf("expected change %d to disable %s, got %+v", i, id, changes[i])
		}
	}
}

func TestApplierSkipsUnknownComponents(t *testing.T) {
	h := newApplierHarness(t)

	h.applier.Apply(commands.Command{Type: commands.Enable, Target: commands.Ventricles})
	h.applier.Apply(commands.Command{Type: commands.Enable, Target: commands.Skin})
	h.waitForChanges(t, 1)

	time.Sleep(10 * time.Millisecond)
	changes := h.log.snapshot()
	if len(changes) != 1 || changes[0].Component != commands.Skin {
		t.Fatalf("expected only skin to change, got %+v", changes)
	}
}

func TestApplierWithoutAnimations(t *testing.T) {
	mem := scene.NewMemory(scene.WithAsset("head", scene.NewNode("head", scene.NewNode("Venous"))))
	model, _ := mem.Load(context.Background(), "head")

	log := &visibilityLog{}
	applier := NewApplier(mem, WithEventEmitter(log.emit), WithAnimations(false))
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		applier.AwaitDone()
	}()
	applier.Start(ctx)
	applier.SetModel(model)
	applier.Apply(commands.Command{Type: commands.Disable, Target: commands.Venous})

	eventually(t, func() bool { return len(log.snapshot()) == 1 }, "expected a visibility change")
	venous, _ := applier.Registry().Get(commands.Venous)
	if mem.IsEnabled(venous.Entity) {
		t.Fatalf("expected venous hidden immediately")
	}
	if got := mem.Animations(venous.Entity); len(got) != 0 {
		t.Fatalf("expected no animations, got %+v", got)
	}
}

func TestApplierRejectsCommandsAfterStop(t *testing.T) {
	applier := NewApplier(scene.NewMemory())
	applier.Start(context.Background())
	applier.Stop()
	applier.AwaitDone()

	if applier.Apply(commands.Command{Type: commands.Enable, Target: commands.Bone}) {
		t.Fatalf("expected Apply to fail after Stop")
	}
}

func TestApplierFlushWaitsForQueuedCommands(t *testing.T) {
	h := newApplierHarness(t)

	h.applier.Apply(commands.Command{Type: commands.Disable, Target: commands.Skin})
	h.applier.Apply(commands.Command{Type: commands.Disable, Target: commands.Brain})
	if err := h.applier.Flush(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := len(h.log.snapshot()); got != 2 {
		t.Fatalf("expected both commands applied after flush, got %d changes", got)
	}
}

func TestApplierFlushReturnsAfterStop(t *testing.T) {
	applier := NewApplier(scene.NewMemory())
	applier.Stop()

	if err := applier.Flush(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
