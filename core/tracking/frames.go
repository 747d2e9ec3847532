package tracking

import (
	"fmt"
	"sync"

	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/posemath"
	"github.com/koscakluka/overlay-core/core/scene"
)

type Slot int

const (
	PhysicalReference Slot = iota
	PhysicalDependent
	VirtualReference
	VirtualDependent
	slotCount
)

func (s Slot) String() string {
	switch s {
	case PhysicalReference:
		return "world_from_physical_reference"
	case PhysicalDependent:
		return "world_from_physical_dependent"
	case VirtualReference:
		return "world_from_virtual_reference"
	case VirtualDependent:
		return "world_from_virtual_dependent"
	default:
		return "unknown"
	}
}

// FrameSet holds the four world-space frames the tracker works from. Slots
// that were never set read as identity.
type FrameSet struct {
	poses    [slotCount]posemath.Pose
	observed [slotCount]bool
}

func (f *FrameSet) Set(slot Slot, pose posemath.Pose) {
	f.poses[slot] = pose
	f.observed[slot] = true
}

func (f FrameSet) Get(slot Slot) posemath.Pose {
	if !f.observed[slot] {
		return posemath.Identity()
	}
	return f.poses[slot]
}

func (f FrameSet) Observed(slot Slot) bool {
	return f.observed[slot]
}

// Solve returns the pose of the virtual dependent relative to the virtual
// reference that reproduces the live physical relationship. It reports false
// until both physical frames have been observed.
func Solve(frames FrameSet) (posemath.Pose, bool) {
	if !frames.Observed(PhysicalReference) || !frames.Observed(PhysicalDependent) {
		return posemath.Identity(), false
	}

	worldFromPhysicalReference := frames.Get(PhysicalReference)
	physicalReferenceFromPhysicalDependent := posemath.RelativeTransform(worldFromPhysicalReference, frames.Get(PhysicalDependent))
	virtualReferenceFromPhysicalReference := posemath.RelativeTransform(frames.Get(VirtualReference), worldFromPhysicalReference)

	return posemath.Conjugate(virtualReferenceFromPhysicalReference, physicalReferenceFromPhysicalDependent), true
}

type FrameTrackerOption func(*FrameTracker)

func WithFrameEventEmitter(emit func(events.Event)) FrameTrackerOption {
	return func(t *FrameTracker) {
		if emit != nil {
			t.emit = emit
		}
	}
}

// FrameTracker owns a FrameSet and places the virtual dependent entity under
// the virtual reference entity. It is driven from a single goroutine; Frames
// may be read from any.
type FrameTracker struct {
	renderer scene.Renderer
	emit     eventEmitter

	mu     sync.RWMutex
	frames FrameSet

	virtualReference scene.Entity

	virtualDependent scene.Entity
	dependentHome    scene.Entity
	homeOffset       posemath.Pose
	attached         bool

	pending    posemath.Pose
	hasPending bool
}

func NewFrameTracker(renderer scene.Renderer, opts ...FrameTrackerOption) *FrameTracker {
	t := &FrameTracker{
		renderer: renderer,
		emit:     noopEventEmitter,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *FrameTracker) Frames() FrameSet {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.frames
}

func (t *FrameTracker) set(slot Slot, pose posemath.Pose) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.frames.Set(slot, pose)
}

func (t *FrameTracker) UpdatePhysicalReference(pose posemath.Pose) {
	t.set(PhysicalReference, pose)
}

func (t *FrameTracker) UpdatePhysicalDependent(pose posemath.Pose) {
	t.set(PhysicalDependent, pose)
}

// SetVirtualReference registers the rendered entity standing in for the
// reference object and re-solves against its rendered pose, applying the
// result if the dependent entity is known.
func (t *FrameTracker) SetVirtualReference(entity scene.Entity) error {
	t.virtualReference = entity
	t.attached = false
	return t.refreshAndRecompute()
}

// ClearVirtualReference forgets the reference entity. A dependent entity
// parented under it is moved back under its own anchor.
func (t *FrameTracker) ClearVirtualReference() error {
	t.virtualReference = scene.Entity{}
	if !t.attached {
		return nil
	}

	t.attached = false
	if t.virtualDependent.IsZero() || t.dependentHome.IsZero() {
		return nil
	}
	if err := t.renderer.Attach(t.virtualDependent, t.dependentHome, t.homeOffset); err != nil {
		return fmt.Errorf("failed to re-home virtual dependent: %w", err)
	}
	return nil
}

// SetVirtualDependent registers the rendered entity standing in for the
// dependent object. home and homeOffset describe where it sits while it is
// not parented under the virtual reference.
func (t *FrameTracker) SetVirtualDependent(entity, home scene.Entity, homeOffset posemath.Pose) error {
	t.virtualDependent = entity
	t.dependentHome = home
	t.homeOffset = homeOffset
	t.attached = false
	return t.refreshAndRecompute()
}

func (t *FrameTracker) refreshAndRecompute() error {
	if err := t.RefreshVirtualFrames(); err != nil {
		return err
	}
	_, _, err := t.Recompute()
	return err
}

// ClearVirtualDependent forgets the dependent entity and takes it out of the
// reference entity's subtree.
func (t *FrameTracker) ClearVirtualDependent() error {
	entity, attached := t.virtualDependent, t.attached
	t.virtualDependent = scene.Entity{}
	t.dependentHome = scene.Entity{}
	t.attached = false

	if attached && !entity.IsZero() {
		if err := t.renderer.Detach(entity); err != nil {
			return fmt.Errorf("failed to detach virtual dependent: %w", err)
		}
	}
	return nil
}

// RefreshVirtualFrames reads the current rendered world poses of the virtual
// entities into the frame set.
func (t *FrameTracker) RefreshVirtualFrames() error {
	if !t.virtualReference.IsZero() {
		pose, err := t.renderer.WorldPose(t.virtualReference)
		if err != nil {
			return fmt.Errorf("failed to read virtual reference pose: %w", err)
		}
		t.set(VirtualReference, pose)
	}

	if !t.virtualDependent.IsZero() {
		pose, err := t.renderer.WorldPose(t.virtualDependent)
		if err != nil {
			return fmt.Errorf("failed to read virtual dependent pose: %w", err)
		}
		t.set(VirtualDependent, pose)
	}
	return nil
}

// Recompute solves the current frames and applies the result, or keeps it
// pending until both virtual entities exist. Only the latest result is kept.
// It reports false when the physical frames are not yet known.
func (t *FrameTracker) Recompute() (posemath.Pose, bool, error) {
	pose, ok := Solve(t.Frames())
	if !ok {
		return pose, false, nil
	}

	t.emit(events.NewLocalPoseComputed(pose))
	t.pending, t.hasPending = pose, true
	return pose, true, t.applyPending()
}

func (t *FrameTracker) applyPending() error {
	if !t.hasPending || t.virtualReference.IsZero() || t.virtualDependent.IsZero() {
		return nil
	}
	pose := t.pending

	firstAttach := !t.attached
	if firstAttach {
		if err := t.renderer.Attach(t.virtualDependent, t.virtualReference, pose); err != nil {
			return fmt.Errorf("failed to attach virtual dependent: %w", err)
		}
		t.attached = true
	} else if err := t.renderer.SetLocalPose(t.virtualDependent, pose); err != nil {
		return fmt.Errorf("failed to set virtual dependent pose: %w", err)
	}
	t.hasPending = false

	t.emit(events.NewLocalPoseApplied(t.virtualDependent, pose, firstAttach))

	worldPose, err := t.renderer.WorldPose(t.virtualDependent)
	if err != nil {
		return fmt.Errorf("failed to read virtual dependent pose: %w", err)
	}
	t.set(VirtualDependent, worldPose)
	return nil
}
