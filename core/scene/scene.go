// Package scene describes the rendering and asset-loading collaborators the
// tracking and voice pipelines drive. The core never renders anything
// itself; every placement or visibility change is an explicit call on a
// Renderer.
package scene

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/overlay-core/core/posemath"
)

// Entity is an opaque handle to a render-ready object.
type Entity struct {
	ID   uuid.UUID
	Name string
}

func (e Entity) IsZero() bool { return e.ID == uuid.Nil }

func (e Entity) String() string {
	if e.Name == "" {
		return e.ID.String()
	}
	return e.Name + "(" + e.ID.String() + ")"
}

type Easing string

const (
	EaseLinear    Easing = "linear"
	EaseIn        Easing = "ease_in"
	EaseOut       Easing = "ease_out"
	EaseInOut     Easing = "ease_in_out"
	DefaultEasing        = EaseInOut
)

var ErrUnknownEntity = errors.New("unknown entity")

// Renderer is the outbound interface to the scene graph.
//
// Animate is fire-and-forget: it returns once the animation is scheduled and
// completion is time based.
type Renderer interface {
	Root() Entity
	NewEntity(name string) (Entity, error)
	Attach(child, parent Entity, offset posemath.Pose) error
	Detach(entity Entity) error
	SetLocalPose(entity Entity, pose posemath.Pose) error
	SetEnabled(entity Entity, enabled bool) error
	Animate(entity Entity, to posemath.Pose, duration time.Duration, easing Easing) error
	StopAnimations(entity Entity) error
	LocalPose(entity Entity) (posemath.Pose, error)
	WorldPose(entity Entity) (posemath.Pose, error)
	Parent(entity Entity) (Entity, bool)
	Children(entity Entity) []Entity
}

// AssetLoader loads named assets and produces independent instances that
// share the underlying geometry.
type AssetLoader interface {
	Load(ctx context.Context, name string) (Entity, error)
	Clone(ctx context.Context, entity Entity) (Entity, error)
}

var ErrAssetNotFound = errors.New("asset not found")

// LoadError reports a missing or corrupt asset.
type LoadError struct {
	Asset string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load asset %q: %v", e.Asset, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
