package events

import (
	"github.com/google/uuid"
	"github.com/koscakluka/overlay-core/core/posemath"
	"github.com/koscakluka/overlay-core/core/scene"
)

const (
	KindVisualizationAttached Kind = "anchor.visualization_attached"
	KindVisualizationDetached Kind = "anchor.visualization_detached"
	KindVisualizationFailed   Kind = "anchor.visualization_failed"
	KindAssetPreloaded        Kind = "anchor.asset_preloaded"
	KindLocalPoseComputed     Kind = "tracking.local_pose_computed"
	KindLocalPoseApplied      Kind = "tracking.local_pose_applied"
)

type VisualizationAttached struct {
	Base
	AnchorID      uuid.UUID
	ReferenceName string
	AssetName     string
	Model         scene.Entity
}

func NewVisualizationAttached(anchorID uuid.UUID, referenceName, assetName string, model scene.Entity) VisualizationAttached {
	return VisualizationAttached{
		Base:          NewBase(KindVisualizationAttached),
		AnchorID:      anchorID,
		ReferenceName: referenceName,
		AssetName:     assetName,
		Model:         model,
	}
}

type VisualizationDetached struct {
	Base
	AnchorID uuid.UUID
}

func NewVisualizationDetached(anchorID uuid.UUID) VisualizationDetached {
	return VisualizationDetached{Base: NewBase(KindVisualizationDetached), AnchorID: anchorID}
}

type VisualizationFailed struct {
	Base
	AnchorID  uuid.UUID
	AssetName string
	Err       error
}

func NewVisualizationFailed(anchorID uuid.UUID, assetName string, err error) VisualizationFailed {
	return VisualizationFailed{Base: NewBase(KindVisualizationFailed), AnchorID: anchorID, AssetName: assetName, Err: err}
}

// AssetPreloaded reports startup progress: Loaded of Total required assets
// are ready.
type AssetPreloaded struct {
	Base
	AssetName string
	Loaded    int
	Total     int
}

func NewAssetPreloaded(assetName string, loaded, total int) AssetPreloaded {
	return AssetPreloaded{Base: NewBase(KindAssetPreloaded), AssetName: assetName, Loaded: loaded, Total: total}
}

// LocalPoseComputed carries the pose of the virtual dependent object
// relative to the virtual reference object, as derived from the latest
// frames.
type LocalPoseComputed struct {
	Base
	Pose posemath.Pose
}

func NewLocalPoseComputed(pose posemath.Pose) LocalPoseComputed {
	return LocalPoseComputed{Base: NewBase(KindLocalPoseComputed), Pose: pose}
}

type LocalPoseApplied struct {
	Base
	Entity      scene.Entity
	Pose        posemath.Pose
	FirstAttach bool
}

func NewLocalPoseApplied(entity scene.Entity, pose posemath.Pose, firstAttach bool) LocalPoseApplied {
	return LocalPoseApplied{Base: NewBase(KindLocalPoseApplied), Entity: entity, Pose: pose, FirstAttach: firstAttach}
}
