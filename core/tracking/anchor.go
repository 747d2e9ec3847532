package tracking

import (
	"github.com/google/uuid"
	"github.com/koscakluka/overlay-core/core/posemath"
)

type AnchorEventKind int

const (
	AnchorAdded AnchorEventKind = iota
	AnchorUpdated
	AnchorRemoved
)

func (k AnchorEventKind) String() string {
	switch k {
	case AnchorAdded:
		return "added"
	case AnchorUpdated:
		return "updated"
	case AnchorRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// AnchorEvent is one detection, update or loss reported by the tracking
// provider. WorldPose is meaningless for AnchorRemoved.
type AnchorEvent struct {
	AnchorID      uuid.UUID
	Kind          AnchorEventKind
	ReferenceName string
	WorldPose     posemath.Pose
}

func Added(anchorID uuid.UUID, referenceName string, worldPose posemath.Pose) AnchorEvent {
	return AnchorEvent{AnchorID: anchorID, Kind: AnchorAdded, ReferenceName: referenceName, WorldPose: worldPose}
}

func Updated(anchorID uuid.UUID, referenceName string, worldPose posemath.Pose) AnchorEvent {
	return AnchorEvent{AnchorID: anchorID, Kind: AnchorUpdated, ReferenceName: referenceName, WorldPose: worldPose}
}

func Removed(anchorID uuid.UUID, referenceName string) AnchorEvent {
	return AnchorEvent{AnchorID: anchorID, Kind: AnchorRemoved, ReferenceName: referenceName, WorldPose: posemath.Identity()}
}
