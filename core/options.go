package orchestration

import (
	"github.com/google/uuid"
	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/components"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/posemath"
	"github.com/koscakluka/overlay-core/core/scene"
	"github.com/koscakluka/overlay-core/core/tracking"
	"github.com/koscakluka/overlay-core/core/transcripts"
	"github.com/koscakluka/overlay-core/core/voice"
)

type OrchestratorOption func(*Orchestrator)

// WithRenderer sets the scene the orchestrator draws into. Assets are
// loaded from the same scene unless WithAssetLoader provides another loader.
func WithRenderer(renderer scene.Renderer) OrchestratorOption {
	return func(o *Orchestrator) {
		if renderer != nil {
			o.renderer = renderer
		}
	}
}

func WithAssetLoader(loader scene.AssetLoader) OrchestratorOption {
	return func(o *Orchestrator) {
		if loader != nil {
			o.loader = loader
		}
	}
}

// WithAnchorEvents sets the stream of anchor events driving the tracking
// session. Closing the channel ends the session.
func WithAnchorEvents(anchorEvents <-chan tracking.AnchorEvent) OrchestratorOption {
	return func(o *Orchestrator) { o.anchorEvents = anchorEvents }
}

// WithTranscriptSource sets where voice transcripts come from. Without one
// the voice session only reacts to HandleTranscript calls.
func WithTranscriptSource(source transcripts.Source) OrchestratorOption {
	return func(o *Orchestrator) { o.transcriptSource = source }
}

func WithProcessorOptions(opts ...tracking.ProcessorOption) OrchestratorOption {
	return func(o *Orchestrator) { o.processorOptions = append(o.processorOptions, opts...) }
}

func WithSessionOptions(opts ...voice.SessionOption) OrchestratorOption {
	return func(o *Orchestrator) { o.sessionOptions = append(o.sessionOptions, opts...) }
}

func WithApplierOptions(opts ...components.ApplierOption) OrchestratorOption {
	return func(o *Orchestrator) { o.applierOptions = append(o.applierOptions, opts...) }
}

func WithListenOptions(opts ...voice.ListenOption) OrchestratorOption {
	return func(o *Orchestrator) { o.listenOptions = append(o.listenOptions, opts...) }
}

// WithPreload loads the reference and default models before any anchor
// event is processed. A failed preload makes Orchestrate return an error.
func WithPreload(preload bool) OrchestratorOption {
	return func(o *Orchestrator) { o.preload = preload }
}

type OrchestrateOptions struct {
	onEvent                 func(event events.Event)
	onVisualizationAttached func(anchorID uuid.UUID, referenceName string)
	onVisualizationDetached func(anchorID uuid.UUID)
	onLocalPoseApplied      func(pose posemath.Pose, firstAttach bool)
	onSessionStateChanged   func(state voice.State)
	onCommand               func(command commands.Command, transcript string)
	onVisibilityChanged     func(component commands.Component, enabled bool)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithEventCallback registers a callback receiving every outbound event in
// emission order.
//
// Callbacks run on a single goroutine, so a slow callback delays later
// events.
func WithEventCallback(callback func(event events.Event)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onEvent = callback
	}
}

func WithVisualizationAttachedCallback(callback func(anchorID uuid.UUID, referenceName string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onVisualizationAttached = callback
	}
}

func WithVisualizationDetachedCallback(callback func(anchorID uuid.UUID)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onVisualizationDetached = callback
	}
}

// WithLocalPoseAppliedCallback registers a callback for every pose applied
// to the virtual dependent object relative to the virtual reference object.
func WithLocalPoseAppliedCallback(callback func(pose posemath.Pose, firstAttach bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onLocalPoseApplied = callback
	}
}

func WithSessionStateCallback(callback func(state voice.State)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSessionStateChanged = callback
	}
}

func WithCommandCallback(callback func(command commands.Command, transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onCommand = callback
	}
}

func WithVisibilityCallback(callback func(component commands.Component, enabled bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onVisibilityChanged = callback
	}
}
