package orchestration

import (
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/voice"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.VisualizationAttached:
			if opts.onVisualizationAttached != nil {
				opts.onVisualizationAttached(typedEvent.AnchorID, typedEvent.ReferenceName)
			}
		case events.VisualizationDetached:
			if opts.onVisualizationDetached != nil {
				opts.onVisualizationDetached(typedEvent.AnchorID)
			}
		case events.LocalPoseApplied:
			if opts.onLocalPoseApplied != nil {
				opts.onLocalPoseApplied(typedEvent.Pose, typedEvent.FirstAttach)
			}
		case events.SessionAwake:
			if opts.onSessionStateChanged != nil {
				opts.onSessionStateChanged(voice.Awake)
			}
		case events.SessionAsleep:
			if opts.onSessionStateChanged != nil {
				opts.onSessionStateChanged(voice.Asleep)
			}
		case events.CommandRecognized:
			if opts.onCommand != nil {
				opts.onCommand(typedEvent.Command, typedEvent.Transcript)
			}
		case events.ComponentVisibilityChanged:
			if opts.onVisibilityChanged != nil {
				opts.onVisibilityChanged(typedEvent.Component, typedEvent.Enabled)
			}
		}
	}
}
