// Package events defines the typed event contract emitted by the tracking
// and voice pipelines.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - anchor.*
//   - tracking.*
//   - voice.*
//   - components.*
//
// anchor events
//
//   - VisualizationAttached (anchor.visualization_attached): the model for an
//     anchor finished loading and was attached to the scene.
//   - VisualizationDetached (anchor.visualization_detached): the anchor was
//     removed or the session ended.
//   - VisualizationFailed (anchor.visualization_failed): asset load failed;
//     the anchor stays unvisualized until it is removed and added again.
//
// tracking events
//
//   - LocalPoseComputed (tracking.local_pose_computed): new pose of the
//     virtual dependent object relative to the virtual reference object.
//   - LocalPoseApplied (tracking.local_pose_applied): the pose was applied to
//     the dependent entity; FirstAttach marks the parenting call.
//
// voice events
//
//   - SessionAwake (voice.session_awake): a wake phrase was heard.
//   - SessionAsleep (voice.session_asleep): sleep phrase, inactivity timeout
//     or shutdown.
//   - WakeWordDetectedChanged (voice.wake_word_detected_changed): transient
//     wake feedback flag.
//   - CommandRecognized (voice.command_recognized): a transcript matched a
//     command while awake.
//   - CommandExecutedChanged (voice.command_executed_changed): transient
//     "command executed" flag, cleared shortly after it is raised.
//
// components events
//
//   - ComponentVisibilityChanged (components.visibility_changed): a named
//     component was enabled or disabled by the visibility applier.
package events
