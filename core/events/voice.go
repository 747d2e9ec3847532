package events

import "github.com/koscakluka/overlay-core/core/commands"

const (
	KindSessionAwake               Kind = "voice.session_awake"
	KindSessionAsleep              Kind = "voice.session_asleep"
	KindWakeWordDetectedChanged    Kind = "voice.wake_word_detected_changed"
	KindCommandRecognized          Kind = "voice.command_recognized"
	KindCommandExecutedChanged     Kind = "voice.command_executed_changed"
	KindComponentVisibilityChanged Kind = "components.visibility_changed"
)

type SleepReason string

const (
	SleepReasonPhrase  SleepReason = "phrase"
	SleepReasonTimeout SleepReason = "timeout"
	SleepReasonStopped SleepReason = "stopped"
)

type SessionAwake struct {
	Base
	Transcript string
}

func NewSessionAwake(transcript string) SessionAwake {
	return SessionAwake{Base: NewBase(KindSessionAwake), Transcript: transcript}
}

type SessionAsleep struct {
	Base
	Reason SleepReason
}

func NewSessionAsleep(reason SleepReason) SessionAsleep {
	return SessionAsleep{Base: NewBase(KindSessionAsleep), Reason: reason}
}

type WakeWordDetectedChanged struct {
	Base
	Detected bool
}

func NewWakeWordDetectedChanged(detected bool) WakeWordDetectedChanged {
	return WakeWordDetectedChanged{Base: NewBase(KindWakeWordDetectedChanged), Detected: detected}
}

type CommandRecognized struct {
	Base
	Command    commands.Command
	Strategy   string
	Transcript string
}

func NewCommandRecognized(command commands.Command, strategy, transcript string) CommandRecognized {
	return CommandRecognized{
		Base:       NewBase(KindCommandRecognized),
		Command:    command,
		Strategy:   strategy,
		Transcript: transcript,
	}
}

// CommandExecutedChanged mirrors the transient "command executed" flag.
// Transcript is empty when the flag clears.
type CommandExecutedChanged struct {
	Base
	Executed   bool
	Transcript string
}

func NewCommandExecutedChanged(executed bool, transcript string) CommandExecutedChanged {
	return CommandExecutedChanged{Base: NewBase(KindCommandExecutedChanged), Executed: executed, Transcript: transcript}
}

type ComponentVisibilityChanged struct {
	Base
	Component commands.Component
	Enabled   bool
}

func NewComponentVisibilityChanged(component commands.Component, enabled bool) ComponentVisibilityChanged {
	return ComponentVisibilityChanged{Base: NewBase(KindComponentVisibilityChanged), Component: component, Enabled: enabled}
}
