package orchestration

import (
	"context"
	"testing"

	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/events"
)

func TestEventPlayerPlaysQueuedEventsBeforeStopping(t *testing.T) {
	player := newEventPlayer()

	for _, component := range []commands.Component{commands.Bone, commands.Brain, commands.Skin} {
		if !player.Ingest(events.NewComponentVisibilityChanged(component, false)) {
			t.Fatalf("expected %s to be queued", component)
		}
	}
	if got := player.queuedEventCount(); got != 3 {
		t.Fatalf("expected 3 queued events, got %d", got)
	}

	var played []commands.Component
	player.StartLoop(context.Background(), func(_ context.Context, event events.Event) {
		played = append(played, event.(events.ComponentVisibilityChanged).Component)
	})
	player.Stop()
	player.AwaitDone()

	expected := []commands.Component{commands.Bone, commands.Brain, commands.Skin}
	if len(played) != len(expected) {
		t.Fatalf("expected %d played events, got %v", len(expected), played)
	}
	for i := range expected {
		if played[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, played)
		}
	}
}

func TestEventPlayerRejectsEventsAfterStop(t *testing.T) {
	player := newEventPlayer()
	player.Stop()

	if player.Ingest(events.NewSessionAwake("activate")) {
		t.Fatalf("expected Ingest to fail after Stop")
	}
	if player.StartLoop(context.Background(), func(context.Context, events.Event) {}) {
		t.Fatalf("expected StartLoop to fail after Stop")
	}
	player.AwaitDone()
}
