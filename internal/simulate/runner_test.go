package simulate

import (
	"context"
	"testing"
	"time"

	orchestration "github.com/koscakluka/overlay-core/core"
	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/components"
	"github.com/koscakluka/overlay-core/core/events"
	"github.com/koscakluka/overlay-core/core/tracking"
	"github.com/koscakluka/overlay-core/core/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phantomScript = `
assets:
  - name: Phantom
    root:
      name: phantom
      children:
        - name: Bone
        - name: Brain
        - name: Skin
steps:
  - add:
      id: phantom
      position: [0, 0, -0.5]
  - say:
      text: hey probe
  - say:
      text: disable bone
  - update:
      id: phantom
      position: [0, 0.1, -0.5]
      rotation: [0, 90, 0]
`

func newTestRunner(opts ...RunnerOption) *Runner {
	return NewRunner(append([]RunnerOption{
		WithOrchestratorOptions(
			orchestration.WithProcessorOptions(tracking.WithModelSelector(
				tracking.NewModelSelector("Phantom", nil),
			)),
			orchestration.WithApplierOptions(components.WithAnimations(false)),
		),
		WithSettleTimeout(2 * time.Second),
	}, opts...)...)
}

func countKind(recorded []events.Event, kind events.Kind) int {
	count := 0
	for _, event := range recorded {
		if event.Kind() == kind {
			count++
		}
	}
	return count
}

func TestRunAppliesScriptedCommands(t *testing.T) {
	script, err := ParseScript([]byte(phantomScript))
	require.NoError(t, err)

	var observed []events.Kind
	runner := newTestRunner(WithEventHandler(func(event events.Event) {
		observed = append(observed, event.Kind())
	}))

	result, err := runner.Run(context.Background(), script)
	require.NoError(t, err)

	require.Len(t, result.Components, 3)
	for _, component := range result.Components {
		if component.ID == commands.Bone {
			assert.False(t, component.Enabled, "bone should be hidden")
		} else {
			assert.True(t, component.Enabled, "%s should stay visible", component.ID)
		}
	}

	require.Len(t, result.Visualizations, 1)
	assert.Equal(t, AnchorID("phantom"), result.Visualizations[0].AnchorID)
	assert.Equal(t, voice.Awake, result.Session.State)

	assert.Equal(t, 1, countKind(result.Events, events.KindVisualizationAttached))
	assert.Equal(t, 1, countKind(result.Events, events.KindCommandRecognized))
	assert.Equal(t, 1, countKind(result.Events, events.KindVisualizationDetached))
	assert.Len(t, observed, len(result.Events))
}

func TestRunReportsFailedLoads(t *testing.T) {
	script, err := ParseScript([]byte(`
steps:
  - add:
      id: ghost
  - say:
      text: activate
`))
	require.NoError(t, err)

	result, err := newTestRunner().Run(context.Background(), script)
	require.NoError(t, err)

	assert.Equal(t, 1, countKind(result.Events, events.KindVisualizationFailed))
	assert.Empty(t, result.Components)
}

func TestRunStopsOnOrchestratorFailure(t *testing.T) {
	script, err := ParseScript([]byte(`
steps:
  - add:
      id: phantom
`))
	require.NoError(t, err)

	runner := newTestRunner(WithOrchestratorOptions(orchestration.WithPreload(true)))
	_, err = runner.Run(context.Background(), script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orchestrator failed")
}

func TestRunHonorsContext(t *testing.T) {
	script, err := ParseScript([]byte("steps:\n  - wait: 1m\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = newTestRunner().Run(ctx, script)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
