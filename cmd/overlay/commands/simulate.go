package commands

import (
	orchestration "github.com/koscakluka/overlay-core/core"
	"github.com/koscakluka/overlay-core/internal/printer"
	"github.com/koscakluka/overlay-core/internal/simulate"
	"github.com/spf13/cobra"
)

var (
	simulateCatalog    string
	simulateAnimations bool
	simulateQuiet      bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <script.yaml>",
	Short: "Replay an anchor and transcript script against an in-memory scene",
	Long: `Replay a scripted sequence of anchor detections, updates, removals and
spoken transcripts through the orchestrator, printing every emitted event
and the final component visibility.

Script format:
  assets:
    - name: Phantom
      root:
        name: phantom
        children: [{name: Bone}, {name: Brain}, {name: Skin}]
  steps:
    - add: {id: phantom, position: [0, 0, -0.5]}
    - say: {text: hey probe}
    - say: {text: hide bone}
    - wait: 500ms
    - update: {id: phantom, position: [0, 0.1, -0.5], rotation: [0, 90, 0]}
    - remove: {id: phantom}`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&simulateCatalog, "catalog", "c", "", "Reference object catalog (defaults to OVERLAY_CATALOG)")
	simulateCmd.Flags().BoolVar(&simulateAnimations, "animations", false, "Animate visibility changes")
	simulateCmd.Flags().BoolVarP(&simulateQuiet, "quiet", "q", false, "Only print the final state")

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog(simulateCatalog)
	if err != nil {
		return err
	}

	script, err := simulate.LoadScript(args[0])
	if err != nil {
		return printer.Error("failed to load script", err.Error(), nil)
	}

	opts := []simulate.RunnerOption{
		simulate.WithOrchestratorOptions(
			orchestration.WithPreload(true),
			orchestration.WithProcessorOptions(processorOptions(catalog)...),
			orchestration.WithSessionOptions(sessionOptions()...),
			orchestration.WithApplierOptions(applierOptions(simulateAnimations)...),
		),
	}
	if !simulateQuiet {
		opts = append(opts, simulate.WithEventHandler(printer.Event))
	}

	result, err := simulate.NewRunner(opts...).Run(cmd.Context(), script)
	if err != nil {
		return printer.Error("simulation failed", err.Error(), nil)
	}

	printer.Step("session %s\n", result.Session.State)
	for _, component := range result.Components {
		state := "hidden"
		if component.Enabled {
			state = "visible"
		}
		printer.Info("  %s: %s\n", component.ID, state)
	}
	printer.Success("replayed %d steps, %d events\n", len(script.Steps), len(result.Events))
	return nil
}
