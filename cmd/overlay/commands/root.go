package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koscakluka/overlay-core/internal/config"
	"github.com/koscakluka/overlay-core/internal/printer"
	"github.com/koscakluka/overlay-core/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	cfg               config.Config
	shutdownTelemetry = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "overlay",
	Short: "Overlay - tracked model visualization with voice control",
	Long: `Overlay attaches virtual models to tracked physical objects, keeps
a dependent object aligned relative to the reference object, and toggles
model components by voice.

Configuration is read from OVERLAY_* environment variables; the Deepgram
API key is read from DEEPGRAM_API_KEY.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		printer.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())

		loaded, err := config.Load()
		if err != nil {
			return printer.Error(
				"invalid configuration",
				err.Error(),
				[]string{"Check the OVERLAY_* environment variables"},
			)
		}
		cfg = loaded

		shutdown, err := telemetry.Setup(cmd.Context(), cfg.Telemetry)
		if err != nil {
			printer.Warning("tracing disabled: %v\n", err)
			return nil
		}
		shutdownTelemetry = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if err := shutdownTelemetry(context.WithoutCancel(cmd.Context())); err != nil {
			printer.Warning("failed to flush traces: %v\n", err)
		}
		return nil
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Cobra's own error and usage output is
// silenced; commands print formatted errors through the printer package.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
