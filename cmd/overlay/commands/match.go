package commands

import (
	"strings"

	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/internal/printer"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <utterance...>",
	Short: "Match an utterance against the voice command grammar",
	Long: `Run an utterance through the command matching cascade and print the
recognized command together with the strategy that matched it.

Examples:
  overlay match "show bone"
  overlay match hide the soft tissue
  overlay match "toggle brian"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	utterance := strings.Join(args, " ")

	match, ok := commands.NewMatcher(commands.DefaultStrategies()...).Match(utterance)
	if !ok {
		printer.Warning("no command recognized in %q\n", utterance)
		return nil
	}

	printer.Success("%s (strategy: %s)\n", match.Command, match.Strategy)
	return nil
}
