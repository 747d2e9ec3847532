package commands

import (
	"github.com/koscakluka/overlay-core/internal/config"
	"github.com/koscakluka/overlay-core/internal/printer"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect reference object catalogs",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a reference object catalog file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogValidate,
}

var catalogSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the catalog file format",
	Args:  cobra.NoArgs,
	RunE:  runCatalogSchema,
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogSchemaCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	catalog, err := config.LoadCatalog(args[0])
	if err != nil {
		return printer.Error(
			"catalog is invalid",
			err.Error(),
			[]string{"Every object needs a unique name and default_model must be set"},
		)
	}

	printer.Success("%s is valid\n", args[0])
	printer.Info("  reference: %s\n", catalog.ReferenceName())
	printer.Info("  default model: %s\n", catalog.DefaultModel)
	for _, object := range catalog.Objects {
		model := object.Model
		if model == "" {
			model = catalog.DefaultModel
		}
		printer.Info("  %s -> %s\n", object.Name, model)
	}
	return nil
}

func runCatalogSchema(cmd *cobra.Command, args []string) error {
	schema, err := config.CatalogSchema()
	if err != nil {
		return printer.Error("failed to generate schema", err.Error(), nil)
	}

	printer.Println(string(schema))
	return nil
}
