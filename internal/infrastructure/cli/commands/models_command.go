package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/opsloop/internal/app"
	"github.com/doeshing/opsloop/internal/domain"
)

// NewModelsCommand lists the configured backends.
func NewModelsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			listModels(cmd.OutOrStdout(), container.Config)
			return nil
		},
	}
}

func listModels(out io.Writer, cfg domain.Config) {
	for _, model := range cfg.Models {
		marker := " "
		if model.Name == cfg.Preferences.DefaultModel {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s [%s]", marker, model.Name, model.Kind())
		if model.ModelID != "" {
			fmt.Fprintf(out, " %s", model.ModelID)
		}
		if model.AuthEnvVar != "" {
			fmt.Fprintf(out, " (key: $%s)", model.AuthEnvVar)
		}
		fmt.Fprintln(out)
	}
}
