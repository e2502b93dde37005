package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/opsloop/internal/app"
	"github.com/doeshing/opsloop/internal/domain"
)

// NewUseCasesCommand lists the configured menu.
func NewUseCasesCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "usecases",
		Short: "List the configured use cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			displayUseCases(cmd.OutOrStdout(), container.Config.UseCases)
			return nil
		},
	}
}

func displayUseCases(out io.Writer, useCases []domain.UseCase) {
	if len(useCases) == 0 {
		fmt.Fprintln(out, MsgNoUseCases)
		return
	}
	for i, uc := range useCases {
		fmt.Fprintf(out, "%d. %s", i+1, uc.Title())
		if len(uc.OfflineSteps) > 0 {
			fmt.Fprintf(out, " (%d offline steps)", len(uc.OfflineSteps))
		}
		fmt.Fprintln(out)
		if uc.Description != "" {
			fmt.Fprintf(out, "   %s\n", uc.Description)
		}
	}
}
