package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/opsloop/internal/app"
	"github.com/doeshing/opsloop/internal/domain"
)

// NewGuardrailCommand creates the guardrail command with status and check subcommands
func NewGuardrailCommand(container *app.Container) *cobra.Command {
	guardrailCmd := &cobra.Command{
		Use:   "guardrail",
		Short: "Inspect security guardrails",
	}

	guardrailCmd.AddCommand(
		newGuardrailStatusCommand(container),
		newGuardrailCheckCommand(container),
	)

	return guardrailCmd
}

func newGuardrailStatusCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show guardrail status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if container.Guardrail == nil {
				fmt.Fprintln(out, "Guardrails are currently disabled.")
				return nil
			}
			fmt.Fprintln(out, "Guardrails are currently enabled.")
			fmt.Fprintf(out, "Rules: %d from %s\n", container.Guardrail.RuleCount(), container.Guardrail.Source())
			return nil
		},
	}
}

func newGuardrailCheckCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "check <command>",
		Short: "Evaluate a command against the guardrail rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Guardrail == nil {
				return fmt.Errorf("guardrails are disabled")
			}
			risk, err := container.Guardrail.Evaluate(strings.Join(args, " "))
			if err != nil {
				return err
			}
			displayRisk(cmd.OutOrStdout(), risk)
			return nil
		},
	}
}

func displayRisk(out io.Writer, risk domain.RiskAssessment) {
	fmt.Fprintf(out, "Risk: %s (%s)\n", strings.ToUpper(string(risk.Level)), risk.Action)
	for _, reason := range risk.Reasons {
		fmt.Fprintf(out, " - %s\n", reason)
	}
}
