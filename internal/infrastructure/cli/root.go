package cli

import (
	"github.com/spf13/cobra"

	"github.com/doeshing/opsloop/internal/app"
	"github.com/doeshing/opsloop/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command. The container is built once
// flags are parsed, so --config can select the file.
func NewRootCmd(opts Options) *cobra.Command {
	container := &app.Container{}
	var (
		configPath string
		flags      commands.RunFlags
	)

	root := &cobra.Command{
		Use:   "opsloop",
		Short: "opsloop - guided operations from a chat model",
		Long: "opsloop walks a product operation (install, uninstall, ...) with a chat model: " +
			"it proposes shell commands, you confirm each one, and failures are sent back for a fix.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			built, err := app.BuildContainer(cmd.Context(), app.Options{
				ConfigPath: configPath,
				Verbose:    opts.Verbose,
			})
			if err != nil {
				return err
			}
			*container = *built
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunSession(cmd, container, flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $OPSLOOP_CONFIG or ~/.opsloop/config.yaml)")
	commands.BindRunFlags(root, &flags)

	root.AddCommand(
		commands.NewRunCommand(container),
		commands.NewUseCasesCommand(container),
		commands.NewModelsCommand(container),
		commands.NewGuardrailCommand(container),
		commands.NewConfigCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewVersionCommand(),
	)
	return root
}
