package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/opsloop/internal/app"
	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/infrastructure/console"
)

// RunFlags are the per-session overrides of the run command.
type RunFlags struct {
	Product        string
	Operation      string
	Model          string
	CommandTimeout time.Duration
	MaxFix         int
	Plain          bool
}

// NewRunCommand creates the interactive session command.
func NewRunCommand(container *app.Container) *cobra.Command {
	var flags RunFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive session for a use case",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunSession(cmd, container, flags)
		},
	}
	BindRunFlags(cmd, &flags)
	return cmd
}

// BindRunFlags registers the session flags on cmd.
func BindRunFlags(cmd *cobra.Command, flags *RunFlags) {
	cmd.Flags().StringVar(&flags.Product, "product", "", "Product to operate on (skips the menu with --operation)")
	cmd.Flags().StringVar(&flags.Operation, "operation", "", "Operation to perform, e.g. Install")
	cmd.Flags().StringVarP(&flags.Model, "model", "m", "", "Override model name (default from config)")
	cmd.Flags().DurationVar(&flags.CommandTimeout, "command-timeout", 0, "Per-command timeout (default execution.timeout)")
	cmd.Flags().IntVar(&flags.MaxFix, "max-fix", 0, "Fix attempts before asking (0 = config, negative = unlimited)")
	cmd.Flags().BoolVar(&flags.Plain, "plain", false, "Disable colour, markdown rendering and the spinner")
}

// RunSession picks a use case and drives one session to its end. Leaving
// the menu, end of input and Ctrl-C all end without an error.
func RunSession(cmd *cobra.Command, container *app.Container, flags RunFlags) error {
	ctx := cmd.Context()
	con := console.New(console.Options{
		Context: ctx,
		In:      cmd.InOrStdin(),
		Out:     cmd.OutOrStdout(),
		Err:     cmd.ErrOrStderr(),
		Plain:   flags.Plain,
	})

	uc, err := pickUseCase(ctx, con, container.Config, flags)
	if err != nil {
		if errors.Is(err, domain.ErrNoUseCase) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(cmd.OutOrStdout(), MsgGoodbye)
			return nil
		}
		return err
	}

	opts := app.SessionOptions{
		Model:          flags.Model,
		CommandTimeout: flags.CommandTimeout,
		Console:        con,
	}
	if cmd.Flags().Changed("max-fix") {
		opts.MaxFixAttempts = &flags.MaxFix
	}
	session, err := container.NewSession(opts)
	if err != nil {
		return err
	}
	defer session.Close()

	systemInfo := "{}"
	if info, err := container.SystemProbe.Probe(ctx); err != nil {
		container.Logger.Warn("system probe failed", map[string]interface{}{"error": err.Error()})
	} else {
		systemInfo = info.JSON()
	}

	if _, err := session.Orchestrator.Run(ctx, uc, systemInfo); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(cmd.OutOrStdout(), MsgGoodbye)
			return nil
		}
		return err
	}
	return nil
}

func pickUseCase(ctx context.Context, con *console.Console, cfg domain.Config, flags RunFlags) (domain.UseCase, error) {
	if flags.Product == "" && flags.Operation == "" {
		return con.SelectUseCase(ctx, cfg.UseCases)
	}
	if flags.Product == "" || flags.Operation == "" {
		return domain.UseCase{}, errors.New(ErrProductOperationPair)
	}
	if uc, ok := cfg.FindUseCase(flags.Product, flags.Operation); ok {
		return uc, nil
	}
	return domain.UseCase{Product: flags.Product, Operation: flags.Operation}, nil
}
