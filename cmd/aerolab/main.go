package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/aerolab/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			printError(os.Stderr, "Error: "+err.Error())
		}
		os.Exit(1)
	}
}

// errReported marks a failure whose message was already printed.
var errReported = errors.New("reported")

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "aerolab",
		Short: "Wing design, optimization experiments and aerodynamics documentation tools",
		Long: `aerolab builds wings from per-station definitions, analyzes them with a
vortex-lattice solver, runs declarative optimization experiments (optionally
generated by an LLM from a plain-language description), and prepares a
searchable index of the aerodynamics library documentation.

Configuration is read from config/<ENV>.yaml (ENV defaults to "local").
API keys come from the environment or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.env, "env", "", "config environment (overrides $ENV)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	root.AddCommand(
		newVersionCmd(),
		newPlaneCmd(a),
		newExperimentCmd(a),
		newDocsCmd(a),
		newServeCmd(a),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printKV(cmd.OutOrStdout(), [][2]string{
				{"version", version.Version},
				{"commit", version.Commit},
				{"built", version.Date},
			})
		},
	}
}
