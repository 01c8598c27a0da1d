package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchplane/internal/config"
	"github.com/kailas-cloud/searchplane/internal/version"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(version.Version, args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing.
func Execute(ver string, args []string) error {
	rootCmd := newRootCmd(ver, openTokenAdmin)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func newRootCmd(ver string, tokens tokenAdminFactory) *cobra.Command {
	var env string

	serve := func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context(), env)
	}

	rootCmd := &cobra.Command{
		Use:           "searchplane",
		Short:         "Multi-tenant search control plane",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "configuration environment (local, dev, prod)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP and notification server",
			Args:  cobra.NoArgs,
			RunE:  serve,
		},
		newTokenCmd(&env, tokens),
	)
	return rootCmd
}
