// Command focusforge runs the progression engine as a long-lived
// process (serve), inspects its state (status), or drives it
// interactively (repl).
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/focusforge-dev/focusforge"
)

// Version is set via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     "focusforge",
		Short:   "Gamified focus tracking with offline-first sync",
		Version: Version,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newStatusCmd(&configPath),
		newReplCmd(&configPath),
	)
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("FOCUSFORGE_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "focusforge.yaml"
	}
	return filepath.Join(home, ".focusforge", "config.yaml")
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := focusforge.Open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			log.Printf("focusforge %s serving", Version)
			return app.Run(cmd.Context())
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current progression snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := focusforge.Open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			printView(cmd.OutOrStdout(), app.Engine().Snapshot())
			return nil
		},
	}
}

func newReplCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Drive the engine interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			app, err := focusforge.Open(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			go func() {
				if err := app.Run(ctx); err != nil {
					log.Printf("engine stopped: %v", err)
				}
			}()

			return runRepl(ctx, app)
		},
	}
}
