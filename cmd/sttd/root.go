package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sttd/internal/config"
)

func newRootCmd() *cobra.Command { return newRootCmdWith(&rootOptions{getenv: os.Getenv}) }

// newRootCmdWith constructs the command tree around opts; tests inject getenv.
func newRootCmdWith(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "sttd",
		Short:         "Speech-to-text server backed by a pool of whisper models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error|off")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: console|json")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP server",
		Example: "  sttd serve --addr :8000 --models-dir ~/models/whisper\n  sttd serve -c sttd.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, opts.configPath, func(next *config.Config) { overlay(cmd, opts, next) })
		},
	}
	addCoreFlags(serveCmd)
	addServeFlags(serveCmd)

	preloadCmd := &cobra.Command{
		Use:     "preload [size...]",
		Short:   "Load models once to verify weights and the whisper-server setup",
		Example: "  sttd preload base small\n  sttd preload --device cpu",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runPreload(cmd.Context(), cmd.OutOrStdout(), cfg, args)
		},
	}
	addCoreFlags(preloadCmd)

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Show the device policy and the device new loads would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runDevices(cmd.OutOrStdout(), cfg, nil)
		},
	}
	devicesCmd.Flags().String("device", "", "Device policy: auto|cpu|cuda")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "sttd %s\n", version)
			return err
		},
	}

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})

	root.AddCommand(serveCmd, preloadCmd, devicesCmd, versionCmd, completionCmd)
	return root
}
