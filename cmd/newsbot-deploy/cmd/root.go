package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cryptonewsbr/newsbot-deploy/internal/config"
	"github.com/cryptonewsbr/newsbot-deploy/internal/logger"
	"github.com/cryptonewsbr/newsbot-deploy/internal/service/provisioner"
	"github.com/cryptonewsbr/newsbot-deploy/internal/service/updater"
	"github.com/cryptonewsbr/newsbot-deploy/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// logLevel for the run, parsed by the logger package.
	logLevel string

	// rootCmd represents the base command for provisioning and updating hosts.
	rootCmd = &cobra.Command{
		Use:   "newsbot-deploy",
		Short: "Provision and update newsbot hosts over SSH",
		Long: "Deployment tool for newsbot hosts. The provision subcommand prepares " +
			"a fresh host: system packages, source checkout, Python virtualenv, and " +
			"PostgreSQL objects. The update subcommand rolls an already provisioned " +
			"host forward and restarts the service.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
	}

	// provisionCmd prepares a fresh host end to end.
	provisionCmd = &cobra.Command{
		Use:   "provision",
		Short: "Prepare a fresh host: packages, checkout, virtualenv, database",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return provisioner.Run(ctx, &provisioner.Options{ConfigPath: configPath})
		},
	}

	// updateCmd rolls a provisioned host forward and restarts the service.
	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Fast-forward the checkout and restart the service",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return updater.Run(ctx, &updater.Options{ConfigPath: configPath})
		},
	}
)

// Execute runs the newsbot-deploy CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath,
		"config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel,
		"log-level", "info", "logging level (debug, info, warn, error)")

	rootCmd.AddCommand(provisionCmd, updateCmd)
}
