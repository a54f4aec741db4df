package main

import (
	"fmt"
	"os"

	"github.com/amirhossein-jamali/payment-reconciler/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

var (
	environment string
	configDirs  []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "reconciler",
		Short:         "Payment transaction and webhook reconciliation engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&environment, "env", "e", "", "environment name (defaults to RP_ENV or development)")
	rootCmd.PersistentFlags().StringSliceVar(&configDirs, "config-dir", nil, "directories searched for <env>.yaml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(auditCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration from flags, .env files, YAML and RP_ variables
func loadConfig() (*config.Config, error) {
	return config.LoadEnvironment(environment, configDirs)
}
