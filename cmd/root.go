package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel     string   // Log verbosity level
	catalogPaths []string // Catalog files, merged in order
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "inference-sizer",
	Short: "Capacity sizing for LLM inference clusters",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringSliceVar(&catalogPaths, "catalog", []string{"testdata/catalog.yaml"}, "Catalog file(s) with models, servers and storage_profiles (YAML or JSON)")

	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(validateCmd)
}
