package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chandu8542/otkpp/internal/logging"
)

var (
	logLevel string
	logger   *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "otkpp",
	Short: "Local continuous optimization from the command line",
	Long: `otkpp runs iterative local optimizers (steepest descent, Newton,
Nelder-Mead) against a catalog of test problems and reports the
minimizer, counters, and iteration history.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		l, err := logging.NewLogger(&logging.Config{
			Level:  logLevel,
			Format: "console",
			Output: "stderr",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		logger = l
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
