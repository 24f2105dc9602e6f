package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/qa40x-go/streamdriver/internal/logging"
)

var (
	logLevel string
	logFile  string

	rootCmd = &cobra.Command{
		Use:   "qadriver",
		Short: "QA40x USB analyzer streaming driver",
		Long:  `qadriver drives full-duplex audio streaming to a QA401/QA402/QA403 USB audio analyzer and exposes it for inspection and offline capture.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			f, err := logging.ConfigureDefaultLogger(logLevel, logFile, slog.HandlerOptions{})
			if err != nil {
				return err
			}
			if f != nil {
				cobra.OnFinalize(func() { f.Close() })
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: none, error, warn, info, debug")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path (JSON); empty logs text to stdout")

	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newStreamToWavCmd())
	rootCmd.AddCommand(newConfigCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
