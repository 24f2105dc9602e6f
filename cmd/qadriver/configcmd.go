package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qa40x-go/streamdriver/internal/config"
	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
)

// newConfigCmd groups config subcommands under "qadriver config ...".
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate session configuration files",
	}
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

// newConfigValidateCmd loads and validates a session config file against
// a device variant's profile without ever touching a device, matching
// the core's "fail before any device I/O" rule.
func newConfigValidateCmd() *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a session config file against a device profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVariant(variant)
			if err != nil {
				return err
			}
			p := deviceprofile.ForVariant(v)

			cfg, err := config.Load(args[0])
			if err != nil {
				return fmt.Errorf("loading %s: %w", args[0], err)
			}

			bufferFrames, err := config.Validate(cfg, p)
			if err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			fmt.Printf("config OK: bufferFrames=%d forceRead=%t logLevel=%s\n", bufferFrames, cfg.ForceRead, cfg.LogLevel)
			return nil
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "QA401", "device variant: QA401, QA402, QA403")
	return cmd
}
