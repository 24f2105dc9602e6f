package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
)

// newInfoCmd reports the constant profile for a device variant. Real
// enumeration (which USB device, if any, is plugged in) is the
// façade's job via a device.Locator — out of scope for this tool, which
// only echoes the static per-variant constants the driver uses.
func newInfoCmd() *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the static profile for a device variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVariant(variant)
			if err != nil {
				return err
			}
			p := deviceprofile.ForVariant(v)
			fmt.Printf("variant:             %s\n", p.Variant)
			fmt.Printf("input channels:      %d\n", p.InputChannels)
			fmt.Printf("output channels:     %d\n", p.OutputChannels)
			fmt.Printf("sample bytes:        %d\n", p.SampleBytes)
			fmt.Printf("big endian:          %t\n", p.BigEndian)
			fmt.Printf("hw queue frames:     %d\n", p.HWQueueFrames)
			fmt.Printf("write granularity:   %d\n", p.WriteGranularity)
			fmt.Printf("start threshold:     %d\n", p.StartThresholdFrames)
			fmt.Printf("needs ping:          %t\n", p.NeedsPing)
			fmt.Printf("sample rates:        %v\n", p.SampleRates)
			return nil
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "QA401", "device variant: QA401, QA402, QA403")
	return cmd
}

func parseVariant(s string) (deviceprofile.Variant, error) {
	switch s {
	case "QA401":
		return deviceprofile.VariantQA401, nil
	case "QA402", "QA403":
		return deviceprofile.VariantQA40xModern, nil
	default:
		return 0, fmt.Errorf("unknown device variant %q", s)
	}
}
