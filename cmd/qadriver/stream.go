package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qa40x-go/streamdriver/internal/demoloop"
	"github.com/qa40x-go/streamdriver/internal/session"
	"github.com/qa40x-go/streamdriver/internal/wavsink"
	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
	"github.com/qa40x-go/streamdriver/pkg/hostapi"
)

// newStreamToWavCmd captures every input channel of a device variant to
// a WAV file for a fixed duration. With no physical device attached it
// runs against demoloop's in-process loopback bus, so the full
// session/worker pipeline — priming, steady-state iteration, format
// translation, WAV encoding — gets exercised end to end.
func newStreamToWavCmd() *cobra.Command {
	var variant string
	var sampleRate int
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "stream-to-wav <output.wav>",
		Short: "Capture input channels to a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVariant(variant)
			if err != nil {
				return err
			}
			return runStreamToWav(cmd.Context(), args[0], v, sampleRate, duration)
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "QA401", "device variant: QA401, QA402, QA403")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", 48000, "sample rate in Hz")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to capture")
	return cmd
}

func runStreamToWav(ctx context.Context, outPath string, variant deviceprofile.Variant, sampleRate int, duration time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adapter, err := demoloop.Open(ctx, variant)
	if err != nil {
		return fmt.Errorf("opening device: %w", err)
	}
	profile := adapter.Profile()

	w, err := wavsink.New(outPath, sampleRate, profile.InputChannels)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer w.Close()

	sess := session.New(adapter, nil, session.Hooks{})
	bufferFrames := profile.StartThresholdFrames

	var infos []hostapi.ChannelInfo
	for c := 0; c < profile.InputChannels; c++ {
		infos = append(infos, hostapi.ChannelInfo{IsInput: true, ChannelIndex: c})
	}

	writeErr := make(chan error, 1)
	callbacks := hostapi.ClientCallbacks{
		BufferSwitch: func(bufferIndex int) {
			planes := make([][]int32, profile.InputChannels)
			for c := range planes {
				planes[c] = sess.InputPlane(c, bufferIndex)
			}
			if err := w.WritePlanes(planes, bufferFrames); err != nil {
				select {
				case writeErr <- err:
				default:
				}
			}
		},
	}

	settings := deviceprofile.Settings{InputFullScaleDBV: -20, OutputFullScaleDBV: -20, SampleRate: sampleRate}
	if err := sess.CreateBuffers(infos, bufferFrames, false, settings, callbacks); err != nil {
		return fmt.Errorf("createBuffers: %w", err)
	}
	defer sess.DisposeBuffers()

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
	case err := <-writeErr:
		sess.Stop()
		return fmt.Errorf("writing wav: %w", err)
	}
	sess.Stop()

	fmt.Printf("captured %s to %s\n", duration, outPath)
	return nil
}
