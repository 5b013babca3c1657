package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smazurov/luxnode/internal/events"
	"github.com/smazurov/luxnode/internal/logging"
	"github.com/smazurov/luxnode/internal/sensor"
	"github.com/spf13/cobra"
)

// CreateSampleCmd creates the sample command.
func CreateSampleCmd() *cobra.Command {
	var flags commonFlags
	var device string
	var count int
	var interval time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:       "sample [camera|screen]",
		Short:     "Take brightness samples",
		Long:      `Samples the camera (default) or the X screen and prints the brightness in the 0-255 range.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{events.SourceCamera, events.SourceScreen},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := events.SourceCamera
			if len(args) == 1 {
				source = args[0]
			}

			opts, err := flags.load()
			if err != nil {
				return err
			}
			s, err := settings(opts, device)
			if err != nil {
				return err
			}
			svc := sensor.New(s, nil)
			logger := logging.GetLogger("sensor")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sample := svc.SampleCamera
			if source == events.SourceScreen {
				sample = svc.SampleScreen
			}
			return runSamples(ctx, cmd.OutOrStdout(), sample, count, interval, asJSON, func(err error) {
				logger.Warn("Sample failed", "source", source, "error", err)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&device, "device", "d", "", "Camera device path (overrides camera.device)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of samples; 0 samples until interrupted")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Delay between samples")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print samples as JSON lines")
	return cmd
}

// runSamples takes count samples, or samples until ctx ends when count is 0.
// A single failing sample is returned as the error; in a series failures are
// reported and sampling continues.
func runSamples(
	ctx context.Context,
	w io.Writer,
	sample func(context.Context) (sensor.Reading, error),
	count int,
	interval time.Duration,
	asJSON bool,
	onError func(error),
) error {
	for i := 0; count == 0 || i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}

		r, err := sample(ctx)
		if err != nil {
			if count == 1 || ctx.Err() != nil {
				return err
			}
			onError(err)
			continue
		}
		if err := printReading(w, r, asJSON); err != nil {
			return err
		}
	}
	return nil
}

func printReading(w io.Writer, r sensor.Reading, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(events.SampleTakenEvent{
			Source:     r.Source,
			Device:     r.Device,
			Brightness: r.Brightness,
			Multiplier: r.Multiplier,
			DurationMs: r.Duration.Milliseconds(),
			Timestamp:  r.At.Format(time.RFC3339),
		})
	}
	if r.Multiplier != 0 {
		_, err := fmt.Fprintf(w, "%s %s brightness=%d multiplier=%.2f took=%s\n",
			r.Source, r.Device, r.Brightness, r.Multiplier, r.Duration.Round(time.Millisecond))
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s brightness=%d took=%s\n",
		r.Source, r.Device, r.Brightness, r.Duration.Round(time.Millisecond))
	return err
}
