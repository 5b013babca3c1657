package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/luxnode/cmd"
	"github.com/smazurov/luxnode/internal/api"
	"github.com/smazurov/luxnode/internal/config"
	"github.com/smazurov/luxnode/internal/devices"
	"github.com/smazurov/luxnode/internal/events"
	"github.com/smazurov/luxnode/internal/logging"
	"github.com/smazurov/luxnode/internal/sensor"
	"github.com/smazurov/luxnode/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *config.Options) {
		// Load configuration; flags set on the command line win
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.Logging())
		logger := logging.GetLogger("main")
		logger.Info("Starting luxnode", "version", version.String())

		settings, err := sensor.SettingsFromOptions(opts)
		if err != nil {
			logger.Error("Invalid sampler settings", "error", err)
			os.Exit(1)
		}

		// Create event bus for in-process event handling
		eventBus := events.New()

		detector := devices.NewDetector(eventBus)
		sampler := sensor.New(settings, eventBus, sensor.WithCandidates(detector.Candidates))

		server := api.NewServer(&api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Sampler:      sampler,
			Devices:      detector,
			EventBus:     eventBus,
		})

		// Reloads start from the startup options; flags set on the command
		// line keep their value.
		base := *opts
		watcher := config.NewConfigWatcher(
			opts.Config,
			func(path string) (config.Options, error) {
				return config.LoadFile(path, base, cli.Root())
			},
			logger,
			config.WithErrorHandler[config.Options](func(err error) {
				logger.Warn("Config reload failed, keeping current settings", "error", err)
			}),
		)
		watcher.OnReload(func(next config.Options) {
			applyConfig(logger, sampler, eventBus, opts, next)
		})

		hooks.OnStart(func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if startErr := detector.Start(ctx); startErr != nil {
				logger.Warn("Hotplug monitoring unavailable, device list refreshes on restart only", "error", startErr)
			}
			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Failed to start config watcher, hot-reload disabled", "error", startErr)
			}

			if sent, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Warn("Failed to notify systemd", "error", notifyErr)
			} else if sent {
				logger.Debug("Notified systemd of readiness")
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if stopErr := server.Stop(ctx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}
			detector.Stop()
		})
	})

	cli.Root().Use = "luxnode"
	cli.Root().Short = "Ambient light sensing from cameras and screens"
	cli.Root().Version = version.String()
	cli.Root().AddCommand(
		cmd.CreateDevicesCmd(),
		cmd.CreateSampleCmd(),
		cmd.CreateControlsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(c *cobra.Command, _ []string) {
				c.Println("luxnode", version.String())
			},
		},
	)

	cli.Run()
}

// applyConfig pushes a reloaded config into the running services. Server
// address and credentials only change on restart.
func applyConfig(logger *slog.Logger, sampler *sensor.Service, bus *events.Bus, current *config.Options, next config.Options) {
	settings, err := sensor.SettingsFromOptions(&next)
	if err != nil {
		logger.Warn("Reloaded config rejected", "error", err)
		return
	}
	logging.Initialize(next.Logging())
	if err := sampler.UpdateSettings(settings); err != nil {
		logger.Warn("Reloaded config rejected", "error", err)
		return
	}

	if next.Port != current.Port || next.AuthUsername != current.AuthUsername || next.AuthPassword != current.AuthPassword {
		logger.Warn("Server settings changed, restart to apply")
	}
	logger.Info("Config reloaded", "path", next.Config)
	bus.Publish(events.ConfigReloadedEvent{
		Path:      next.Config,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
