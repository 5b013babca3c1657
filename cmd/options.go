// Package cmd holds the one-shot subcommands that run without the API
// server.
package cmd

import (
	"github.com/smazurov/luxnode/internal/config"
	"github.com/smazurov/luxnode/internal/logging"
	"github.com/smazurov/luxnode/internal/sensor"
	"github.com/spf13/cobra"
)

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configFile string
	logJSON    bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "config.toml", "Path to configuration file")
	cmd.Flags().BoolVar(&f.logJSON, "log-json", false, "Use JSON log format")
}

// load reads the config file and env on top of the defaults and sets up
// logging to match.
func (f *commonFlags) load() (config.Options, error) {
	opts := config.Defaults()
	opts.Config = f.configFile
	if err := config.LoadConfig(&opts, nil); err != nil {
		return opts, err
	}
	if f.logJSON {
		opts.LoggingFormat = "json"
	}
	logging.Initialize(opts.Logging())
	return opts, nil
}

// settings converts options into sampler settings, with device overriding
// the configured camera when set.
func settings(opts config.Options, device string) (sensor.Settings, error) {
	if device != "" {
		opts.CameraDevice = device
	}
	return sensor.SettingsFromOptions(&opts)
}
