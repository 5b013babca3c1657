package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/luxnode/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "LUXNODE_"

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port         string `help:"Port to listen on" short:"p" default:":8091" toml:"server.port" env:"SERVER_PORT"`
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Camera settings
	CameraDevice          string `help:"Capture device path (empty: first available)" default:"" toml:"camera.device" env:"CAMERA_DEVICE"`
	CameraIOMethod        string `help:"Capture I/O method (read, mmap, userptr)" default:"mmap" toml:"camera.io_method" env:"CAMERA_IO_METHOD"`
	CameraWarmupFrames    int    `help:"Frames discarded before sampling" default:"1" toml:"camera.warmup_frames" env:"CAMERA_WARMUP_FRAMES"`
	CameraRetryTimeoutMs  int    `help:"Give up waiting for a frame after this many milliseconds" default:"5000" toml:"camera.retry_timeout_ms" env:"CAMERA_RETRY_TIMEOUT_MS"`
	CameraRetryIntervalMs int    `help:"Delay between attempts when no frame is ready" default:"33" toml:"camera.retry_interval_ms" env:"CAMERA_RETRY_INTERVAL_MS"`
	CameraLockControls    bool   `help:"Disable auto gain, white balance and backlight compensation while sampling" default:"true" toml:"camera.lock_controls" env:"CAMERA_LOCK_CONTROLS"`

	// Screen settings
	ScreenDisplay     string `help:"X display to sample (empty: $DISPLAY)" default:"" toml:"screen.display" env:"SCREEN_DISPLAY"`
	ScreenCropPercent int    `help:"Centred share of the screen sampled, in percent" default:"85" toml:"screen.crop_percent" env:"SCREEN_CROP_PERCENT"`
	ScreenStride      int    `help:"Sample one pixel every N along both axes" default:"8" toml:"screen.stride" env:"SCREEN_STRIDE"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingScreen  string `help:"Screen sampler logging level" default:"info" toml:"logging.screen" env:"LOGGING_SCREEN"`
	LoggingSensor  string `help:"Sensor service logging level" default:"info" toml:"logging.sensor" env:"LOGGING_SENSOR"`
	LoggingDevices string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// Logging returns the logging configuration carried by the options.
func (o *Options) Logging() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"capture": o.LoggingCapture,
			"screen":  o.LoggingScreen,
			"sensor":  o.LoggingSensor,
			"devices": o.LoggingDevices,
			"api":     o.LoggingAPI,
		},
	}
}

// Defaults returns the options with every default tag applied.
func Defaults() Options {
	var opts Options
	v := reflect.ValueOf(&opts).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if def := t.Field(i).Tag.Get("default"); def != "" {
			_ = setFieldValueFromString(v.Field(i), def)
		}
	}
	return opts
}

// LoadFile reads the options stored in a TOML file on top of base, with env
// overrides applied. Flags changed on cmd keep their base value. It is the
// loader used by the config watcher.
func LoadFile(path string, base Options, cmd *cobra.Command) (Options, error) {
	opts := base
	opts.Config = path
	if _, err := os.Stat(path); err != nil {
		return opts, err
	}
	if err := LoadConfig(&opts, cmd); err != nil {
		return opts, err
	}
	return opts, nil
}

// LoadConfig loads configuration with proper precedence: CLI args > env vars > config file.
// If cmd is provided, flags explicitly set via CLI will not be overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changedFlags := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		})
	}

	var fileValues map[string]any
	if field := v.FieldByName("Config"); field.IsValid() && field.String() != "" {
		if data, err := os.ReadFile(field.String()); err == nil {
			if err := toml.Unmarshal(data, &fileValues); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if changedFlags[fieldNameToFlag(fieldType.Name)] {
			continue
		}

		if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" && fileValues != nil {
			if value := getNestedValue(fileValues, tomlPath); value != nil {
				if err := setFieldValue(field, value); err != nil {
					return fmt.Errorf("config key %s: %w", tomlPath, err)
				}
			}
		}

		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				if err := setFieldValueFromString(field, envValue); err != nil {
					return fmt.Errorf("env %s%s: %w", EnvPrefix, envKey, err)
				}
			}
		}
	}

	return nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "CameraIOMethod" -> "camera-io-method", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// setFieldValue sets a field from a decoded TOML value.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	}
	return nil
}

// setFieldValueFromString sets a field value from string (for env vars).
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	}
	return nil
}
