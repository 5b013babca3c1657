// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout when it is attached to a terminal, pipe or file, to the
// systemd journal when journald is running, and always to an in-memory
// history that backs the /api/logs endpoint.
//
// Initialize once at startup, then fetch loggers per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"capture": "debug",
//			"api":     "warn",
//		},
//	})
//
//	logger := logging.GetLogger("capture")
//	logger.Info("Sampled camera", "device", "/dev/video0", "brightness", 87)
//
// Loggers obtained before Initialize are kept and pick up the configured
// level afterwards. SetModuleLevel changes one module at runtime, which the
// config watcher uses to apply edits to the [logging.modules] table.
//
// Journal output is tagged with the syslog identifier "luxnode":
//
//	journalctl -t luxnode MODULE=capture
//	journalctl -t luxnode -p err
package logging
