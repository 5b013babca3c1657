// Package models holds the request and response shapes of the HTTP API.
package models

import "github.com/smazurov/luxnode/internal/version"

// HealthData represents health check data.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Health message"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Body HealthData
}

// VersionResponse represents build metadata.
type VersionResponse struct {
	Body version.Info
}

// BrightnessData is one brightness reading.
type BrightnessData struct {
	Source     string  `json:"source" example:"camera" doc:"Sample source: camera or screen"`
	Device     string  `json:"device,omitempty" example:"/dev/video0" doc:"Camera path or X display, live samples only"`
	Brightness int     `json:"brightness" example:"128" minimum:"0" maximum:"255" doc:"Mean luma of the sample"`
	Multiplier float64 `json:"multiplier,omitempty" example:"1.21" doc:"Screen size multiplier, screen samples only"`
	DurationMs int64   `json:"duration_ms" example:"41" doc:"Time spent sampling"`
	Timestamp  string  `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Sample timestamp"`
}

// LastBrightnessInput selects the source of a cached reading.
type LastBrightnessInput struct {
	Source string `path:"source" enum:"camera,screen" example:"camera" doc:"Sample source"`
}

// BrightnessResponse wraps a reading.
type BrightnessResponse struct {
	Body BrightnessData
}

// LogEntryData is one retained log record.
type LogEntryData struct {
	Timestamp  string         `json:"timestamp" example:"2026-01-27T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"capture" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// LogsData lists recent log records, oldest first.
type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Log records"`
	Count   int            `json:"count" example:"20" doc:"Number of records returned"`
}

// LogsResponse wraps LogsData.
type LogsResponse struct {
	Body LogsData
}

// LogLevelRequest changes the level of one module at runtime.
type LogLevelRequest struct {
	Module string `path:"module" example:"capture" doc:"Logger module"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New log level"`
	}
}

// LogLevelResponse confirms a level change.
type LogLevelResponse struct {
	Body struct {
		Module string `json:"module" example:"capture" doc:"Logger module"`
		Level  string `json:"level" example:"debug" doc:"Active log level"`
	}
}
