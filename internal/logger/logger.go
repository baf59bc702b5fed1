// Package logger builds the zerolog loggers used across the service.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

type LogBuild struct {
	writer io.Writer
	path   string
	level  string
	format string
}

func New() *LogBuild {
	return &LogBuild{}
}

func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// Level accepts any zerolog level name. Unknown names fall back to info.
func (build *LogBuild) Level(level string) *LogBuild {
	build.level = level
	return build
}

// Format is "json" (default) or "console".
func (build *LogBuild) Format(format string) *LogBuild {
	build.format = format
	return build
}

func (build *LogBuild) Make() (zerolog.Logger, error) {
	var w io.Writer = os.Stdout
	if build.writer != nil {
		w = build.writer
	}

	if build.path != "" {
		file, err := os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return zerolog.Nop(), err
		}
		w = zerolog.SyncWriter(file)
	}

	if strings.EqualFold(build.format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(build.level)))
	if err != nil || build.level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// Component tags a logger with the component emitting the entries.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
