// Package logging wires the global zerolog logger: console output always,
// rotated file output when a log file is configured.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the global logger. Unknown levels fall back to info.
func Setup(level, file string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	var out io.Writer = console
	if file != "" {
		out = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
