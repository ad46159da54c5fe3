// Package log configures the CLI's slog logger from persistent flags.
package log

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

const (
	levelFlag  = "loglevel"
	formatFlag = "logformat"
)

// RegisterFlags adds --loglevel and --logformat to cmd and its children.
func RegisterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(levelFlag, "warn", "set the log level (debug, info, warn, error)")
	cmd.PersistentFlags().String(formatFlag, "text", "set the log format (text, json)")
}

// Logger builds the logger selected by the flags. It writes to the
// command's stderr; stdout carries templates and results.
func Logger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := Level(cmd)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	format, err := cmd.Flags().GetString(formatFlag)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	case "text":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	return slog.New(handler), nil
}

// Level returns the level selected by --loglevel.
func Level(cmd *cobra.Command) (slog.Level, error) {
	value, err := cmd.Flags().GetString(levelFlag)
	if err != nil {
		return slog.LevelWarn, err
	}
	switch value {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", value)
	}
}
