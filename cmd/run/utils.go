/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package run

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func completeServerLogLevel(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return []cobra.Completion{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveDefault
}

func completeServerLogFormat(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return []cobra.Completion{"structured", "json", "text"}, cobra.ShellCompDirectiveDefault
}

// setLogger installs the process wide logger. The text format keeps
// the stdlib log output untouched.
func setLogger(logLevel string, logFormat string) {
	level, ok := logLevels[logLevel]
	if !ok {
		cobra.CheckErr("unknown log level")
	}

	opts := &slog.HandlerOptions{Level: level}

	switch logFormat {
	case "structured":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
	case "text":
		return
	default:
		cobra.CheckErr("unknown log format")
	}
}
