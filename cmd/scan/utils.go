/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package scan

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

func completeScanOutput(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return []cobra.Completion{"text", "csv", "json"}, cobra.ShellCompDirectiveDefault
}

func completeScanLogLevel(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return []cobra.Completion{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveDefault
}

func completeScanLogFormat(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return []cobra.Completion{"structured", "json"}, cobra.ShellCompDirectiveDefault
}

// setLogger logs to stderr, keeping stdout clean for the pick output.
func setLogger(logLevel string, logFormat string) {
	level, ok := logLevels[logLevel]
	if !ok {
		cobra.CheckErr("unknown log level")
	}

	opts := &slog.HandlerOptions{Level: level}

	switch logFormat {
	case "structured":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	default:
		cobra.CheckErr("unknown log format")
	}
}
