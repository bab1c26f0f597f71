/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package scan

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsaustro/gpdpick/internal/archive"
	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/database"
	"github.com/rsaustro/gpdpick/internal/gpd"
	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/mseed"
	"github.com/rsaustro/gpdpick/internal/scanner"
	"github.com/rsaustro/gpdpick/internal/source"
)

var Cmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-shot detection scan",
	Long: `Run the detection network over a local miniSEED file or over a
registered station and print the picks found.`,
	Run: scanCmd,
}

func init() {
	Cmd.Flags().StringP("scan.input", "", "", "Local miniSEED file to scan instead of the configured source")
	Cmd.Flags().StringP("scan.station", "", "", "Registered station to scan, as NET.CODE.LOC")
	Cmd.Flags().StringP("scan.from", "", "", "Interval start (RFC 3339)")
	Cmd.Flags().StringP("scan.to", "", "", "Interval end (RFC 3339)")
	Cmd.Flags().StringP("scan.output", "", "text", "Output format (text, csv, json)")
	Cmd.Flags().BoolP("scan.save", "", false, "Persist the picks of a station scan")
	Cmd.Flags().StringP("scan.log-level", "", "warn", "Log level (debug, info, warn, error)")
	Cmd.Flags().StringP("scan.log-format", "", "structured", "Log format (structured, json)")
	Cmd.Flags().StringP("service.config-file", "", "/var/lib/gpdpick/gpdpick.json", "Config file of the service")

	_ = Cmd.RegisterFlagCompletionFunc("scan.output", completeScanOutput)
	_ = Cmd.RegisterFlagCompletionFunc("scan.log-level", completeScanLogLevel)
	_ = Cmd.RegisterFlagCompletionFunc("scan.log-format", completeScanLogFormat)
}

func scanCmd(cmd *cobra.Command, args []string) {
	input, _ := cmd.Flags().GetString("scan.input")
	sid, _ := cmd.Flags().GetString("scan.station")
	output, _ := cmd.Flags().GetString("scan.output")
	logLevel, _ := cmd.Flags().GetString("scan.log-level")
	logFormat, _ := cmd.Flags().GetString("scan.log-format")
	configFile, _ := cmd.Flags().GetString("service.config-file")

	setLogger(logLevel, logFormat)

	cfg, err := config.NewFromFile(configFile)
	cobra.CheckErr(err)

	engine, err := gpd.Load(cfg.Weights().Path)
	cobra.CheckErr(err)

	var detections []scanner.Detection
	switch {
	case input != "":
		detections, err = scanFile(cmd, cfg, engine, input)
	case sid != "":
		detections, err = scanStation(cmd, cfg, engine, sid)
	default:
		err = errors.New("either --scan.input or --scan.station is required")
	}
	cobra.CheckErr(err)

	cobra.CheckErr(printDetections(output, detections))
}

func scanFile(cmd *cobra.Command, cfg config.Config, engine scanner.Engine, input string) ([]scanner.Detection, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	stream, err := mseed.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input, err)
	}

	from, to, ok, err := interval(cmd)
	if err != nil {
		return nil, err
	}
	if !ok {
		from, to = stream.Span()
	}

	sc := scanner.New(cfg, nil, engine, nil, nil)
	detections, windows, err := sc.Detect(cmd.Context(), stream, from, to)
	if err != nil {
		return nil, err
	}

	slog.Info("Scan finished", "input", input, "windows", windows, "picks", len(detections))

	return detections, nil
}

func scanStation(cmd *cobra.Command, cfg config.Config, engine scanner.Engine, sid string) ([]scanner.Detection, error) {
	from, to, ok, err := interval(cmd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("--scan.from and --scan.to are required to scan a station")
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		return nil, err
	}
	m := model.New(db.Connection())

	station, err := findStation(m, sid)
	if err != nil {
		return nil, err
	}

	src, err := source.New(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}

	save, _ := cmd.Flags().GetBool("scan.save")
	if save {
		arch, err := archive.New(cmd.Context(), cfg)
		if err != nil {
			return nil, err
		}

		sc := scanner.New(cfg, m, engine, src, arch)
		if _, err := sc.Scan(cmd.Context(), station, from, to); err != nil {
			return nil, err
		}

		picks := []model.Pick{}
		if _, err := m.ListPicksBetween(&picks, from, to); err != nil {
			return nil, err
		}

		var out []scanner.Detection
		for _, pick := range picks {
			if pick.StationID != station.ID {
				continue
			}
			out = append(out, scanner.Detection{
				Phase:        pick.Phase,
				Time:         pick.Time,
				Probability:  pick.Probability,
				TriggerStart: pick.TriggerStart,
				TriggerEnd:   pick.TriggerEnd,
			})
		}
		return out, nil
	}

	pad := time.Duration(float64(engine.WindowSamples()) / engine.SampleRate() * float64(time.Second))
	raw, err := src.Fetch(cmd.Context(), station, from.Add(-pad), to.Add(pad))
	if err != nil {
		return nil, err
	}

	sc := scanner.New(cfg, nil, engine, nil, nil)
	detections, windows, err := sc.Detect(cmd.Context(), raw, from, to)
	if err != nil {
		return nil, err
	}

	slog.Info("Scan finished", "station", station.SID(), "windows", windows, "picks", len(detections))

	return detections, nil
}

func findStation(m *model.Model, sid string) (*model.Station, error) {
	parts := strings.SplitN(sid, ".", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid station id %q, want NET.CODE.LOC", sid)
	}

	return m.FindStationBySID(parts[0], parts[1], parts[2])
}

func interval(cmd *cobra.Command) (time.Time, time.Time, bool, error) {
	fromFlag, _ := cmd.Flags().GetString("scan.from")
	toFlag, _ := cmd.Flags().GetString("scan.to")

	if fromFlag == "" && toFlag == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	if fromFlag == "" || toFlag == "" {
		return time.Time{}, time.Time{}, false, errors.New("--scan.from and --scan.to must be given together")
	}

	from, err := time.Parse(time.RFC3339, fromFlag)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("parse --scan.from: %w", err)
	}
	to, err := time.Parse(time.RFC3339, toFlag)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("parse --scan.to: %w", err)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, false, errors.New("scan interval is empty")
	}

	return from, to, true, nil
}

func printDetections(format string, detections []scanner.Detection) error {
	switch format {
	case "text":
		for _, d := range detections {
			fmt.Printf("%-2s %-32s p=%.4f\n", d.Phase, d.Time.UTC().Format(time.RFC3339Nano), d.Probability)
		}

	case "csv":
		w := csv.NewWriter(os.Stdout)
		_ = w.Write([]string{"phase", "time", "probability"})
		for _, d := range detections {
			_ = w.Write([]string{
				d.Phase,
				d.Time.UTC().Format(time.RFC3339Nano),
				strconv.FormatFloat(d.Probability, 'f', 4, 64),
			})
		}
		w.Flush()
		return w.Error()

	case "json":
		type row struct {
			Phase       string    `json:"phase"`
			Time        time.Time `json:"time"`
			Probability float64   `json:"probability"`
		}
		rows := make([]row, 0, len(detections))
		for _, d := range detections {
			rows = append(rows, row{Phase: d.Phase, Time: d.Time.UTC(), Probability: d.Probability})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)

	default:
		return fmt.Errorf("unknown output format: %q", format)
	}

	return nil
}
