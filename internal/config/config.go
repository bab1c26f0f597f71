/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"reflect"
	"slices"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Source locates the waveform endpoint. Supported URL schemes are
// fdsn+http, fdsn+https for dataselect services and file, s3, gs for
// SDS day file archives.
type Source struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout_seconds"`
}

// Archive is the bucket for waveform snippets and pick exports. An
// empty URL disables archiving.
type Archive struct {
	URL string `json:"url"`
}

// Weights locates the detection network container.
type Weights struct {
	Path      string `json:"path"`
	BatchSize int    `json:"batch_size"`
}

// Detector holds trigger parameters. Off must lie below the on
// thresholds, probabilities are in (0, 1]. A negative HighpassHz
// disables the filter.
type Detector struct {
	StrideSamples    int     `json:"stride_samples"`
	ThresholdP       float64 `json:"threshold_p"`
	ThresholdS       float64 `json:"threshold_s"`
	ThresholdOff     float64 `json:"threshold_off"`
	MinWidth         int     `json:"min_width"`
	MinSeparation    float64 `json:"min_separation_seconds"`
	HighpassHz       float64 `json:"highpass_hz"`
	SnippetThreshold float64 `json:"snippet_threshold"`
	SnippetSeconds   float64 `json:"snippet_seconds"`
}

// Scan drives the periodic station sweep.
type Scan struct {
	Cron            string `json:"cron"`
	Concurrency     int    `json:"concurrency"`
	LatencySeconds  int    `json:"latency_seconds"`
	BackfillSeconds int    `json:"backfill_max_seconds"`
}

type Data struct {
	CreatedAt   string      `json:"created_at"`
	Database    string      `json:"database"`
	Profiler    string      `json:"profiler"`
	Hostname    string      `json:"hostname"`
	Id          string      `json:"id"`
	Secret      string      `json:"secret"`
	Version     string      `json:"version"`
	Credentials Credentials `json:"credentials"`
	Source      Source      `json:"source"`
	Archive     Archive     `json:"archive"`
	Weights     Weights     `json:"weights"`
	Detector    Detector    `json:"detector"`
	Scan        Scan        `json:"scan"`
}

type Config interface {
	Version() string
	Hostname() string
	Database() string
	Profiler() string
	Id() string
	CreatedAt() string
	Library() string
	Secret() string
	Credentials() (string, string)
	Source() Source
	Archive() Archive
	Weights() Weights
	Detector() Detector
	Scan() Scan
}

type settings struct {
	data    *Data
	library string
}

func NewFromFile(file string) (Config, error) {
	slog.Debug("Reading configuration file", "file", file)

	if !path.IsAbs(file) {
		return nil, fmt.Errorf("configuration file path must be absolute: %s", file)
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %v", file, err)
	}

	return NewFromString(string(raw), path.Dir(file))
}

func NewFromString(jsonString string, library string) (Config, error) {
	slog.Debug("Parsing configuration from string")

	var data Data
	if err := json.Unmarshal([]byte(jsonString), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration file: %v", err)
	}

	applyDefaults(&data)

	if err := valid(&data); err != nil {
		return nil, err
	}

	slog.Debug("Configuration data", "data", filterSecrets(&data))

	return &settings{
		data:    &data,
		library: library,
	}, nil
}

func NewFromData(data *Data, library string) Config {
	slog.Debug("Creating configuration from data", "data", filterSecrets(data), "library", library)

	copied := *data
	applyDefaults(&copied)

	return &settings{
		data:    &copied,
		library: library,
	}
}

func (c *settings) Version() string {
	return c.data.Version
}

func (c *settings) Hostname() string {
	return c.data.Hostname
}

func (c *settings) Database() string {
	return c.data.Database
}

func (c *settings) Profiler() string {
	return c.data.Profiler
}

func (c *settings) Id() string {
	return c.data.Id
}

func (c *settings) CreatedAt() string {
	return c.data.CreatedAt
}

func (c *settings) Library() string {
	return c.library
}

func (c *settings) Secret() string {
	return c.data.Secret
}

func (c *settings) Credentials() (string, string) {
	return c.data.Credentials.Username, c.data.Credentials.Password
}

func (c *settings) Source() Source {
	return c.data.Source
}

func (c *settings) Archive() Archive {
	return c.data.Archive
}

func (c *settings) Weights() Weights {
	return c.data.Weights
}

func (c *settings) Detector() Detector {
	return c.data.Detector
}

func (c *settings) Scan() Scan {
	return c.data.Scan
}

func applyDefaults(data *Data) {
	if data.Source.Timeout <= 0 {
		data.Source.Timeout = 60
	}
	if data.Weights.BatchSize <= 0 {
		data.Weights.BatchSize = 256
	}

	d := &data.Detector
	if d.StrideSamples == 0 {
		d.StrideSamples = 10
	}
	if d.ThresholdP == 0 {
		d.ThresholdP = 0.98
	}
	if d.ThresholdS == 0 {
		d.ThresholdS = 0.95
	}
	if d.ThresholdOff == 0 {
		d.ThresholdOff = 0.5
	}
	if d.MinWidth <= 0 {
		d.MinWidth = 1
	}
	if d.MinSeparation <= 0 {
		d.MinSeparation = 1.0
	}
	if d.HighpassHz == 0 {
		d.HighpassHz = 2.0
	}
	if d.SnippetThreshold == 0 {
		d.SnippetThreshold = 0.995
	}
	if d.SnippetSeconds <= 0 {
		d.SnippetSeconds = 60
	}

	s := &data.Scan
	if s.Cron == "" {
		s.Cron = "*/5 * * * *"
	}
	if s.Concurrency <= 0 {
		s.Concurrency = 4
	}
	if s.LatencySeconds <= 0 {
		s.LatencySeconds = 120
	}
	if s.BackfillSeconds <= 0 {
		s.BackfillSeconds = 3600
	}
}

func valid(data *Data) error {
	fields := []string{
		"CreatedAt",
		"Database",
		"Hostname",
		"Id",
		"Secret",
		"Version",
	}
	object := reflect.ValueOf(*data)
	for _, field := range fields {
		value := object.FieldByName(field)
		if !value.IsValid() || value.Len() == 0 {
			return fmt.Errorf("invalid configuration data, missing field: %s", field)
		}
	}

	object = reflect.ValueOf(data.Credentials)
	for _, field := range []string{"Username", "Password"} {
		value := object.FieldByName(field)
		if !value.IsValid() || value.Len() == 0 {
			return fmt.Errorf("invalid configuration data, missing field: Credentials.%s", field)
		}
	}

	if data.Source.URL == "" {
		return fmt.Errorf("invalid configuration data, missing field: Source.URL")
	}
	if data.Weights.Path == "" {
		return fmt.Errorf("invalid configuration data, missing field: Weights.Path")
	}

	d := &data.Detector
	for name, v := range map[string]float64{
		"ThresholdP":   d.ThresholdP,
		"ThresholdS":   d.ThresholdS,
		"ThresholdOff": d.ThresholdOff,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("invalid configuration data, Detector.%s out of range: %v", name, v)
		}
	}
	if d.ThresholdOff >= d.ThresholdP || d.ThresholdOff >= d.ThresholdS {
		return fmt.Errorf("invalid configuration data, Detector.ThresholdOff must lie below the on thresholds")
	}
	if d.StrideSamples < 1 {
		return fmt.Errorf("invalid configuration data, Detector.StrideSamples must be positive: %d", d.StrideSamples)
	}

	return nil
}

func filterSecrets(p any) map[string]string {
	secrets := []string{"Secret", "Credentials"}

	result := make(map[string]string)
	object := reflect.ValueOf(p).Elem()
	typ := object.Type()

	for i := range object.NumField() {
		field := typ.Field(i)
		if slices.Contains(secrets, field.Name) {
			result[field.Name] = "REDACTED"
		} else {
			result[field.Name] = fmt.Sprintf("%v", object.Field(i).Interface())
		}
	}

	return result
}
