/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	fastshot "github.com/opus-domini/fast-shot"

	"github.com/rsaustro/gpdpick/internal/aes"
	"github.com/rsaustro/gpdpick/internal/config"
	"github.com/rsaustro/gpdpick/internal/model"
	"github.com/rsaustro/gpdpick/internal/mseed"
	"github.com/rsaustro/gpdpick/internal/waveform"
)

const fdsnTimeLayout = "2006-01-02T15:04:05.000000"

// dataselect fetches waveforms from an fdsnws-dataselect 1.1 web
// service. Stations carrying credentials are queried with basic auth,
// the stored password is decrypted with the service secret.
type dataselect struct {
	base    string
	timeout time.Duration
	secret  string
}

func newDataselect(cfg config.Config) *dataselect {
	src := cfg.Source()

	return &dataselect{
		base:    strings.TrimPrefix(src.URL, "fdsn+"),
		timeout: time.Duration(src.Timeout) * time.Second,
		secret:  cfg.Secret(),
	}
}

func (d *dataselect) client(station *model.Station) (fastshot.ClientHttpMethods, error) {
	c := fastshot.NewClient(d.base)
	if station.FdsnUser != "" {
		pass, err := aes.Decrypt(d.secret, station.FdsnPass)
		if err != nil {
			return nil, fmt.Errorf("decrypt station credentials: %w", err)
		}
		c.Auth().BasicAuth(station.FdsnUser, pass)
	}

	return c.Config().SetTimeout(d.timeout).
		Config().SetFollowRedirects(true).
		Build(), nil
}

func (d *dataselect) Fetch(ctx context.Context, station *model.Station, from, to time.Time) (waveform.Stream, error) {
	slog.Debug("Fetching waveforms from dataselect", "station", station.SID(), "from", from, "to", to)

	client, err := d.client(station)
	if err != nil {
		return nil, err
	}

	resp, err := client.GET("/fdsnws/dataselect/1/query?" + d.query(station, from, to)).
		Context().Set(ctx).
		Retry().SetExponentialBackoff(time.Second, 3, 2.0).
		Send()
	if err != nil {
		return nil, fmt.Errorf("dataselect request: %w", err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		msg, _ := resp.Body().AsString()
		if msg = strings.TrimSpace(msg); msg == "" {
			msg = "request failed"
		}
		return nil, fmt.Errorf("dataselect: %s", firstLine(msg))
	}

	body, err := resp.Body().AsString()
	if err != nil {
		return nil, fmt.Errorf("dataselect response: %w", err)
	}

	return mseed.DecodeBytes([]byte(body))
}

func (d *dataselect) query(station *model.Station, from, to time.Time) string {
	loc := station.Location
	if loc == "" {
		loc = "--"
	}

	v := url.Values{}
	v.Set("net", station.Network)
	v.Set("sta", station.Code)
	v.Set("loc", loc)
	v.Set("cha", strings.Join(station.Channels, ","))
	v.Set("start", from.UTC().Format(fdsnTimeLayout))
	v.Set("end", to.UTC().Format(fdsnTimeLayout))

	return v.Encode()
}

// firstLine trims an fdsnws error page to its summary line.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
