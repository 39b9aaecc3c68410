/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry posts opt-in run summaries and crash reports to HTTP
// endpoints. Nothing is sent unless the user opts in and configures a URL.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "comicsnet/internal/log"
	"comicsnet/internal/version"
)

// Config holds the endpoints and opt-in flag.
//
// Environment variables (read by FromEnv):
//   - CN_TELEMETRY_OPT_IN: "1", "true", "yes" or "on" to enable
//   - CN_TELEMETRY_URL: URL that receives JSON run events
//   - CN_CRASH_UPLOAD_URL: URL that receives crash reports as text
//   - CN_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
}

func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv("CN_TELEMETRY_OPT_IN")),
		EventsURL: strings.TrimSpace(os.Getenv("CN_TELEMETRY_URL")),
		CrashURL:  strings.TrimSpace(os.Getenv("CN_CRASH_UPLOAD_URL")),
		Timeout:   1500 * time.Millisecond,
	}
	if ms := strings.TrimSpace(os.Getenv("CN_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Event is the JSON body of a run event. Props must not carry personal data;
// character names and counts are fine.
type Event struct {
	Name    string         `json:"name"`
	RunID   string         `json:"run_id,omitempty"`
	Time    time.Time      `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client sends events synchronously. A nil Client is disabled.
type Client struct {
	cfg Config
	log *slog.Logger
	cli *http.Client
}

// New constructs a client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	return &Client{
		cfg: cfg,
		log: applog.WithComponent("telemetry"),
		cli: &http.Client{Timeout: cfg.Timeout},
	}
}

// Default is the client configured from the environment.
var Default = sync.OnceValue(func() *Client { return New(FromEnv()) })

// Enabled reports whether run events will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Send posts one event. The run ID is taken from ctx. A disabled client
// returns nil without doing anything.
func (c *Client) Send(ctx context.Context, name string, props map[string]any) error {
	if !c.Enabled() || name == "" {
		return nil
	}
	ev := Event{
		Name:    name,
		RunID:   applog.RunID(ctx),
		Time:    time.Now().UTC(),
		Version: version.Version,
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Props:   props,
	}
	buf, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return c.post(ctx, c.cfg.EventsURL, "application/json", buf)
}

// UploadCrash posts a crash report when the user opted in and a crash URL is set.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return nil
	}
	return c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report)
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		c.log.Debug("telemetry send failed", slog.String("url", url), slog.Any("err", err))
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telemetry: %s returned %s", url, resp.Status)
	}
	c.log.Debug("telemetry sent", slog.String("url", url), slog.Int("bytes", len(body)))
	return nil
}
