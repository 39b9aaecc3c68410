/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	applog "comicsnet/internal/log"
)

func TestClientSendAndUploadCrash(t *testing.T) {
	var mu sync.Mutex
	var events [][]byte
	var crashes [][]byte

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		events = append(events, b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		crashes = append(crashes, b)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}

	ctx := applog.WithRunID(context.Background(), "run-1")
	if err := c.Send(ctx, "ingest_run", map[string]any{"parsed": 3}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.UploadCrash(ctx, []byte("STACKTRACE")); err != nil {
		t.Fatalf("upload crash: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 || len(crashes) != 1 {
		t.Fatalf("expected one event and one crash, got %d and %d", len(events), len(crashes))
	}
	var ev Event
	if err := json.Unmarshal(events[0], &ev); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if ev.Name != "ingest_run" || ev.RunID != "run-1" || ev.Time.IsZero() {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Props["parsed"] != float64(3) {
		t.Fatalf("props not sent: %v", ev.Props)
	}
	if string(crashes[0]) != "STACKTRACE" {
		t.Fatalf("crash body mismatch: %q", crashes[0])
	}
}

func TestDisabledClientSendsNothing(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hit = true }))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL})
	if c.Enabled() {
		t.Fatalf("client without opt-in must be disabled")
	}
	if err := c.Send(context.Background(), "x", nil); err != nil {
		t.Fatalf("disabled send returned %v", err)
	}
	if err := c.UploadCrash(context.Background(), []byte("x")); err != nil {
		t.Fatalf("disabled upload returned %v", err)
	}
	var nilClient *Client
	if nilClient.Enabled() || nilClient.Send(context.Background(), "x", nil) != nil {
		t.Fatalf("nil client must be a no-op")
	}
	if hit {
		t.Fatalf("disabled client contacted the server")
	}
}

func TestSendReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL})
	if err := c.Send(context.Background(), "ingest_run", nil); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CN_TELEMETRY_OPT_IN", "yes")
	t.Setenv("CN_TELEMETRY_URL", " http://127.0.0.1:1/events ")
	t.Setenv("CN_CRASH_UPLOAD_URL", "")
	t.Setenv("CN_TELEMETRY_TIMEOUT_MS", "250")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL != "http://127.0.0.1:1/events" || cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	if !New(cfg).Enabled() {
		t.Fatalf("expected enabled client")
	}

	t.Setenv("CN_TELEMETRY_TIMEOUT_MS", "abc")
	if got := FromEnv().Timeout; got != 1500*time.Millisecond {
		t.Fatalf("bad timeout should fall back to default, got %v", got)
	}
}
