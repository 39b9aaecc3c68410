/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"comicsnet/internal/domain"
)

func TestCheckIndex_OnCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.sqlite")
	if err := os.WriteFile(path, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rebuilt, err := CheckIndex(ctx, path)
	if err != nil {
		t.Fatalf("CheckIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	x, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer x.Close()
	if got, err := x.Issues(ctx, ""); err != nil || len(got) != 0 {
		t.Fatalf("expected empty healthy index, got %d issues (%v)", len(got), err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, backupsDirName))
	if len(entries) == 0 {
		t.Fatalf("expected backup file in %s", backupsDirName)
	}
}

func TestCheckIndex_Healthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	x, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	ctx := context.Background()
	if err := x.IndexIssues(ctx, Run{}, []domain.Issue{{Title: "Batman #1", CharacterAliases: []string{"Batman"}}}); err != nil {
		t.Fatalf("IndexIssues: %v", err)
	}
	_ = x.Close()

	rebuilt, err := CheckIndex(ctx, path)
	if err != nil || rebuilt {
		t.Fatalf("healthy index should be left alone: rebuilt=%v err=%v", rebuilt, err)
	}
	x, err = OpenIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer x.Close()
	if got, _ := x.Issues(ctx, ""); len(got) != 1 {
		t.Fatalf("expected data to survive check, got %d", len(got))
	}
}
