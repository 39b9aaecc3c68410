/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicsnet/internal/domain"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunFillsAliases(t *testing.T) {
	issues := []domain.Issue{
		{Title: "Justice League #1", CoverCharacters: domain.StringPtr("Justice League of America [Superman [Clark Kent]; Batman [Bruce Wayne]; Flash [Barry Allen]]")},
		{Title: "Batman #400", CoverCharacters: domain.StringPtr("Batman [Bruce Wayne]; Robin [Jason Todd]")},
		{Title: "Sandman #1"},
		{Title: "Blank #1", CoverCharacters: domain.StringPtr("  ")},
	}
	rep, err := Run(context.Background(), issues, Options{Workers: 2, Logger: quiet()})
	require.NoError(t, err)

	_, err = uuid.Parse(rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 2, rep.Parsed)
	assert.Equal(t, 1, rep.Absent)
	assert.Equal(t, 1, rep.Empty)
	assert.Equal(t, 1, rep.Teams)

	assert.Equal(t, []string{"Superman [Clark Kent]", "Batman [Bruce Wayne]", "Flash [Barry Allen]"}, issues[0].CharacterAliases)
	assert.Equal(t, []string{"Batman [Bruce Wayne]", "Robin [Jason Todd]"}, issues[1].CharacterAliases)
	assert.Nil(t, issues[2].CharacterAliases)
	assert.Empty(t, issues[3].CharacterAliases)
	assert.Equal(t, 2, rep.Characters["Batman [Bruce Wayne]"])
	assert.False(t, rep.Finished.Before(rep.Started))
}

func TestRunManyIssues(t *testing.T) {
	issues := make([]domain.Issue, 500)
	for i := range issues {
		issues[i] = domain.Issue{
			Title:           fmt.Sprintf("Batman #%d", i+1),
			CoverCharacters: domain.StringPtr("Batman [Bruce Wayne]; Alfred Pennyworth"),
		}
	}
	rep, err := Run(context.Background(), issues, Options{Workers: 8, Logger: quiet()})
	require.NoError(t, err)
	assert.Equal(t, 500, rep.Parsed)
	assert.Equal(t, 500, rep.Characters["Alfred Pennyworth"])
	for _, is := range issues {
		require.Len(t, is.CharacterAliases, 2)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	issues := []domain.Issue{{Title: "A", CoverCharacters: domain.StringPtr("A")}}
	_, err := Run(ctx, issues, Options{Logger: quiet()})
	assert.ErrorIs(t, err, context.Canceled)
}
