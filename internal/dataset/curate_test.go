/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicsnet/internal/export"
)

func writeDataset(t *testing.T, dir string, labels string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ImagesDirName), 0o755))
	for _, n := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ImagesDirName, n), []byte(n), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, export.LabelsFileName), []byte(labels), 0o644))
}

func TestExcludeWritesCuratedCopy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bunch")
	writeDataset(t, dir, "a.jpg\tBatman\nb.jpg\tRobin\nc.jpg\tBatman|Robin\n")

	n, err := Exclude(dir, []string{"b.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out := dir + UpdatedSuffix
	_, err = os.Stat(filepath.Join(out, ImagesDirName, "b.jpg"))
	assert.True(t, os.IsNotExist(err))
	b, err := os.ReadFile(filepath.Join(out, ImagesDirName, "c.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "c.jpg", string(b))

	b, err = os.ReadFile(filepath.Join(out, export.LabelsFileName))
	require.NoError(t, err)
	assert.Equal(t, "a.jpg\tBatman\nc.jpg\tBatman|Robin\n", string(b))

	_, err = os.Stat(filepath.Join(dir, ImagesDirName, "b.jpg"))
	require.NoError(t, err, "source dataset must stay untouched")
}

func TestExcludePrefersCorrectedLabels(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bunch")
	writeDataset(t, dir, "a.jpg\tBatman\nb.jpg\tRobin\nc.jpg\tRobin\n")
	require.NoError(t, export.UpdateLabel(dir, "c.jpg", []string{"Nightwing"}))

	_, err := Exclude(dir, []string{"a.jpg"})
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir+UpdatedSuffix, export.LabelsFileName))
	require.NoError(t, err)
	assert.Equal(t, "b.jpg\tRobin\nc.jpg\tNightwing\n", string(b))
}

func TestExcludeRequiresDataset(t *testing.T) {
	_, err := Exclude(t.TempDir(), []string{"a.jpg"})
	require.Error(t, err)
	_, err = Exclude("", nil)
	require.Error(t, err)
}
