// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	s, err := NewStore(dir)
	require.NoError(t, err)
	return s, dir
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestTrackEmptyTreeReturnsNoHandle(t *testing.T) {
	s, _ := newTestStore(t)
	handle, err := s.Track()
	require.NoError(t, err)
	require.Empty(t, handle)
}

func TestTrackPatchRevertRoundTrip(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "a.txt", "hello a")
	writeFile(t, dir, "b.txt", "hello b")

	handle, err := s.Track()
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	writeFile(t, dir, "a.txt", "modified a")
	writeFile(t, dir, "b.txt", "modified b")
	writeFile(t, dir, "x.txt", "new file")

	patch, err := s.Patch(handle)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a.txt", "b.txt", "x.txt"}, patch.Paths)

	require.NoError(t, s.Revert([]Patch{patch}))

	a, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello a", string(a))
	b, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello b", string(b))
	_, err = os.Stat(filepath.Join(dir, "x.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestMultiToolTurnRevertLeavesUnrelatedFilesUntouched(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "unrelated.txt", "untouched")
	writeFile(t, dir, "y.txt", "original y")

	handle, err := s.Track()
	require.NoError(t, err)

	writeFile(t, dir, "x.txt", "created")
	writeFile(t, dir, "y.txt", "edited y")

	patch, err := s.Patch(handle)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"x.txt", "y.txt"}, patch.Paths)

	require.NoError(t, s.Revert([]Patch{patch}))

	_, err = os.Stat(filepath.Join(dir, "x.txt"))
	require.True(t, os.IsNotExist(err))
	y, err := os.ReadFile(filepath.Join(dir, "y.txt"))
	require.NoError(t, err)
	require.Equal(t, "original y", string(y))
	unrelated, err := os.ReadFile(filepath.Join(dir, "unrelated.txt"))
	require.NoError(t, err)
	require.Equal(t, "untouched", string(unrelated))
}

func TestRestoreResetsWholeTree(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "a.txt", "v1")
	handle, err := s.Track()
	require.NoError(t, err)

	writeFile(t, dir, "a.txt", "v2")
	writeFile(t, dir, "b.txt", "new")

	require.NoError(t, s.Restore(handle))

	a, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "v1", string(a))
	_, err = os.Stat(filepath.Join(dir, "b.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestDiffReportsChangedPaths(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "a.txt", "line1\nline2\n")
	handle, err := s.Track()
	require.NoError(t, err)

	writeFile(t, dir, "a.txt", "line1\nchanged\n")

	diff, err := s.Diff(handle)
	require.NoError(t, err)
	require.Contains(t, diff, "a.txt")
	require.Contains(t, diff, "-line2")
	require.Contains(t, diff, "+changed")
}

func TestProjectIDStableForSamePath(t *testing.T) {
	dir := t.TempDir()
	id1, err := ProjectID(dir)
	require.NoError(t, err)
	id2, err := ProjectID(dir)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
	require.Len(t, id1, 12)
}
