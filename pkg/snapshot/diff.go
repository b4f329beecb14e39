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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// FileDiff is a single file's before/after content plus line-change
// counts, used by DiffFull.
type FileDiff struct {
	Path    string
	Before  string
	After   string
	Added   int
	Removed int
}

// Diff returns a unified diff between handle's recorded state and the
// current working tree, across every path that changed.
func (s *Store) Diff(handle string) (string, error) {
	patch, err := s.Patch(handle)
	if err != nil {
		return "", err
	}
	before, err := s.loadManifest(handle)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, path := range patch.Paths {
		beforeText, _ := s.readAtHandle(before, path)
		afterText, _ := s.readCurrent(path)

		ud := difflib.UnifiedDiff{
			A:        difflib.SplitLines(beforeText),
			B:        difflib.SplitLines(afterText),
			FromFile: "a/" + path,
			ToFile:   "b/" + path,
			Context:  3,
		}
		text, err := difflib.GetUnifiedDiffString(ud)
		if err != nil {
			return "", fmt.Errorf("snapshot: diff %s: %w", path, err)
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

// DiffFull returns per-file before/after content and line-change counts
// between two handles.
func (s *Store) DiffFull(from, to string) ([]FileDiff, error) {
	before, err := s.loadManifest(from)
	if err != nil {
		return nil, err
	}
	after, err := s.loadManifest(to)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var diffs []FileDiff
	for path := range before {
		seen[path] = true
	}
	for path := range after {
		seen[path] = true
	}

	for path := range seen {
		if before[path] == after[path] {
			continue
		}
		beforeText, _ := s.readAtHandle(before, path)
		afterText, _ := s.readAtHandle(after, path)
		added, removed := lineDelta(beforeText, afterText)
		diffs = append(diffs, FileDiff{Path: path, Before: beforeText, After: afterText, Added: added, Removed: removed})
	}
	return diffs, nil
}

func (s *Store) readAtHandle(m manifest, path string) (string, bool) {
	hash, ok := m[path]
	if !ok {
		return "", false
	}
	data, err := os.ReadFile(s.objectPath(hash))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (s *Store) readCurrent(path string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(s.workingDir, filepath.FromSlash(path)))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func lineDelta(before, after string) (added, removed int) {
	ud := difflib.UnifiedDiff{
		A:       difflib.SplitLines(before),
		B:       difflib.SplitLines(after),
		Context: 0,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return 0, 0
	}
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
