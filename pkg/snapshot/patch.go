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
	"sort"
)

// Patch is a content-addressed snapshot handle plus the set of paths
// that differ between that snapshot and the tree at the time Patch was
// computed.
type Patch struct {
	Handle string
	Paths  []string
}

// Patch enumerates paths that differ between handle's recorded state and
// the current working tree.
func (s *Store) Patch(handle string) (Patch, error) {
	before, err := s.loadManifest(handle)
	if err != nil {
		return Patch{}, err
	}
	after, err := walkTree(s.workingDir)
	if err != nil {
		return Patch{}, fmt.Errorf("snapshot: walk working tree: %w", err)
	}

	seen := make(map[string]bool)
	var changed []string
	for path, hash := range after {
		if before[path] != hash {
			changed = append(changed, path)
		}
		seen[path] = true
	}
	for path := range before {
		if !seen[path] {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)

	return Patch{Handle: handle, Paths: changed}, nil
}

// Revert restores each listed path in every patch to its state at that
// patch's handle. A path that did not exist at the handle is deleted.
// Reverting the same path twice (across patches, or within one) is
// idempotent: the last write for that path wins, leaving the tree in
// the handle's recorded state for that path either way.
func (s *Store) Revert(patches []Patch) error {
	for _, p := range patches {
		before, err := s.loadManifest(p.Handle)
		if err != nil {
			return err
		}
		for _, path := range p.Paths {
			if err := s.restorePath(before, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// Restore resets the entire working tree to handle's recorded state:
// every tracked path is rewritten to its snapshotted content, and any
// currently-tracked path absent from the snapshot is deleted.
func (s *Store) Restore(handle string) error {
	target, err := s.loadManifest(handle)
	if err != nil {
		return err
	}
	current, err := walkTree(s.workingDir)
	if err != nil {
		return fmt.Errorf("snapshot: walk working tree: %w", err)
	}

	for path := range current {
		if err := s.restorePath(target, path); err != nil {
			return err
		}
	}
	for path, hash := range target {
		if current[path] == hash {
			continue
		}
		if err := s.restorePath(target, path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) restorePath(target manifest, relPath string) error {
	full := filepath.Join(s.workingDir, filepath.FromSlash(relPath))
	hash, existed := target[relPath]
	if !existed {
		err := os.Remove(full)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("snapshot: remove %s: %w", full, err)
		}
		return nil
	}

	data, err := os.ReadFile(s.objectPath(hash))
	if err != nil {
		return fmt.Errorf("snapshot: read object %s: %w", hash, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("snapshot: create directory for %s: %w", full, err)
	}
	return atomicWrite(full, data)
}
