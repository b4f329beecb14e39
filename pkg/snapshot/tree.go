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
	"sort"
)

// skipDir names are never descended into when walking a working tree.
// The list is shorter than the grep tool's, which also skips dist, build,
// .venv and every hidden directory.
var skipDir = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".crow":        true,
}

// manifest maps a path (relative to the tree root, forward-slash
// separated) to the sha256 content hash of that file at snapshot time.
type manifest map[string]string

// walkTree enumerates every regular file under root, skipping
// version-control and dependency directories, and returns its manifest.
func walkTree(root string) (manifest, error) {
	m := make(manifest)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if skipDir[name] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hash, err := hashFile(path)
		if err != nil {
			return err
		}
		m[filepath.ToSlash(rel)] = hash
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// sortedPaths returns m's keys sorted, for deterministic iteration.
func (m manifest) sortedPaths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
