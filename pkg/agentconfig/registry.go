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

package agentconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Registry composes agent configurations from three layers, later
// overriding earlier (spec.md §4.7): built-ins, a per-user directory,
// a per-project directory. Grounded on the teacher's FileProvider
// (pkg/config/provider/file.go) for the fsnotify watch-and-debounce
// idiom, generalized from "watch one file" to "watch two directories
// of one-agent-per-file documents".
type Registry struct {
	mu         sync.RWMutex
	configs    map[string]Config
	userDir    string
	projectDir string
	watcher    *fsnotify.Watcher
	stopWatch  chan struct{}
}

// NewRegistry loads the built-in set, then layers userDir and projectDir
// on top (either may be empty to skip that layer). A missing directory
// is not an error: it simply contributes nothing.
func NewRegistry(userDir, projectDir string) (*Registry, error) {
	r := &Registry{
		configs:    builtins(),
		userDir:    userDir,
		projectDir: projectDir,
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the named agent config.
func (r *Registry) Get(name string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[name]
	return c, ok
}

// Put registers or overrides a single agent config in the composed set,
// without going through a directory layer. Used by callers that build
// agent configs programmatically (and by tests).
func (r *Registry) Put(name string, cfg Config) {
	cfg.Name = name
	r.mu.Lock()
	r.configs[name] = cfg
	r.mu.Unlock()
}

// Names returns every known agent name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for n := range r.configs {
		names = append(names, n)
	}
	return names
}

// reload rebuilds the composed set: built-ins, then userDir, then
// projectDir, each layer overriding same-named entries from the last.
func (r *Registry) reload() error {
	merged := builtins()
	for _, dir := range []string{r.userDir, r.projectDir} {
		if dir == "" {
			continue
		}
		layer, err := loadDir(dir)
		if err != nil {
			return err
		}
		for name, cfg := range layer {
			merged[name] = cfg
		}
	}

	r.mu.Lock()
	r.configs = merged
	r.mu.Unlock()
	return nil
}

// loadDir reads every *.md file directly inside dir (non-recursive) as
// one agent configuration document, keyed by its file stem (spec.md §6:
// "Agent name is the file stem"). A missing directory yields an empty,
// non-error result.
func loadDir(dir string) (map[string]Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Config{}, nil
		}
		return nil, fmt.Errorf("agentconfig: read %s: %w", dir, err)
	}

	out := make(map[string]Config, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("agentconfig: read %s: %w", path, err)
		}
		cfg, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("agentconfig: parse %s: %w", path, err)
		}
		cfg.Name = strings.TrimSuffix(e.Name(), ".md")
		out[cfg.Name] = cfg
	}
	return out, nil
}

// Watch starts an fsnotify watch on userDir and projectDir, reloading the
// composed set on every create/write/remove (debounced), until Close is
// called. Directories that do not exist at call time are skipped (the
// registry simply won't pick up files later added to them without a
// process restart, the same limitation the teacher's FileProvider
// accepts for a config file created after Watch starts).
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("agentconfig: create watcher: %w", err)
	}
	for _, dir := range []string{r.userDir, r.projectDir} {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("agentconfig: watch %s: %w", dir, err)
		}
	}

	r.mu.Lock()
	r.watcher = watcher
	r.stopWatch = make(chan struct{})
	r.mu.Unlock()

	go r.watchLoop(watcher, r.stopWatch)
	return nil
}

func (r *Registry) watchLoop(watcher *fsnotify.Watcher, stop chan struct{}) {
	var debounce *time.Timer
	const delay = 150 * time.Millisecond

	fire := func() {
		if err := r.reload(); err != nil {
			slog.Error("agentconfig: reload failed", "error", err)
		}
	}

	for {
		select {
		case <-stop:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(delay, fire)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("agentconfig: watcher error", "error", err)
		}
	}
}

// Close stops the background watch, if one was started.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopWatch != nil {
		close(r.stopWatch)
		r.stopWatch = nil
	}
	if r.watcher != nil {
		err := r.watcher.Close()
		r.watcher = nil
		return err
	}
	return nil
}
