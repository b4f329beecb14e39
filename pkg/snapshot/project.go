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

// Package snapshot implements a per-project, content-addressed shadow
// tree (C4): pre-edit state tracking, per-turn patches, and selective
// revert, isolated from the user's own version control.
//
// Grounded on the teacher's execution-state capture pattern
// (pkg/agent/checkpoint.go, CaptureExecutionState) generalized from a
// single in-memory snapshot of agent state to a content-addressed
// on-disk tree of an entire working directory.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ProjectID derives the 12-character identifier a project's shadow tree
// is keyed by: the short hash of the repository's root commit when
// workingDir sits inside a git repo, otherwise a stable hash of the
// absolute, cleaned working directory path.
func ProjectID(workingDir string) (string, error) {
	abs, err := filepath.Abs(workingDir)
	if err != nil {
		return "", fmt.Errorf("snapshot: resolve working directory: %w", err)
	}
	abs = filepath.Clean(abs)

	if commit, ok := rootCommit(abs); ok {
		return shortHash("commit:" + commit), nil
	}
	return shortHash("path:" + abs), nil
}

// rootCommit returns the hash of the repository's first commit, used so
// that clones and worktrees of the same project converge on one project
// id. Any failure (not a repo, no commits yet, git unavailable) is
// reported via ok=false rather than an error: falling back to a
// path-derived id is always a valid choice.
func rootCommit(dir string) (string, bool) {
	cmd := exec.Command("git", "-C", dir, "rev-list", "--max-parents=0", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	lines := strings.Fields(string(out))
	if len(lines) == 0 {
		return "", false
	}
	// Multiple roots are possible in a history with unrelated merges;
	// the last listed root is stable across `git log` ordering changes.
	return lines[len(lines)-1], true
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// hashFile returns the hex sha256 of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
