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

// Package findpath implements the find-path tool (C3, spec.md §4.3.5):
// glob-to-regex path matching over a recursive, depth-capped walk.
// Grounded on the teacher's directory-walk idiom in
// pkg/tool/filetool/grep_search.go, adapted from line search to path
// matching.
package findpath

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kadirpekel/crow/internal/pathutil"
	"github.com/kadirpekel/crow/pkg/toolapi"
)

const (
	maxResults = 200
	maxDepth   = 20
)

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	".crow": true, "dist": true, "build": true, ".venv": true,
}

// FindPath is the find_path tool.
type FindPath struct{}

func NewFindPath() *FindPath { return &FindPath{} }

func (t *FindPath) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "find_path",
		Description: "Find files and directories by glob pattern (* and ?) under the working directory.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{"type": "string", "description": "Glob pattern, e.g. **/*_test.go"},
				"path":    map[string]any{"type": "string", "description": "Directory to search from (default .)"},
			},
			"required": []string{"pattern"},
		},
	}
}

type findPathArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

// globToRegex converts a shell glob using * and ? into an anchored regex
// over a full relative path, treating * as matching across path
// separators (the tool works on the logical path, not shell-expanded
// segments).
func globToRegex(glob string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '.', '+', '(', ')', '|', '^', '$', '[', ']', '{', '}', '\\':
			b.WriteString(regexp.QuoteMeta(string(r)))
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func (t *FindPath) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args findPathArgs
	if err := toolapi.UnmarshalArgs(argsJSON, &args); err != nil {
		return toolapi.Error(fmt.Sprintf("invalid arguments: %v", err))
	}
	if args.Pattern == "" {
		return toolapi.Error("pattern is required")
	}

	searchPath := args.Path
	if searchPath == "" {
		searchPath = "."
	}
	root, err := pathutil.Resolve(ctx.WorkingDir, searchPath)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("path outside working directory: %v", err))
	}

	re := globToRegex(args.Pattern)
	var matches []string
	truncated := false

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}
		rel, _ := filepath.Rel(ctx.WorkingDir, path)
		depth := strings.Count(rel, string(filepath.Separator))

		if d.IsDir() {
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			if depth >= maxDepth {
				return fs.SkipDir
			}
		}

		name := rel
		if re.MatchString(d.Name()) || re.MatchString(name) {
			if len(matches) >= maxResults {
				truncated = true
				return fs.SkipAll
			}
			if d.IsDir() {
				name += "/"
			}
			matches = append(matches, name)
		}
		return nil
	})
	if walkErr != nil {
		return toolapi.Error(fmt.Sprintf("search failed: %v", walkErr))
	}

	if len(matches) == 0 {
		return toolapi.Success(fmt.Sprintf("No paths matched %q\n", args.Pattern))
	}
	out := strings.Join(matches, "\n")
	if truncated {
		out += fmt.Sprintf("\n(truncated at %d results)", maxResults)
	}
	return toolapi.Success(out)
}

func (t *FindPath) Humanize(argsJSON string, result toolapi.Result) string {
	var args findPathArgs
	_ = toolapi.UnmarshalArgs(argsJSON, &args)
	return fmt.Sprintf("find_path `%s`", args.Pattern)
}
