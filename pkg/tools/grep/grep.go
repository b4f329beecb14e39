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

// Package grep implements the grep tool (C3, spec.md §4.3.4): a
// case-insensitive regex search over the working tree, grounded on
// the teacher's pkg/tool/filetool/grep_search.go but generalized to
// the spec's vendor/binary skip list and hard result caps.
package grep

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kadirpekel/crow/internal/pathutil"
	"github.com/kadirpekel/crow/pkg/toolapi"
)

const (
	maxLineLength = 500
	maxMatches    = 100
	binarySniff   = 8192
)

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	".crow": true, "dist": true, "build": true, ".venv": true,
}

var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".exe": true,
	".bin": true, ".so": true, ".dylib": true, ".dll": true, ".o": true,
	".woff": true, ".woff2": true, ".ttf": true, ".mp4": true, ".mp3": true,
}

// Grep is the grep tool.
type Grep struct{}

func NewGrep() *Grep { return &Grep{} }

func (t *Grep) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "grep",
		Description: "Case-insensitive regex search across the working tree, with line numbers.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern":      map[string]any{"type": "string", "description": "Regular expression (RE2 syntax)"},
				"path":         map[string]any{"type": "string", "description": "Directory to search, relative to the working directory (default .)"},
				"glob":         map[string]any{"type": "string", "description": "Optional filename glob filter, e.g. *.go"},
			},
			"required": []string{"pattern"},
		},
	}
}

type grepArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
	Glob    string `json:"glob"`
}

func (t *Grep) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args grepArgs
	if err := toolapi.UnmarshalArgs(argsJSON, &args); err != nil {
		return toolapi.Error(fmt.Sprintf("invalid arguments: %v", err))
	}
	if args.Pattern == "" {
		return toolapi.Error("pattern is required")
	}
	re, err := regexp.Compile("(?i)" + args.Pattern)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("invalid pattern: %v", err))
	}

	searchPath := args.Path
	if searchPath == "" {
		searchPath = "."
	}
	root, err := pathutil.Resolve(ctx.WorkingDir, searchPath)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("path outside working directory: %v", err))
	}

	var out strings.Builder
	matchCount := 0
	currentFile := ""
	truncated := false

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if matchCount >= maxMatches {
			return fs.SkipAll
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != root) {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if binaryExts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		if args.Glob != "" {
			if ok, _ := filepath.Match(args.Glob, d.Name()); !ok {
				return nil
			}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		sniff := data
		if len(sniff) > binarySniff {
			sniff = sniff[:binarySniff]
		}
		if bytes.IndexByte(sniff, 0) >= 0 {
			return nil
		}

		rel, _ := filepath.Rel(ctx.WorkingDir, path)
		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			if matchCount >= maxMatches {
				truncated = true
				return fs.SkipAll
			}
			if !re.MatchString(line) {
				continue
			}
			if rel != currentFile {
				out.WriteString(fmt.Sprintf("\nFILE: %s\n", rel))
				currentFile = rel
			}
			text := line
			if len(text) > maxLineLength {
				text = text[:maxLineLength] + "…"
			}
			fmt.Fprintf(&out, "%d: %s\n", i+1, text)
			matchCount++
		}
		return nil
	})
	if walkErr != nil {
		return toolapi.Error(fmt.Sprintf("search failed: %v", walkErr))
	}

	if matchCount == 0 {
		return toolapi.Success(fmt.Sprintf("No matches for %q under %s\n", args.Pattern, searchPath))
	}
	if truncated {
		out.WriteString(fmt.Sprintf("\n(truncated at %d matches)\n", maxMatches))
	}
	return toolapi.Success(out.String())
}

func (t *Grep) Humanize(argsJSON string, result toolapi.Result) string {
	var args grepArgs
	_ = toolapi.UnmarshalArgs(argsJSON, &args)
	return fmt.Sprintf("grep `%s`", args.Pattern)
}
