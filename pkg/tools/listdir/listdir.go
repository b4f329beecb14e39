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

// Package listdir implements the list-directory tool (C3, spec.md
// §4.3.6), grounded on the same directory-walk idiom as
// pkg/tools/grep and pkg/tools/findpath.
package listdir

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kadirpekel/crow/internal/pathutil"
	"github.com/kadirpekel/crow/pkg/toolapi"
)

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, ".crow": true,
}

// ListDirectory is the list_directory tool.
type ListDirectory struct{}

func NewListDirectory() *ListDirectory { return &ListDirectory{} }

func (t *ListDirectory) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "list_directory",
		Description: "List directory entries, optionally recursive and filtered by glob. Directories are always shown.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":      map[string]any{"type": "string", "description": "Directory to list (default .)"},
				"recursive": map[string]any{"type": "boolean", "description": "Recurse into subdirectories"},
				"glob":      map[string]any{"type": "string", "description": "Glob filter on entry name, e.g. *.go"},
			},
		},
	}
}

type listDirArgs struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Glob      string `json:"glob"`
}

func (t *ListDirectory) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args listDirArgs
	if err := toolapi.UnmarshalArgs(argsJSON, &args); err != nil {
		return toolapi.Error(fmt.Sprintf("invalid arguments: %v", err))
	}

	dirPath := args.Path
	if dirPath == "" {
		dirPath = "."
	}
	root, err := pathutil.Resolve(ctx.WorkingDir, dirPath)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("path outside working directory: %v", err))
	}

	var entries []string

	if args.Recursive {
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || skipDirs[d.Name()] {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			rel, _ := filepath.Rel(root, path)
			if d.IsDir() {
				entries = append(entries, rel+"/")
				return nil
			}
			if args.Glob != "" {
				if ok, _ := filepath.Match(args.Glob, d.Name()); !ok {
					return nil
				}
			}
			entries = append(entries, rel)
			return nil
		})
		if walkErr != nil {
			return toolapi.Error(fmt.Sprintf("list failed: %v", walkErr))
		}
	} else {
		dirEntries, err := os.ReadDir(root)
		if err != nil {
			return toolapi.Error(fmt.Sprintf("failed to list %s: %v", dirPath, err))
		}
		for _, d := range dirEntries {
			if strings.HasPrefix(d.Name(), ".") {
				continue
			}
			if d.IsDir() {
				entries = append(entries, d.Name()+"/")
				continue
			}
			if args.Glob != "" {
				if ok, _ := filepath.Match(args.Glob, d.Name()); !ok {
					continue
				}
			}
			entries = append(entries, d.Name())
		}
	}

	sort.Strings(entries)
	if len(entries) == 0 {
		return toolapi.Success(fmt.Sprintf("%s is empty\n", dirPath))
	}
	return toolapi.Success(strings.Join(entries, "\n"))
}

func (t *ListDirectory) Humanize(argsJSON string, result toolapi.Result) string {
	var args listDirArgs
	_ = toolapi.UnmarshalArgs(argsJSON, &args)
	path := args.Path
	if path == "" {
		path = "."
	}
	return fmt.Sprintf("listed `%s`", path)
}
