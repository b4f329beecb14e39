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

package filetool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kadirpekel/crow/internal/pathutil"
	"github.com/kadirpekel/crow/pkg/toolapi"
)

// EditFile is the edit_file tool: create/overwrite/edit modes, the
// latter running the nine-replacer cascade. Writes are atomic
// (temp-file-then-rename) per spec.md §4.3.2.
type EditFile struct{}

func NewEditFile() *EditFile { return &EditFile{} }

func (t *EditFile) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "edit_file",
		Description: "Create, overwrite, or fuzzily edit a file. For edit mode, old_string must uniquely identify the text to replace (or pass replace_all).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":        map[string]any{"type": "string", "description": "File path relative to the working directory"},
				"mode":        map[string]any{"type": "string", "enum": []string{"create", "overwrite", "edit"}, "description": "Which write mode to use"},
				"content":     map[string]any{"type": "string", "description": "Full file content, for create/overwrite"},
				"old_string":  map[string]any{"type": "string", "description": "Text to replace, for edit mode"},
				"new_string":  map[string]any{"type": "string", "description": "Replacement text, for edit mode"},
				"replace_all": map[string]any{"type": "boolean", "description": "Replace every occurrence instead of requiring a unique match"},
			},
			"required": []string{"path", "mode"},
		},
	}
}

type editFileArgs struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Content    string `json:"content"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all"`
}

func (t *EditFile) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args editFileArgs
	if err := toolapi.UnmarshalArgs(argsJSON, &args); err != nil {
		return toolapi.Error(fmt.Sprintf("invalid arguments: %v", err))
	}
	if args.Path == "" {
		return toolapi.Error("path is required")
	}

	full, err := pathutil.Resolve(ctx.WorkingDir, args.Path)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("path outside working directory: %v", err))
	}

	switch args.Mode {
	case "create":
		return t.create(full, args.Path, args.Content)
	case "overwrite":
		return t.overwrite(full, args.Path, args.Content)
	case "edit":
		return t.edit(full, args.Path, args.OldString, args.NewString, args.ReplaceAll)
	default:
		return toolapi.Error(fmt.Sprintf("unknown mode %q (expected create, overwrite, or edit)", args.Mode))
	}
}

func (t *EditFile) create(fullPath, relPath, content string) toolapi.Result {
	if _, err := os.Stat(fullPath); err == nil {
		return toolapi.Error(fmt.Sprintf("%s already exists", relPath))
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return toolapi.Error(fmt.Sprintf("failed to create parent directories: %v", err))
	}
	if err := atomicWriteFile(fullPath, content); err != nil {
		return toolapi.Error(fmt.Sprintf("failed to write file: %v", err))
	}
	return toolapi.Success(fmt.Sprintf("Created %s (%d lines)", relPath, strings.Count(content, "\n")+1))
}

func (t *EditFile) overwrite(fullPath, relPath, content string) toolapi.Result {
	before, err := os.ReadFile(fullPath)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("%s does not exist", relPath))
	}
	added, removed := lineDiffCounts(string(before), content)
	if err := atomicWriteFile(fullPath, content); err != nil {
		return toolapi.Error(fmt.Sprintf("failed to write file: %v", err))
	}
	return toolapi.Success(fmt.Sprintf("Overwrote %s (+%d -%d lines)", relPath, added, removed))
}

func (t *EditFile) edit(fullPath, relPath, oldString, newString string, replaceAll bool) toolapi.Result {
	if oldString == newString {
		return toolapi.Error("old_string and new_string must differ")
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return toolapi.Error(fmt.Sprintf("%s does not exist", relPath))
	}
	content := string(data)

	result, err := Replace(content, oldString, newString, replaceAll)
	if err != nil {
		if errors.Is(err, ErrAmbiguous) {
			return toolapi.Error(ErrAmbiguous.Error())
		}
		return toolapi.Error(err.Error())
	}

	if err := atomicWriteFile(fullPath, result.Content); err != nil {
		return toolapi.Error(fmt.Sprintf("failed to write file: %v", err))
	}

	added, removed := lineDiffCounts(content, result.Content)
	return toolapi.Success(fmt.Sprintf("Edited %s (+%d -%d lines)", relPath, added, removed))
}

func (t *EditFile) Humanize(argsJSON string, result toolapi.Result) string {
	var args editFileArgs
	_ = toolapi.UnmarshalArgs(argsJSON, &args)
	if result.IsError {
		return fmt.Sprintf("failed to edit `%s`: %s", args.Path, result.Output)
	}
	return fmt.Sprintf("edited `%s`", args.Path)
}

// atomicWriteFile writes content to path via a sibling temp file and
// rename, so a crash mid-write never leaves a half-written file in
// place (spec.md §4.3.2/§5).
func atomicWriteFile(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".crow-edit-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// lineDiffCounts reports added/removed line counts via a minimal LCS-free
// heuristic: lines present in after but not in the multiset of before (and
// vice versa). This is intentionally simple; pkg/snapshot's DiffFull does
// the full unified diff when a real patch view is needed.
func lineDiffCounts(before, after string) (added, removed int) {
	beforeLines := countLines(before)
	afterLines := countLines(after)
	for line, n := range afterLines {
		if beforeLines[line] < n {
			added += n - beforeLines[line]
		}
	}
	for line, n := range beforeLines {
		if afterLines[line] < n {
			removed += n - afterLines[line]
		}
	}
	return added, removed
}

func countLines(s string) map[string]int {
	counts := make(map[string]int)
	for _, line := range strings.Split(s, "\n") {
		counts[line]++
	}
	return counts
}
