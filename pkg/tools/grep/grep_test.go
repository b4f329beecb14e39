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

package grep

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/crow/pkg/toolapi"
)

func setupTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\nfunc Foo() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("foo bar\nbaz\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor", "c.go"), []byte("func Foo() {}\n"), 0o644))
	return dir
}

func TestGrep_FindsMatchesCaseInsensitive(t *testing.T) {
	dir := setupTree(t)
	tool := NewGrep()
	result := tool.Execute(toolapi.Context{Context: context.Background(), WorkingDir: dir}, `{"pattern":"FOO"}`)
	require.False(t, result.IsError)
	require.Contains(t, result.Output, "a.go")
	require.Contains(t, result.Output, "b.txt")
}

func TestGrep_SkipsVendorDirectory(t *testing.T) {
	dir := setupTree(t)
	tool := NewGrep()
	result := tool.Execute(toolapi.Context{Context: context.Background(), WorkingDir: dir}, `{"pattern":"Foo"}`)
	require.False(t, result.IsError)
	require.NotContains(t, result.Output, "vendor/c.go")
}

func TestGrep_GlobFilter(t *testing.T) {
	dir := setupTree(t)
	tool := NewGrep()
	result := tool.Execute(toolapi.Context{Context: context.Background(), WorkingDir: dir}, `{"pattern":"foo","glob":"*.txt"}`)
	require.False(t, result.IsError)
	require.Contains(t, result.Output, "b.txt")
	require.NotContains(t, result.Output, "a.go")
}

func TestGrep_NoMatches(t *testing.T) {
	dir := setupTree(t)
	tool := NewGrep()
	result := tool.Execute(toolapi.Context{Context: context.Background(), WorkingDir: dir}, `{"pattern":"nonexistent_pattern_xyz"}`)
	require.False(t, result.IsError)
	require.Contains(t, result.Output, "No matches")
}
