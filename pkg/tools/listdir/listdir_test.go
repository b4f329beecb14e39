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

package listdir

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
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.go"), []byte("x"), 0o644))
	return dir
}

func TestListDirectory_NonRecursiveShowsDirsAlways(t *testing.T) {
	dir := setupTree(t)
	tool := NewListDirectory()
	result := tool.Execute(toolapi.Context{Context: context.Background(), WorkingDir: dir}, `{"glob":"*.go"}`)
	require.False(t, result.IsError)
	require.Contains(t, result.Output, "a.go")
	require.Contains(t, result.Output, "sub/")
	require.NotContains(t, result.Output, "b.txt")
}

func TestListDirectory_Recursive(t *testing.T) {
	dir := setupTree(t)
	tool := NewListDirectory()
	result := tool.Execute(toolapi.Context{Context: context.Background(), WorkingDir: dir}, `{"recursive":true}`)
	require.False(t, result.IsError)
	require.Contains(t, result.Output, "sub/c.go")
}

func TestListDirectory_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	tool := NewListDirectory()
	result := tool.Execute(toolapi.Context{Context: context.Background(), WorkingDir: dir}, `{}`)
	require.False(t, result.IsError)
	require.Contains(t, result.Output, "empty")
}
