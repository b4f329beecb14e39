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

package websearch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/crow/pkg/toolapi"
)

type fakeProvider struct {
	results []Result
	err     error
}

func (f *fakeProvider) Search(ctx context.Context, query string, count int) ([]Result, error) {
	return f.results, f.err
}

func TestWebSearch_FormatsResults(t *testing.T) {
	tool := NewWebSearch(&fakeProvider{results: []Result{{Title: "A", URL: "https://a.test", Description: "desc"}}})
	result := tool.Execute(toolapi.Context{Context: context.Background()}, `{"query":"go"}`)
	require.False(t, result.IsError)
	require.Contains(t, result.Output, "https://a.test")
}

func TestWebSearch_NoProviderConfigured(t *testing.T) {
	tool := NewWebSearch(nil)
	result := tool.Execute(toolapi.Context{Context: context.Background()}, `{"query":"go"}`)
	require.True(t, result.IsError)
}

func TestWebSearch_ProviderError(t *testing.T) {
	tool := NewWebSearch(&fakeProvider{err: errors.New("boom")})
	result := tool.Execute(toolapi.Context{Context: context.Background()}, `{"query":"go"}`)
	require.True(t, result.IsError)
}
