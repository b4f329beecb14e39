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

package fetch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLToMarkdown_StripsScriptAndStyle(t *testing.T) {
	html := `<html><head><style>.a{}</style></head><body><script>evil()</script><p>hello</p></body></html>`
	md := htmlToMarkdown(html)
	require.Contains(t, md, "hello")
	require.NotContains(t, md, "evil")
	require.NotContains(t, md, ".a{}")
}

func TestHTMLToMarkdown_Headings(t *testing.T) {
	md := htmlToMarkdown("<h1>Title</h1><h2>Sub</h2>")
	require.Contains(t, md, "# Title")
	require.Contains(t, md, "## Sub")
}

func TestHTMLToMarkdown_LinksAndEmphasis(t *testing.T) {
	md := htmlToMarkdown(`<p>See <a href="https://x.test">here</a> and <strong>bold</strong>.</p>`)
	require.Contains(t, md, "[here](https://x.test)")
	require.Contains(t, md, "**bold**")
}

func TestHTMLToMarkdown_DecodesEntities(t *testing.T) {
	md := htmlToMarkdown("<p>Tom &amp; Jerry &mdash; &#39;fun&#39;</p>")
	require.Contains(t, md, "Tom & Jerry")
	require.Contains(t, md, "'fun'")
}

func TestHTMLToMarkdown_CollapsesBlankLines(t *testing.T) {
	md := htmlToMarkdown("<p>a</p>\n\n\n\n<p>b</p>")
	require.NotContains(t, md, "\n\n\n")
}

func TestHTMLToMarkdown_ListItems(t *testing.T) {
	md := htmlToMarkdown("<ul><li>one</li><li>two</li></ul>")
	require.Contains(t, md, "- one")
	require.Contains(t, md, "- two")
}
