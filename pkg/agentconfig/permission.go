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

import "sort"

// ToolAllowed evaluates the tool-permission rule (spec.md §4.7): an
// explicit per-tool boolean override if present, otherwise
// DefaultToolsEnabled.
func (c Config) ToolAllowed(name string) bool {
	if v, ok := c.Tools[name]; ok {
		return v
	}
	return DefaultToolsEnabled
}

// BashDecision evaluates the bash-permission rule (spec.md §4.7): patterns
// are sorted by descending length (longest wins) and matched with a
// simple `*`-as-any-run glob; no match returns DecisionAsk.
func (c Config) BashDecision(command string) Decision {
	if len(c.Permission.Bash) == 0 {
		return DecisionAsk
	}
	patterns := make([]string, 0, len(c.Permission.Bash))
	for p := range c.Permission.Bash {
		patterns = append(patterns, p)
	}
	sort.Slice(patterns, func(i, j int) bool { return len(patterns[i]) > len(patterns[j]) })

	for _, p := range patterns {
		if globMatch(p, command) {
			return c.Permission.Bash[p]
		}
	}
	return DecisionAsk
}

// globMatch implements the "simple `*`-as-any-run glob" spec.md §4.7
// calls for: `*` matches any run of characters (including none), every
// other rune must match literally. There is no `?`, `[...]`, or escaping;
// bash permission patterns are whole-command prefixes like "git *" or
// "npm test", not general filename globs (pkg/tools/findpath implements
// that richer grammar for path matching).
func globMatch(pattern, s string) bool {
	segments := splitOnStar(pattern)
	if len(segments) == 1 {
		return pattern == s
	}

	pos := 0
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		switch {
		case i == 0:
			if !hasPrefixAt(s, seg, pos) {
				return false
			}
			pos += len(seg)
		case i == len(segments)-1:
			if len(s)-len(seg) < pos {
				return false
			}
			return s[len(s)-len(seg):] == seg
		default:
			idx := indexFrom(s, seg, pos)
			if idx < 0 {
				return false
			}
			pos = idx + len(seg)
		}
	}
	return true
}

func splitOnStar(pattern string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' {
			segments = append(segments, pattern[start:i])
			start = i + 1
		}
	}
	segments = append(segments, pattern[start:])
	return segments
}

func hasPrefixAt(s, prefix string, pos int) bool {
	if pos+len(prefix) > len(s) {
		return false
	}
	return s[pos:pos+len(prefix)] == prefix
}

func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}
	idx := indexOf(s[from:], substr)
	if idx < 0 {
		return -1
	}
	return from + idx
}

func indexOf(s, substr string) int {
	if substr == "" {
		return 0
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func resolveSimple(d Decision) Decision {
	if d == "" {
		return DecisionAsk
	}
	return d
}

// EditDecision, WebFetchDecision, DoomLoopDecision and
// ExternalDirectoryDecision all default to DecisionAsk when unset, per
// spec.md §4.7's allow/deny/ask rule for these four permissions.
func (c Config) EditDecision() Decision              { return resolveSimple(c.Permission.Edit) }
func (c Config) WebFetchDecision() Decision          { return resolveSimple(c.Permission.WebFetch) }
func (c Config) DoomLoopDecision() Decision          { return resolveSimple(c.Permission.DoomLoop) }
func (c Config) ExternalDirectoryDecision() Decision { return resolveSimple(c.Permission.ExternalDirectory) }
