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

package orchestrator

import "encoding/json"

// parseArgsMap best-effort-decodes a tool call's raw argument JSON for
// humanisation; a malformed string degrades to an empty map rather than
// failing the whole turn summary.
func parseArgsMap(argsJSON string) map[string]any {
	var m map[string]any
	if argsJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(argsJSON), &m); err != nil {
		return nil
	}
	return m
}

func argString(argsJSON, key string) string {
	m := parseArgsMap(argsJSON)
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
