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

// Package now implements the now tool (C3, spec.md §4.3.8): the
// current time, since a model has no other way to ground relative
// dates ("tomorrow", "last Thursday") without it.
package now

import (
	"time"

	"github.com/kadirpekel/crow/pkg/toolapi"
)

// Now is the now tool.
type Now struct {
	// clock is overridable in tests; defaults to time.Now.
	clock func() time.Time
}

func NewNow() *Now { return &Now{clock: time.Now} }

func (t *Now) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "now",
		Description: "Return the current date and time.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

func (t *Now) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	clock := t.clock
	if clock == nil {
		clock = time.Now
	}
	return toolapi.Success(clock().Format(time.RFC3339))
}

func (t *Now) Humanize(argsJSON string, result toolapi.Result) string {
	return "checked the time"
}
