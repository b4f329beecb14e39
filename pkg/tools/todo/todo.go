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

// Package todo implements the shared todo store and the todo_read/
// todo_write tools (C3, spec.md §4.3.8), keyed by session id so the
// orchestrator's coagent fusion (spec.md §3/§4.8) can alias one
// session's store onto another. Grounded on the teacher's
// v2/tool/todotool/todo.go.
package todo

import (
	"fmt"
	"sync"

	"github.com/kadirpekel/crow/pkg/toolapi"
)

// Item is a single todo entry.
type Item struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Status  string `json:"status"` // pending | in_progress | completed | canceled
}

func validStatus(s string) bool {
	switch s {
	case "pending", "in_progress", "completed", "canceled":
		return true
	}
	return false
}

// Store holds one todo list per session id. An alias lets a coagent
// session and its primary share the same underlying list (spec.md §3:
// "the todo pair reads and writes the shared todo store keyed by
// session id").
type Store struct {
	mu    sync.RWMutex
	lists map[string][]Item
	alias map[string]string
}

func NewStore() *Store {
	return &Store{lists: make(map[string][]Item), alias: make(map[string]string)}
}

// Alias makes sessionID read/write the same list as target.
func (s *Store) Alias(sessionID, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alias[sessionID] = target
}

func (s *Store) resolve(sessionID string) string {
	if sessionID == "" {
		return "default"
	}
	if target, ok := s.alias[sessionID]; ok {
		return target
	}
	return sessionID
}

// Get returns a copy of the session's todo list.
func (s *Store) Get(sessionID string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.lists[s.resolve(sessionID)]
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Write replaces or merges the session's todo list.
func (s *Store) Write(sessionID string, items []Item, merge bool) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.resolve(sessionID)

	if !merge {
		s.lists[key] = items
		return s.lists[key]
	}

	existing := s.lists[key]
	byID := make(map[string]int, len(existing))
	for i, it := range existing {
		byID[it.ID] = i
	}
	for _, it := range items {
		if idx, ok := byID[it.ID]; ok {
			existing[idx] = it
		} else {
			existing = append(existing, it)
			byID[it.ID] = len(existing) - 1
		}
	}
	s.lists[key] = existing
	return existing
}

func summarize(items []Item) string {
	if len(items) == 0 {
		return "No active todos"
	}
	var pending, inProgress, completed, canceled int
	for _, it := range items {
		switch it.Status {
		case "pending":
			pending++
		case "in_progress":
			inProgress++
		case "completed":
			completed++
		case "canceled":
			canceled++
		}
	}
	out := fmt.Sprintf("Todo Summary: %d total (%d pending, %d in progress, %d completed, %d canceled)\n\n",
		len(items), pending, inProgress, completed, canceled)
	for _, it := range items {
		out += fmt.Sprintf("%s [%s] %s\n", statusIcon(it.Status), it.ID, it.Content)
	}
	return out
}

func statusIcon(status string) string {
	switch status {
	case "pending":
		return "[PENDING]"
	case "in_progress":
		return "[IN PROGRESS]"
	case "completed":
		return "[DONE]"
	case "canceled":
		return "[CANCELLED]"
	default:
		return "[UNKNOWN]"
	}
}

// Read is the todo_read tool.
type Read struct{ store *Store }

func NewRead(store *Store) *Read { return &Read{store: store} }

func (t *Read) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name:        "todo_read",
		Description: "Read the current session's todo list.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

func (t *Read) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	return toolapi.Success(summarize(t.store.Get(ctx.SessionID)))
}

func (t *Read) Humanize(argsJSON string, result toolapi.Result) string { return "checked todos" }

// Write is the todo_write tool.
type Write struct{ store *Store }

func NewWrite(store *Store) *Write { return &Write{store: store} }

func (t *Write) Definition() toolapi.Definition {
	return toolapi.Definition{
		Name: "todo_write",
		Description: "Create and manage the structured task list for tracking progress on complex, " +
			"multi-step work. The list cannot be cleared: completed items remain.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"merge": map[string]any{"type": "boolean", "description": "Merge with the existing list instead of replacing it"},
				"todos": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":      map[string]any{"type": "string"},
							"content": map[string]any{"type": "string"},
							"status":  map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed", "canceled"}},
						},
						"required": []string{"id", "content", "status"},
					},
					"minItems": 1,
				},
			},
			"required": []string{"todos"},
		},
	}
}

type writeArgs struct {
	Merge bool   `json:"merge"`
	Todos []Item `json:"todos"`
}

func (t *Write) Execute(ctx toolapi.Context, argsJSON string) toolapi.Result {
	var args writeArgs
	if err := toolapi.UnmarshalArgs(argsJSON, &args); err != nil {
		return toolapi.Error(fmt.Sprintf("invalid arguments: %v", err))
	}
	if len(args.Todos) == 0 {
		return toolapi.Error("todos array cannot be empty; completed items remain in the list")
	}
	for i, it := range args.Todos {
		if it.ID == "" || it.Content == "" || it.Status == "" {
			return toolapi.Error(fmt.Sprintf("todo item %d is missing required fields", i))
		}
		if !validStatus(it.Status) {
			return toolapi.Error(fmt.Sprintf("todo item %d has invalid status %q", i, it.Status))
		}
	}
	items := t.store.Write(ctx.SessionID, args.Todos, args.Merge)
	return toolapi.Success(summarize(items))
}

func (t *Write) Humanize(argsJSON string, result toolapi.Result) string { return "updated todos" }
