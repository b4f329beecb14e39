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

package trace

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Row is a read-only snapshot of a persisted trace.
type Row struct {
	ID            string
	SessionID     string
	AgentName     string
	Provider      string
	Model         string
	Status        Status
	ResponseText  string
	ReasoningText string
	ToolCallsJSON string
	InputTokens   int
	OutputTokens  int
	ErrorMessage  string
	StartedAt     time.Time
	UpdatedAt     time.Time
}

// Get loads a single trace row by id, for inspection or tests.
func (s *Store) Get(ctx context.Context, id string) (*Row, error) {
	var r Row
	var status string
	err := s.db.QueryRowContext(ctx, `
SELECT id, session_id, agent_name, provider, model, status,
       response_text, reasoning_text, tool_calls,
       input_tokens, output_tokens, error_message, started_at, updated_at
FROM traces WHERE id = ?`, id).Scan(
		&r.ID, &r.SessionID, &r.AgentName, &r.Provider, &r.Model, &status,
		&r.ResponseText, &r.ReasoningText, &r.ToolCallsJSON,
		&r.InputTokens, &r.OutputTokens, &r.ErrorMessage, &r.StartedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trace: no row with id %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("trace: query row %s: %w", id, err)
	}
	r.Status = Status(status)
	return &r, nil
}

// ListBySession returns all trace rows for a session, most recent first.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]*Row, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, agent_name, provider, model, status,
       response_text, reasoning_text, tool_calls,
       input_tokens, output_tokens, error_message, started_at, updated_at
FROM traces WHERE session_id = ? ORDER BY started_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("trace: query session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		var r Row
		var status string
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.AgentName, &r.Provider, &r.Model, &status,
			&r.ResponseText, &r.ReasoningText, &r.ToolCallsJSON,
			&r.InputTokens, &r.OutputTokens, &r.ErrorMessage, &r.StartedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("trace: scan row: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
