package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/memkit/memoryd/internal/errs"
	"github.com/memkit/memoryd/internal/types"
)

// InsertMemory writes a single event row. It is a one-row special case of
// InsertMemoriesBatch and shares its validation semantics.
func (s *Store) InsertMemory(ctx context.Context, e *types.Event) error {
	return s.InsertMemoriesBatch(ctx, []*types.Event{e})
}

// InsertMemoriesBatch writes every event in a single transaction: if any
// row fails validation or violates a constraint, nothing is written.
func (s *Store) InsertMemoriesBatch(ctx context.Context, events []*types.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return errs.Wrap(errs.Validation, "sqlite.insert_memory", "invalid event", err)
		}
	}

	return s.Transaction(ctx, func(ctx context.Context, tx *Tx) error {
		for _, e := range events {
			metaJSON, err := json.Marshal(e.Metadata)
			if err != nil {
				return errs.Wrap(errs.Internal, "sqlite.insert_memory", "failed to marshal metadata", err)
			}
			_, err = tx.Run(ctx, `
				INSERT INTO memories (
					id, event_type, content, metadata, timestamp,
					session_id, workspace_id, git_branch, git_commit
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, e.ID, string(e.EventType), e.Content, string(metaJSON), e.Timestamp,
				e.SessionID, nullableString(e.WorkspaceID), nullableString(e.GitBranch), nullableString(e.GitCommit))
			if err != nil {
				return errs.Wrap(errs.Conflict, "sqlite.insert_memory", fmt.Sprintf("failed to insert event %s", e.ID), err)
			}
		}
		return nil
	})
}

// GetByID fetches one event, returning (nil, nil) if it does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*types.Event, error) {
	row := s.db.QueryRowContext(ctx, selectMemoryColumns+` WHERE id = ?`, id)
	e, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "sqlite.get_by_id", "failed to get event", err)
	}
	return e, nil
}

// GetByIDs fetches every event whose id is in ids, in no particular
// order; callers needing input order should reorder by e.ID themselves.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]*types.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := selectMemoryColumns + fmt.Sprintf(` WHERE id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "sqlite.get_by_ids", "failed to query events", err)
	}
	defer rows.Close()
	return scanMemoryRows(rows)
}

// Filter runs a dynamic, parameterized WHERE-clause query over memories.
// No filter value is ever string-concatenated into the SQL text.
func (s *Store) Filter(ctx context.Context, f types.EventFilter) ([]*types.Event, error) {
	clauses := []string{}
	args := []interface{}{}

	if f.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.WorkspaceID != "" {
		clauses = append(clauses, "workspace_id = ?")
		args = append(args, f.WorkspaceID)
	}
	if f.EventType != nil {
		clauses = append(clauses, "event_type = ?")
		args = append(args, string(*f.EventType))
	}
	if f.GitBranch != "" {
		clauses = append(clauses, "git_branch = ?")
		args = append(args, f.GitBranch)
	}
	if f.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, *f.Until)
	}

	query := selectMemoryColumns
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "sqlite.filter", "failed to query events", err)
	}
	defer rows.Close()
	return scanMemoryRows(rows)
}

// Count returns the row count for a known table name. Table names come
// only from this package's own callers, never from user input.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	if !knownTables[table] {
		return 0, errs.New(errs.Validation, "sqlite.count", fmt.Sprintf("unknown table %q", table))
	}
	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	if err != nil {
		return 0, errs.Wrap(errs.Internal, "sqlite.count", "failed to count rows", err)
	}
	return count, nil
}

var knownTables = map[string]bool{
	"memories":        true,
	"sessions":        true,
	"git_states":      true,
	"vector_mappings": true,
}

const selectMemoryColumns = `
	SELECT id, event_type, content, metadata, timestamp,
	       session_id, workspace_id, git_branch, git_commit
	FROM memories`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row rowScanner) (*types.Event, error) {
	var e types.Event
	var metaJSON string
	var workspaceID, gitBranch, gitCommit sql.NullString

	if err := row.Scan(&e.ID, &e.EventType, &e.Content, &metaJSON, &e.Timestamp,
		&e.SessionID, &workspaceID, &gitBranch, &gitCommit); err != nil {
		return nil, err
	}
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	e.WorkspaceID = workspaceID.String
	e.GitBranch = gitBranch.String
	e.GitCommit = gitCommit.String
	return &e, nil
}

func scanMemoryRows(rows *sql.Rows) ([]*types.Event, error) {
	var out []*types.Event
	for rows.Next() {
		e, err := scanMemory(rows)
		if err != nil {
			return nil, errs.Wrap(errs.Internal, "sqlite.scan", "failed to scan event row", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
