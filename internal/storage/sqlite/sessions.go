package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/memkit/memoryd/internal/errs"
	"github.com/memkit/memoryd/internal/types"
)

// PutSession upserts a session row, mirroring the in-memory state the
// Session Manager owns.
func (s *Store) PutSession(ctx context.Context, sess *types.Session) error {
	metaJSON, err := json.Marshal(sess.Metadata)
	if err != nil {
		return errs.Wrap(errs.Internal, "sqlite.put_session", "failed to marshal metadata", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, workspace_id, start_time, last_activity, end_time, is_active, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_activity = excluded.last_activity,
			end_time = excluded.end_time,
			is_active = excluded.is_active,
			metadata = excluded.metadata
	`, sess.ID, nullableString(sess.WorkspaceID), sess.StartTime, sess.LastActivity,
		nullableTime(sess.EndTime), boolToInt(sess.IsActive), string(metaJSON))
	if err != nil {
		return errs.Wrap(errs.Internal, "sqlite.put_session", "failed to upsert session", err)
	}
	return nil
}

// GetSession fetches one session, returning (nil, nil) if absent.
func (s *Store) GetSession(ctx context.Context, id string) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, selectSessionColumns+` WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "sqlite.get_session", "failed to get session", err)
	}
	return sess, nil
}

// FindActiveByWorkspace returns the active session for a workspace, if any.
func (s *Store) FindActiveByWorkspace(ctx context.Context, workspaceID string) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, selectSessionColumns+` WHERE workspace_id = ? AND is_active = 1 ORDER BY last_activity DESC LIMIT 1`, workspaceID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "sqlite.find_active_session", "failed to query session", err)
	}
	return sess, nil
}

// ListActiveSessions returns every session currently marked active.
func (s *Store) ListActiveSessions(ctx context.Context) ([]*types.Session, error) {
	rows, err := s.db.QueryContext(ctx, selectSessionColumns+` WHERE is_active = 1`)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "sqlite.list_active_sessions", "failed to query sessions", err)
	}
	defer rows.Close()

	var out []*types.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, errs.Wrap(errs.Internal, "sqlite.scan", "failed to scan session row", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

const selectSessionColumns = `
	SELECT id, workspace_id, start_time, last_activity, end_time, is_active, metadata
	FROM sessions`

func scanSession(row rowScanner) (*types.Session, error) {
	var sess types.Session
	var workspaceID sql.NullString
	var endTime sql.NullTime
	var isActive int
	var metaJSON string

	if err := row.Scan(&sess.ID, &workspaceID, &sess.StartTime, &sess.LastActivity,
		&endTime, &isActive, &metaJSON); err != nil {
		return nil, err
	}
	sess.WorkspaceID = workspaceID.String
	if endTime.Valid {
		sess.EndTime = &endTime.Time
	}
	sess.IsActive = isActive != 0
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &sess.Metadata)
	}
	return &sess, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
