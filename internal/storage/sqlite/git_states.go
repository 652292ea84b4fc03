package sqlite

import (
	"context"
	"database/sql"

	"github.com/memkit/memoryd/internal/errs"
)

// GitState is the tracked branch/commit pairing for one workspace.
type GitState struct {
	WorkspaceID string
	Branch      string
	Commit      string
	IsDirty     bool
}

// TrackGitState records (or overwrites) the current branch/commit for a
// workspace, keyed on (workspace_id, branch).
func (s *Store) TrackGitState(ctx context.Context, g GitState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO git_states (workspace_id, branch, commit_hash, is_dirty, tracked_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(workspace_id, branch) DO UPDATE SET
			commit_hash = excluded.commit_hash,
			is_dirty = excluded.is_dirty,
			tracked_at = CURRENT_TIMESTAMP
	`, g.WorkspaceID, g.Branch, g.Commit, boolToInt(g.IsDirty))
	if err != nil {
		return errs.Wrap(errs.Internal, "sqlite.track_git_state", "failed to upsert git state", err)
	}
	return nil
}

// GitStateFor fetches the most recently tracked state for a workspace's
// branch, returning (nil, nil) if it has never been tracked.
func (s *Store) GitStateFor(ctx context.Context, workspaceID, branch string) (*GitState, error) {
	var g GitState
	var isDirty int
	err := s.db.QueryRowContext(ctx, `
		SELECT workspace_id, branch, commit_hash, is_dirty
		FROM git_states WHERE workspace_id = ? AND branch = ?
	`, workspaceID, branch).Scan(&g.WorkspaceID, &g.Branch, &g.Commit, &isDirty)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "sqlite.get_git_state", "failed to get git state", err)
	}
	g.IsDirty = isDirty != 0
	return &g, nil
}
