package sqlite

import (
	"context"
	"database/sql"

	"github.com/memkit/memoryd/internal/errs"
)

// PutVectorMapping records which vector index entry backs a memory's
// embedding, inside the caller's transaction so it stays atomic with the
// owning insert.
func (t *Tx) PutVectorMapping(ctx context.Context, memoryID, vectorID, model string) error {
	_, err := t.Run(ctx, `
		INSERT INTO vector_mappings (memory_id, vector_id, model)
		VALUES (?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET vector_id = excluded.vector_id, model = excluded.model
	`, memoryID, vectorID, model)
	return err
}

// PutVectorMapping records a memory's vector mapping outside any
// caller-managed transaction, for the Storage Engine's best-effort
// post-commit side write.
func (s *Store) PutVectorMapping(ctx context.Context, memoryID, vectorID, model string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vector_mappings (memory_id, vector_id, model)
		VALUES (?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET vector_id = excluded.vector_id, model = excluded.model
	`, memoryID, vectorID, model)
	if err != nil {
		return errs.Wrap(errs.StoreUnavailable, "sqlite.put_vector_mapping", "failed to record vector mapping", err)
	}
	return nil
}

// VectorIDFor returns the vector index id mapped to a memory, or ("",
// nil) if no mapping exists.
func (s *Store) VectorIDFor(ctx context.Context, memoryID string) (string, error) {
	var vectorID string
	err := s.db.QueryRowContext(ctx, `SELECT vector_id FROM vector_mappings WHERE memory_id = ?`, memoryID).Scan(&vectorID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errs.Wrap(errs.Internal, "sqlite.vector_id_for", "failed to query vector mapping", err)
	}
	return vectorID, nil
}
