package store

import "context"

// schemaStatements creates the three tables the materializer contract
// needs, plus their indexes. Run once per open, inside a transaction.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS slices (
		transition_first INTEGER NOT NULL,
		transition_last  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chunks (
		slice_id  INTEGER NOT NULL,
		phy_first INTEGER NOT NULL,
		phy_last  INTEGER NOT NULL,
		operation INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accesses (
		chunk_id   INTEGER NOT NULL,
		transition INTEGER NOT NULL,
		linear     INTEGER,
		phy_first  INTEGER NOT NULL,
		size       INTEGER NOT NULL,
		operation  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_slices_transition_last ON slices(transition_last)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_op_slice_phylast ON chunks(operation, slice_id, phy_last)`,
	`CREATE INDEX IF NOT EXISTS idx_accesses_chunk_transition ON accesses(chunk_id, transition)`,
	`CREATE INDEX IF NOT EXISTS idx_accesses_transition ON accesses(transition)`,
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

func (db *DB) ensureSchema(ctx context.Context) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
