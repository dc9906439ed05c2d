// Package store is the relational materializer: it owns the sqlite-backed
// slices/chunks/accesses schema, and the two operations that write to it —
// flushing a finished read/write slice pair, and the destructive delete
// DiscardAfter performs.
package store

import (
	"context"
	"database/sql"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/tetrane/rvnmemhistwriter/internal/chunk"
	"github.com/tetrane/rvnmemhistwriter/internal/errs"
	"github.com/tetrane/rvnmemhistwriter/internal/slice"
)

// DB wraps *sql.DB with the schema and flush logic this engine needs. It is
// not safe for concurrent use, matching the single-threaded-writer model the
// rest of the engine assumes.
type DB struct {
	sql *sql.DB
}

// Open creates or opens the on-disk database at path, applies the
// write-throughput pragmas, and ensures the schema exists.
func Open(ctx context.Context, path string) (*DB, error) {
	return open(ctx, dsnWithPragmas(path))
}

// OpenInMemory opens an ephemeral, process-local database with the same
// schema and pragmas as Open.
func OpenInMemory(ctx context.Context) (*DB, error) {
	return open(ctx, dsnWithPragmas(""))
}

func open(ctx context.Context, dsn string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	db := &DB{sql: sqldb}
	if err := db.ensureSchema(ctx); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return db, nil
}

// Raw returns the underlying *sql.DB, surrendered to the caller by Take.
func (db *DB) Raw() *sql.DB { return db.sql }

// Close closes the underlying connection.
func (db *DB) Close() error { return db.sql.Close() }

type chunkEntry struct {
	operation Operation
	arena     *chunk.Arena
	chunk     chunk.Chunk
}

// InsertSlicePair runs the full flush algorithm as a single transaction:
// one slices row, one chunks row per chunk across both operations (inserted
// in descending address order), and one accesses row per pushed access in
// push order.
func (db *DB) InsertSlicePair(ctx context.Context, readSlice, writeSlice *slice.Slice, pushList []PushEntry) error {
	readEmpty, writeEmpty := readSlice.Empty(), writeSlice.Empty()
	if readEmpty && writeEmpty {
		errs.Invariant("insert_slice_pair: both slices are empty")
	}

	var transitionFirst, transitionLast uint64
	switch {
	case readEmpty:
		transitionFirst, transitionLast = writeSlice.TransitionFirst(), writeSlice.TransitionLast()
	case writeEmpty:
		transitionFirst, transitionLast = readSlice.TransitionFirst(), readSlice.TransitionLast()
	default:
		transitionFirst = min64(readSlice.TransitionFirst(), writeSlice.TransitionFirst())
		transitionLast = max64(readSlice.TransitionLast(), writeSlice.TransitionLast())
	}

	var entries []chunkEntry
	readSlice.Chunks(func(_ uint64, c chunk.Chunk) {
		entries = append(entries, chunkEntry{operation: OperationRead, arena: readSlice.Arena(), chunk: c})
	})
	writeSlice.Chunks(func(_ uint64, c chunk.Chunk) {
		entries = append(entries, chunkEntry{operation: OperationWrite, arena: writeSlice.Arena(), chunk: c})
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].chunk.AddressFirst > entries[j].chunk.AddressFirst
	})

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO slices(transition_first, transition_last) VALUES (?, ?)`,
		transitionFirst, transitionLast)
	if err != nil {
		return err
	}
	sliceID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	type handleKey struct {
		operation Operation
		handle    int
	}
	chunkIDByHandle := make(map[handleKey]int64, len(pushList))

	for _, e := range entries {
		res, err := tx.ExecContext(ctx, `INSERT INTO chunks(slice_id, phy_first, phy_last, operation) VALUES (?, ?, ?, ?)`,
			sliceID, e.chunk.AddressFirst, e.chunk.AddressLast, e.operation)
		if err != nil {
			return err
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		e.arena.Walk(e.chunk.Head(), func(idx int, _ *chunk.Access) {
			chunkIDByHandle[handleKey{operation: e.operation, handle: idx}] = chunkID
		})
	}

	insertAccess, err := tx.PrepareContext(ctx,
		`INSERT INTO accesses(chunk_id, transition, linear, phy_first, size, operation) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertAccess.Close()

	for _, entry := range pushList {
		chunkID, ok := chunkIDByHandle[handleKey{operation: entry.Operation, handle: entry.Handle}]
		if !ok {
			errs.Invariant("insert_slice_pair: pushed access has no chunk mapping")
		}

		var arena *chunk.Arena
		if entry.Operation == OperationRead {
			arena = readSlice.Arena()
		} else {
			arena = writeSlice.Arena()
		}
		access := arena.At(entry.Handle)

		var linear interface{}
		if entry.HasVirtualAddress {
			linear = entry.VirtualAddress
		}

		if _, err := insertAccess.ExecContext(ctx, chunkID, access.Transition, linear, access.Address, access.Size, entry.Operation); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DiscardAfter deletes every accesses row at or past transitionCount,
// pinned to the minimum qualifying slice rowid for determinism: the source
// implementation's sub-select returns "the first slice whose
// transition_last >= transition_count" without an ORDER BY, which this
// pins to MIN(rowid) among candidates. chunks and slices rows are not
// shrunk; their bounding boxes may become loose, which is documented,
// accepted drift.
func (db *DB) DiscardAfter(ctx context.Context, transitionCount uint64) error {
	_, err := db.sql.ExecContext(ctx, `
		DELETE FROM accesses
		WHERE transition >= ?
		AND chunk_id >= (
			SELECT MIN(chunks.rowid) FROM chunks
			WHERE chunks.slice_id = (
				SELECT MIN(slices.rowid) FROM slices WHERE slices.transition_last >= ?
			)
		)`, transitionCount, transitionCount)
	return err
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
