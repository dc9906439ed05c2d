package store

import "context"

// Stamp seeds the meta key-value table with the header a mem-hist file
// carries: a type tag, the format version, and the tool info string (already
// combined with the writer version by the caller).
func (db *DB) Stamp(ctx context.Context, formatVersion, toolName, toolVersion, toolInfo string) error {
	rows := [][2]string{
		{"type", "mem-hist"},
		{"format_version", formatVersion},
		{"tool_name", toolName},
		{"tool_version", toolVersion},
		{"tool_info", toolInfo},
	}
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, kv := range rows {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Meta reads back a single metadata value, for tests and diagnostics.
func (db *DB) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := db.sql.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	return v, err
}

// Header is the assembled form of the rows Stamp writes.
type Header struct {
	Type          string
	FormatVersion string
	ToolName      string
	ToolVersion   string
	ToolInfo      string
}

// Read reassembles the header Stamp wrote. It is not called anywhere in the
// writer's own flow, which only ever stamps and moves on; it exists for
// callers that open a store written by a previous process and need to
// recover what wrote it.
func (db *DB) Read(ctx context.Context) (Header, error) {
	rows, err := db.sql.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return Header{}, err
	}
	defer rows.Close()

	var h Header
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Header{}, err
		}
		switch key {
		case "type":
			h.Type = value
		case "format_version":
			h.FormatVersion = value
		case "tool_name":
			h.ToolName = value
		case "tool_version":
			h.ToolVersion = value
		case "tool_info":
			h.ToolInfo = value
		}
	}
	return h, rows.Err()
}
