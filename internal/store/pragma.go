package store

import "strings"

// dsnWithPragmas appends the write-throughput pragma set to a modernc.org/sqlite
// DSN, using the "_pragma=" query-parameter convention to tune SQLite
// connections without a separate Exec round trip. Durability is traded for
// ingest speed on purpose: synchronous writes and the journal/temp-store
// relaxation are the first things a bulk-ingest schema needs.
func dsnWithPragmas(path string) string {
	if path == "" || path == ":memory:" {
		return "file::memory:?cache=shared&_pragma=synchronous(OFF)&_pragma=journal_mode(MEMORY)&_pragma=temp_store(MEMORY)"
	}
	dsn := "file:" + path
	return addPragmas(dsn,
		"synchronous(OFF)",
		"journal_mode(MEMORY)",
		"temp_store(MEMORY)",
	)
}

func addPragmas(dsn string, pragmas ...string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range pragmas {
		dsn += sep + "_pragma=" + p
		sep = "&"
	}
	return dsn
}
