// Package rvnmemhistwriter implements a streaming writer for memory-access
// history: a sequence of (transition, address, size, operation) accesses is
// aggregated into address-ordered, non-overlapping chunks and flushed into a
// relational store in bounded-memory batches.
package rvnmemhistwriter

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/tetrane/rvnmemhistwriter/internal/errs"
	"github.com/tetrane/rvnmemhistwriter/internal/slice"
	"github.com/tetrane/rvnmemhistwriter/internal/store"
)

// FormatVersion is the on-disk schema/metadata format version this module
// writes.
const FormatVersion = "1.0.0"

// WriterVersion is appended to the caller-supplied tool_info string when
// stamping metadata.
const WriterVersion = "1.1.0"

// Writer ingests accesses and materializes them into a relational store.
// A Writer is not safe for concurrent use: all mutation happens on the
// goroutine that created it, matching a single-threaded cooperative model.
//
// State machine: Open -> Open* -> Taken/Dropped. In Open, Push and
// DiscardAfter are valid. Take and Close flush and move to a terminal
// state; pushing after DiscardAfter, or after Take/Close, is undefined.
type Writer struct {
	db     *store.DB
	logger *log.Logger
	limits WriterLimits

	readBuilder  *slice.Builder
	writeBuilder *slice.Builder

	pushList []store.PushEntry
	taken    bool
}

// Option configures a Writer at construction.
type Option func(*writerConfig)

type writerConfig struct {
	limits *WriterLimits
	logger *log.Logger
}

// WithLimits overrides the default builder limits.
func WithLimits(limits WriterLimits) Option {
	return func(c *writerConfig) { c.limits = &limits }
}

// WithLogger overrides the default logger (log.Default()).
func WithLogger(logger *log.Logger) Option {
	return func(c *writerConfig) { c.logger = logger }
}

// Open creates a new on-disk store at path, stamps metadata, creates the
// schema, and returns a ready Writer.
func Open(ctx context.Context, path, toolName, toolVersion, toolInfo string, opts ...Option) (*Writer, error) {
	db, err := store.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("rvnmemhistwriter: open %q: %w", path, err)
	}
	return newWriter(ctx, db, toolName, toolVersion, toolInfo, opts...)
}

// OpenInMemory is like Open but the store is ephemeral and never touches
// disk.
func OpenInMemory(ctx context.Context, toolName, toolVersion, toolInfo string, opts ...Option) (*Writer, error) {
	db, err := store.OpenInMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("rvnmemhistwriter: open in-memory store: %w", err)
	}
	return newWriter(ctx, db, toolName, toolVersion, toolInfo, opts...)
}

func newWriter(ctx context.Context, db *store.DB, toolName, toolVersion, toolInfo string, opts ...Option) (*Writer, error) {
	cfg := &writerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	limits := DefaultLimits()
	if cfg.limits != nil {
		limits = *cfg.limits
	}
	logger := cfg.logger
	if logger == nil {
		logger = log.Default()
	}

	stampedInfo := toolInfo + " - using rvnmemhistwriter " + WriterVersion
	if err := db.Stamp(ctx, FormatVersion, toolName, toolVersion, stampedInfo); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rvnmemhistwriter: stamp metadata: %w", err)
	}

	w := &Writer{
		db:     db,
		logger: logger,
		limits: limits,
	}
	w.resetBuilders()
	return w, nil
}

func (w *Writer) resetBuilders() {
	sliceLimits := w.limits.toSliceLimits()
	w.readBuilder = slice.NewBuilder(sliceLimits)
	w.writeBuilder = slice.NewBuilder(sliceLimits)
	w.pushList = nil
}

// Push ingests one access, flushing and retrying transparently if the
// current builder refuses it under any of its limits.
func (w *Writer) Push(ctx context.Context, access Access) error {
	if access.Operation == OperationExecute {
		return ErrUnsupportedOperation
	}

	builder := w.builderFor(access.Operation)

	idx, ok, err := builder.Insert(access.Transition, access.Address, access.Size)
	if err != nil {
		return err
	}
	if !ok {
		if err := w.flush(ctx); err != nil {
			return err
		}
		builder = w.builderFor(access.Operation)
		idx, ok, err = builder.Insert(access.Transition, access.Address, access.Size)
		if err != nil {
			return err
		}
		if !ok {
			errs.Invariant("push: fresh builder refused a valid insert")
		}
	}

	w.pushList = append(w.pushList, store.PushEntry{
		Handle:            idx,
		Operation:         access.Operation,
		HasVirtualAddress: access.HasVirtualAddress,
		VirtualAddress:    access.VirtualAddress,
	})
	return nil
}

func (w *Writer) builderFor(op Operation) *slice.Builder {
	if op == OperationRead {
		return w.readBuilder
	}
	return w.writeBuilder
}

// flush consumes both builders into a slice pair and writes them to the
// store in one transaction. No-op if nothing has been pushed since the last
// flush.
func (w *Writer) flush(ctx context.Context) error {
	if len(w.pushList) == 0 {
		return nil
	}

	readSlice := w.readBuilder.Build()
	writeSlice := w.writeBuilder.Build()
	pushList := w.pushList

	if err := w.db.InsertSlicePair(ctx, readSlice, writeSlice, pushList); err != nil {
		return fmt.Errorf("rvnmemhistwriter: flush: %w", err)
	}

	w.logger.Printf("flush accesses=%d read_chunks=%d write_chunks=%d",
		len(pushList), readSlice.ChunkCount(), writeSlice.ChunkCount())

	w.resetBuilders()
	return nil
}

// DiscardAfter flushes unconditionally, then removes every persisted access
// at or past transitionCount. chunks and slices rows are not shrunk;
// pushing after DiscardAfter is undefined.
func (w *Writer) DiscardAfter(ctx context.Context, transitionCount uint64) error {
	if err := w.flush(ctx); err != nil {
		return err
	}
	if err := w.db.DiscardAfter(ctx, transitionCount); err != nil {
		return fmt.Errorf("rvnmemhistwriter: discard_after: %w", err)
	}
	w.logger.Printf("discard_after transition_count=%d", transitionCount)
	return nil
}

// Take flushes and surrenders the underlying *sql.DB handle to the caller.
// The Writer must not be used again afterward.
func (w *Writer) Take(ctx context.Context) (*sql.DB, error) {
	if err := w.flush(ctx); err != nil {
		return nil, err
	}
	w.taken = true
	return w.db.Raw(), nil
}

// Close flushes (if Take was never called) and closes the backing store.
// A Writer that is never Taken or Closed leaks its open *sql.DB handle; Go
// has no destructors, so callers must defer Close explicitly.
func (w *Writer) Close() error {
	if w.taken {
		return nil
	}
	if err := w.flush(context.Background()); err != nil {
		_ = w.db.Close()
		return err
	}
	return w.db.Close()
}
