package rvnmemhistwriter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tetrane/rvnmemhistwriter/internal/slice"
)

// WriterLimits mirrors slice.Limits one field at a time, with yaml tags so
// it can be loaded from a config file. A nil field means the limit is unset;
// LoadLimits fills keys absent from the file with DefaultLimits values, but
// a WriterLimits passed to WithLimits is used as given.
type WriterLimits struct {
	ChunkSizeOverlapLimit *uint64 `yaml:"chunkSizeOverlapLimit"`
	ChunkSizeTouchLimit   *uint64 `yaml:"chunkSizeTouchLimit"`
	TransitionLimit       *uint64 `yaml:"transitionLimit"`
	AccessCountLimit      *uint64 `yaml:"accessCountLimit"`
}

// DefaultLimits returns the empirical caps on query latency and peak RAM
// this module ships with, not correctness constraints: overlap limit
// 100000, touch limit 1000, access count limit 10000000, transition limit
// unset.
func DefaultLimits() WriterLimits {
	overlap := uint64(100_000)
	touch := uint64(1_000)
	accessCount := uint64(10_000_000)
	return WriterLimits{
		ChunkSizeOverlapLimit: &overlap,
		ChunkSizeTouchLimit:   &touch,
		AccessCountLimit:      &accessCount,
	}
}

// LoadLimits reads a YAML file and fills any field left unset with its
// default.
func LoadLimits(path string) (*WriterLimits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rvnmemhistwriter: read limits config: %w", err)
	}
	limits := DefaultLimits()
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return nil, fmt.Errorf("rvnmemhistwriter: parse limits config: %w", err)
	}
	return &limits, nil
}

func (l WriterLimits) toSliceLimits() slice.Limits {
	return slice.Limits{
		ChunkSizeOverlapLimit: l.ChunkSizeOverlapLimit,
		ChunkSizeTouchLimit:   l.ChunkSizeTouchLimit,
		TransitionLimit:       l.TransitionLimit,
		AccessCountLimit:      l.AccessCountLimit,
	}
}
