package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Source returns the raw JSON document stored under one logical name.
type Source interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// Store fetches named secrets from a Source and merges them into one Bundle.
// Nothing is cached: each Fetch goes back to the Source.
type Store struct {
	source Source
	logger *slog.Logger
}

func NewStore(source Source, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{source: source, logger: logger}
}

// Fetch loads every name in order; later documents override earlier keys.
func (s *Store) Fetch(ctx context.Context, names ...string) (Bundle, error) {
	if len(names) == 0 {
		return nil, errors.New("no secret names given")
	}
	bundles := make([]Bundle, 0, len(names))
	for _, name := range names {
		raw, err := s.source.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("get secret %s: %w", name, err)
		}
		b, err := ParseBundle(name, raw)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	merged := Merge(bundles...)
	s.logger.Info("secrets.fetch.ok", "names", names, "keys", len(merged))
	return merged, nil
}

// FileSource reads <dir>/<name>.json. Used for local runs and tests.
type FileSource struct {
	Dir string
}

func (f FileSource) Get(_ context.Context, name string) ([]byte, error) {
	if strings.ContainsAny(name, `/\`) || name == ".." {
		return nil, fmt.Errorf("invalid secret name %q", name)
	}
	return os.ReadFile(filepath.Join(f.Dir, name+".json"))
}

// MapSource serves secrets from memory.
type MapSource map[string]string

func (m MapSource) Get(_ context.Context, name string) ([]byte, error) {
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("secret %s not found", name)
	}
	return []byte(v), nil
}
