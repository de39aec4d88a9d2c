package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gradebook-relay/constants"
	"github.com/joseph-ayodele/gradebook-relay/internal/async"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// FSIngestor watches over Root/Bucket, the same layout storage.LocalReader
// serves, so a queued key reads back through the local reader.
type FSIngestor struct {
	Root   string
	Bucket string
	Queue  async.Queue
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // content hash -> key
}

func NewFSIngestor(root, bucket string, queue async.Queue, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		Root:   root,
		Bucket: bucket,
		Queue:  queue,
		logger: logger,
		seen:   map[string]string{},
	}
}

// Dir is the watched drop folder.
func (i *FSIngestor) Dir() string {
	return filepath.Join(i.Root, i.Bucket)
}

// IngestPath hashes the file and queues it unless identical content was
// already queued under any name.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}
	out.FileExt = ext

	key, err := i.keyFor(abs)
	if err != nil {
		return out, err
	}
	out.Key = key

	sum, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	out.HashHex = sum

	i.mu.Lock()
	prev, dup := i.seen[sum]
	if !dup {
		i.seen[sum] = key
	}
	i.mu.Unlock()
	if dup {
		i.logger.Info("ingest.duplicate", "key", key, "first_key", prev)
		out.Deduplicated = true
		return out, nil
	}

	job := async.Job{
		Ref:         entity.ObjectRef{Bucket: i.Bucket, Key: key},
		SubmittedAt: time.Now(),
		TraceID:     uuid.NewString(),
	}
	if err := i.Queue.Enqueue(ctx, job); err != nil {
		i.mu.Lock()
		delete(i.seen, sum)
		i.mu.Unlock()
		return out, fmt.Errorf("enqueue %s: %w", key, err)
	}
	i.logger.Info("ingest.queued", "key", key, "trace_id", job.TraceID)
	return out, nil
}

func (i *FSIngestor) keyFor(abs string) (string, error) {
	base, err := filepath.Abs(i.Dir())
	if err != nil {
		return "", fmt.Errorf("abs root: %w", err)
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the drop folder %s", abs, base)
	}
	return filepath.ToSlash(rel), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IngestDirectory walks the drop folder, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, skipHidden bool) ([]IngestionResult, DirStats, error) {
	root := i.Dir()
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("drop folder is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// AllowedExt reports whether a drop-folder file with this extension is a log.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden reports dotfiles, including editors' partial-write files.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
