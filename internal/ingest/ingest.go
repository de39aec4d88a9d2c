package ingest

import (
	"context"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	Key          string
	Deduplicated bool
	HashHex      string
	FileExt      string
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor turns files in a drop folder into queued pipeline jobs.
type Ingestor interface {
	// IngestPath queues a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory queues every matching file under the drop folder.
	IngestDirectory(ctx context.Context, skipHidden bool) ([]IngestionResult, DirStats, error)
}
