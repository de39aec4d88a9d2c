package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joseph-ayodele/gradebook-relay/internal/app"
	"github.com/joseph-ayodele/gradebook-relay/internal/async"
	"github.com/joseph-ayodele/gradebook-relay/internal/common"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
	"github.com/joseph-ayodele/gradebook-relay/internal/gcp"
	"github.com/joseph-ayodele/gradebook-relay/internal/ingest"
	"github.com/joseph-ayodele/gradebook-relay/internal/secrets"
	"github.com/joseph-ayodele/gradebook-relay/internal/upload"
)

const usage = `usage: gradebook <command> [flags]

commands:
  run     process one log file (local path or s3://bucket/key)
  watch   process log files dropped into a local folder
  doctor  check the configured Drive folder
`

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	if len(os.Args) < 2 {
		printError(usage)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var code int
	switch os.Args[1] {
	case "run":
		code = runCmd(ctx, cfg, logger, os.Args[2:])
	case "watch":
		code = watchCmd(ctx, cfg, logger, os.Args[2:])
	case "doctor":
		code = doctorCmd(ctx, cfg, logger, os.Args[2:])
	default:
		printError("unknown command %q\n%s", os.Args[1], usage)
		code = 2
	}
	os.Exit(code)
}

// parseTarget maps s3://bucket/key to an S3 ref. A local file is served the
// way the watch command serves its drop folder: the parent directory is the
// bucket and the grandparent is the storage root.
func parseTarget(cfg *common.Config, target string) (entity.ObjectRef, error) {
	if rest, ok := strings.CutPrefix(target, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return entity.ObjectRef{}, fmt.Errorf("invalid S3 URL %q", target)
		}
		cfg.Storage.Backend = "s3"
		return entity.ObjectRef{Bucket: bucket, Key: key}, nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return entity.ObjectRef{}, err
	}
	dir := filepath.Dir(abs)
	bucket := filepath.Base(dir)
	if bucket == "" || bucket == "." || bucket == string(filepath.Separator) {
		return entity.ObjectRef{}, fmt.Errorf("%s must sit inside a directory", abs)
	}
	cfg.Storage.Backend = "local"
	cfg.Storage.LocalRoot = filepath.Dir(dir)
	return entity.ObjectRef{Bucket: bucket, Key: filepath.Base(abs)}, nil
}

// runOnce processes one target and returns the handler response.
func runOnce(ctx context.Context, cfg *common.Config, logger *slog.Logger, target string, opts ...app.Option) (entity.Response, error) {
	ref, err := parseTarget(cfg, target)
	if err != nil {
		return entity.Response{}, err
	}
	a, err := app.Build(ctx, cfg, logger, opts...)
	if err != nil {
		return entity.Response{}, err
	}
	defer a.Close()

	return a.Handler.Handle(ctx, entity.TriggerEvent{Records: []entity.ObjectRef{ref}}), nil
}

func runCmd(ctx context.Context, cfg *common.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		printError("Error: run takes exactly one file\n")
		return 2
	}

	resp, err := runOnce(ctx, cfg, logger, fs.Arg(0))
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	fmt.Println(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func watchCmd(ctx context.Context, cfg *common.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	var (
		dir      = fs.String("dir", "", "drop folder to watch (required)")
		workers  = fs.Int("workers", 2, "concurrent pipeline runs")
		timeout  = fs.Duration("timeout", 3*time.Minute, "per-file processing timeout")
		debounce = fs.Duration("debounce", 500*time.Millisecond, "wait for writes to settle")
		scan     = fs.Bool("scan", true, "process files already in the folder")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dir == "" {
		printError("Error: --dir is required\n")
		return 2
	}
	abs, err := filepath.Abs(*dir)
	if err != nil {
		printError("Error: %v\n", err)
		return 2
	}
	cfg.Storage.Backend = "local"
	cfg.Storage.LocalRoot = filepath.Dir(abs)
	bucket := filepath.Base(abs)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	defer a.Close()

	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(*workers),
		async.WithProcessTimeout(*timeout),
	)
	ing := ingest.NewFSIngestor(cfg.Storage.LocalRoot, bucket, queue, logger)

	if *scan {
		_, stats, err := ing.IngestDirectory(ctx, true)
		if err != nil {
			logger.Error("watch.scan.failed", "error", err)
		}
		logger.Info("watch.scan.done", "matched", stats.Matched, "queued", stats.Succeeded-stats.Deduplicated, "failed", stats.Failed)
	}

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:    []string{abs},
		Debounce: *debounce,
		Logger:   logger,
	})
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	logger.Info("watch.started", "dir", abs, "workers", *workers)

loop:
	for {
		select {
		case path, ok := <-events:
			if !ok {
				break loop
			}
			if ingest.IsHidden(path) {
				continue
			}
			if _, err := ing.IngestPath(ctx, path); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("watch.ingest.failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if ok {
				logger.Warn("watch.error", "error", err)
			}
		case <-ctx.Done():
			break loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	return 0
}

func doctorCmd(ctx context.Context, cfg *common.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	limit := fs.Int64("limit", 10, "recent files to list")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	defer a.Close()

	bundle, err := secrets.NewStore(a.Secrets, logger).Fetch(ctx, cfg.Secrets.SecretNames()...)
	if err != nil {
		printError("secrets: %v\n", err)
		return 1
	}
	creds, err := gcp.CredentialsJSON(bundle)
	if err != nil {
		printError("credentials: %v\n", err)
		return 1
	}
	clients, err := gcp.NewClients(ctx, creds)
	if err != nil {
		printError("google clients: %v\n", err)
		return 1
	}

	folderID := bundle.String(secrets.KeyDriveFolderID)
	if folderID == "" {
		printError("bundle has no %s\n", secrets.KeyDriveFolderID)
		return 1
	}
	drive := upload.NewDriveUploader(clients.Drive, logger)
	info, err := drive.CheckFolder(ctx, folderID)
	if err != nil {
		printError("folder %s: %v\n", folderID, err)
		return 1
	}
	fmt.Printf("folder: %s (%s)\n", info.Name, info.ID)

	files, err := drive.ListFolder(ctx, folderID, *limit)
	if err != nil {
		printError("list: %v\n", err)
		return 1
	}
	for _, f := range files {
		fmt.Printf("  %s  %s  %s\n", f.CreatedTime, f.Name, f.ID)
	}
	return 0
}
