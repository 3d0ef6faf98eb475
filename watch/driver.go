// Package watch implements the directory driver: discover input files,
// name outputs by suffix substitution, invoke the transformer, validate,
// delete on success, and loop. Grounded on the worker-pool/channel pattern
// of a directory walker, generalized from a one-shot filepath.Walk into a
// repeating poll loop, with an optional fsnotify fast path layered on top.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/miku/warctika/fileutils"
	"github.com/miku/warctika/inflight"
	"github.com/miku/warctika/tikaclient"
	"github.com/miku/warctika/transform"
	"github.com/miku/warctika/warcrecord"
)

func openForRead(path string) (*os.File, error) { return os.Open(path) }

// Stats is a poor man's metrics counter, mirroring the walker's success
// ratio reporting.
type Stats struct {
	mu        sync.Mutex
	Processed int
	OK        int
}

func (s *Stats) incProcessed() {
	s.mu.Lock()
	s.Processed++
	s.mu.Unlock()
}

func (s *Stats) incOK() {
	s.mu.Lock()
	s.OK++
	s.mu.Unlock()
}

// SuccessRatio returns OK/Processed, or 1.0 when nothing has been processed.
func (s *Stats) SuccessRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Processed == 0 {
		return 1.0
	}
	return float64(s.OK) / float64(s.Processed)
}

// Driver watches a directory for input WARC files and runs each one through
// the transformer exactly once.
type Driver struct {
	Dir             string
	InSuffix        string
	OutSuffix       string
	Workers         int
	PollInterval    time.Duration
	DeleteOnSuccess bool
	GzipMode        warcrecord.GzipMode
	MinFreeDiskPct  float64

	TikaConfig tikaclient.Config
	Validator  Validator
	Registry   *inflight.Registry

	stats Stats
}

// outputPath computes the output path for an input path by suffix
// substitution, e.g. "a.warc.gz" -> "a-ViaTika.warc.gz".
func (d *Driver) outputPath(inPath string) string {
	return strings.TrimSuffix(inPath, d.InSuffix) + d.OutSuffix
}

// eligible reports whether a directory entry should be queued: a regular,
// non-empty file ending in InSuffix but not OutSuffix, whose output does not
// already exist.
func (d *Driver) eligible(name string, info fs.FileInfo) bool {
	if info.IsDir() || info.Size() == 0 {
		return false
	}
	if !strings.HasSuffix(name, d.InSuffix) || strings.HasSuffix(name, d.OutSuffix) {
		return false
	}
	out := d.outputPath(filepath.Join(d.Dir, name))
	if _, err := os.Stat(out); err == nil {
		return false // idempotence: already processed
	}
	return true
}

// Run starts the poll loop. It returns nil once ctx is cancelled; scan and
// per-file errors are logged and do not stop the loop.
func (d *Driver) Run(ctx context.Context) error {
	if d.Registry == nil {
		d.Registry = inflight.NewRegistry()
	}
	if d.Validator == nil {
		d.Validator = InMemoryValidator{GzipMode: d.GzipMode}
	}
	if d.Workers < 1 {
		d.Workers = 1
	}
	if d.PollInterval <= 0 {
		d.PollInterval = 15 * time.Second
	}

	// Crash-safety: clean up any zero-length or validator-rejected output
	// left from a prior abnormal exit before doing anything else.
	d.cleanupStaleOutputs()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := d.scanOnce(ctx); err != nil {
			slog.Error("scan failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d.PollInterval):
		}
	}
}

// cleanupStaleOutputs implements the SIGKILL fallback: once, when Run
// starts and before the first scan, any existing output that is
// zero-length or fails validation is removed so the input is reprocessed.
func (d *Driver) cleanupStaleOutputs() {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		slog.Warn("cannot list directory for stale-output cleanup", "dir", d.Dir, "err", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), d.OutSuffix) {
			continue
		}
		path := filepath.Join(d.Dir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() == 0 {
			slog.Warn("removing zero-length stale output", "path", path)
			_ = os.Remove(path)
			continue
		}
		if err := d.Validator.Validate(path); err != nil {
			slog.Warn("removing validator-rejected stale output", "path", path, "err", err)
			_ = os.Remove(path)
		}
	}
}

// scanOnce lists the directory once and processes every eligible file
// through a bounded worker pool, matching the walker's channel-fed
// goroutine pattern.
func (d *Driver) scanOnce(ctx context.Context) error {
	if ok, pct := d.hasSufficientDiskSpace(); !ok {
		slog.Warn("skipping scan, low disk space", "dir", d.Dir, "free_pct", pct)
		return nil
	}

	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", d.Dir, err)
	}

	type payload struct {
		path string
	}
	queue := make(chan payload)
	var wg sync.WaitGroup
	for i := 0; i < d.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range queue {
				d.processFile(ctx, p.path)
			}
		}()
	}

	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		name := filepath.Join(d.Dir, e.Name())
		if !d.eligible(e.Name(), info) {
			continue
		}
		select {
		case queue <- payload{path: name}:
		case <-ctx.Done():
			close(queue)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(queue)
	wg.Wait()
	return nil
}

// processFile runs one input file through the transformer, validates the
// output, and deletes input/output per the success/failure policy.
func (d *Driver) processFile(ctx context.Context, inPath string) {
	logger := slog.With("path", inPath)
	d.stats.incProcessed()
	outPath := d.outputPath(inPath)

	d.Registry.Add(outPath)
	defer d.Registry.Remove(outPath)

	if err := d.transformOne(ctx, inPath, outPath); err != nil {
		logger.Error("transform failed, leaving input in place", "err", err)
		_ = os.Remove(outPath)
		return
	}

	if err := d.Validator.Validate(outPath); err != nil {
		logger.Warn("validator rejected output, removing it", "err", err)
		_ = os.Remove(outPath)
		return
	}

	d.stats.incOK()
	if d.DeleteOnSuccess {
		if err := os.Remove(inPath); err != nil {
			logger.Warn("failed to remove input after successful conversion", "err", err)
		}
	}
}

// transformOne streams inPath through the transformer into a temp file,
// then moves it atomically into outPath via fileutils.MoveFile, so a crash
// mid-write never leaves a half-written file at the final, discoverable
// path.
func (d *Driver) transformOne(ctx context.Context, inPath, outPath string) (err error) {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".warctika-tmp-")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	client := tikaclient.New(d.TikaConfig, nil)
	tr := transform.New(client)
	reader := warcrecord.NewReader(in, d.GzipMode)
	writer := warcrecord.NewWriter(tmp, d.GzipMode != warcrecord.GzipPlain)

	stats, terr := tr.TransformFile(ctx, reader, writer)
	if cerr := tmp.Close(); cerr != nil && terr == nil {
		terr = cerr
	}
	if terr != nil {
		return fmt.Errorf("transform: %w", terr)
	}
	slog.Info("file complete", "path", inPath, "read", stats.RecordsRead,
		"converted", stats.RecordsConverted, "kept", stats.RecordsKept,
		"passed", stats.RecordsPassed, "codes", stats.Codes)

	// fileutils.MoveFile rather than a bare os.Rename: it stages its own
	// temp file in outPath's directory before the final rename, so moving
	// the finished output in place stays atomic even if tmpName ever ends
	// up on a different filesystem (e.g. TMPDIR mounted separately).
	if err = fileutils.MoveFile(outPath, tmpName); err != nil {
		return fmt.Errorf("move temp output into place: %w", err)
	}
	return nil
}
