// Package pipeline drives the catalog sync: collection discovery, record
// loading, per-record image matching and publication, index commits, and
// checkpointing. Collections and records are processed strictly one at a
// time; the vendor connection is a single shared session and a single
// (collection, offset) pair must fully describe progress.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vizzaro-home/wallsync/internal/catalog"
	"github.com/vizzaro-home/wallsync/internal/checkpoint"
	"github.com/vizzaro-home/wallsync/internal/loader"
	"github.com/vizzaro-home/wallsync/internal/match"
	"github.com/vizzaro-home/wallsync/internal/publish"
	"github.com/vizzaro-home/wallsync/internal/remote"
)

// Source is the view of the remote vendor tree the pipeline needs.
type Source interface {
	List(ctx context.Context, dir string) ([]remote.Entry, error)
	Read(ctx context.Context, filePath string) ([]byte, error)
	ScanImages(ctx context.Context, root string) []remote.Entry
}

// Publisher stores a processed asset and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, key string, data []byte) (string, error)
}

// IndexWriter commits catalog views and reads back partial commits on resume.
type IndexWriter interface {
	Commit(ctx context.Context, collectionID string, records []catalog.ProductRecord) error
	CollectionRecords(ctx context.Context, collectionID string) ([]catalog.ProductRecord, error)
	DataChecksum(ctx context.Context, collectionID string) (string, error)
	SetDataChecksum(ctx context.Context, collectionID, checksum string) error
}

// Processor transforms raw image bytes before publication.
type Processor interface {
	Apply(src []byte) []byte
}

type Options struct {
	Root        string
	Target      string // single collection name, empty for all
	Force       bool
	CommitEvery int
	RecordDelay time.Duration
}

// Summary is the run report.
type Summary struct {
	RunID         string
	Collections   int
	Succeeded     int
	Skipped       int
	Failed        int
	Records       int
	WithImages    int
	WithoutImages int
	Unpriced      int
}

type Orchestrator struct {
	source      Source
	publisher   Publisher
	index       IndexWriter
	processor   Processor
	checkpoints *checkpoint.Manager
	opts        Options
}

func New(source Source, publisher Publisher, index IndexWriter, processor Processor, checkpoints *checkpoint.Manager, opts Options) *Orchestrator {
	if opts.CommitEvery <= 0 {
		opts.CommitEvery = 5
	}
	return &Orchestrator{
		source:      source,
		publisher:   publisher,
		index:       index,
		processor:   processor,
		checkpoints: checkpoints,
		opts:        opts,
	}
}

// Run processes every targeted collection. Per-collection failures are
// counted, not fatal; the error return is reserved for startup-level
// problems (target not found, root unlistable) and cancellation.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString()}
	slog.Info("Starting catalog sync", "run", sum.RunID, "root", o.opts.Root, "target", o.opts.Target, "force", o.opts.Force)

	dirs, err := o.collectionDirs(ctx)
	if err != nil {
		return sum, err
	}
	sum.Collections = len(dirs)

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			o.flush()
			return sum, err
		}

		res, err := o.processCollection(ctx, sum, dir)
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			o.flush()
			return sum, err
		case err != nil:
			slog.Error("Collection failed", "collection", dir.Name, "err", err)
			sum.Failed++
		case res == resultSkipped:
			sum.Skipped++
		default:
			sum.Succeeded++
		}
	}

	if sum.Failed == 0 {
		slog.Info("All collections processed, clearing checkpoint")
		if err := o.checkpoints.Clear(); err != nil {
			slog.Warn("Failed to clear checkpoint", "err", err)
		}
	} else {
		o.flush()
	}

	return sum, nil
}

type result int

const (
	resultSucceeded result = iota
	resultSkipped
)

func (o *Orchestrator) collectionDirs(ctx context.Context) ([]remote.Entry, error) {
	entries, err := o.source.List(ctx, o.opts.Root)
	if err != nil {
		return nil, err
	}

	var dirs []remote.Entry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		}
	}

	if o.opts.Target == "" {
		return dirs, nil
	}

	// Exact directory name first, then a case-insensitive substring match:
	// operators type collection names from memory.
	for _, d := range dirs {
		if d.Name == o.opts.Target {
			return []remote.Entry{d}, nil
		}
	}
	target := strings.ToLower(o.opts.Target)
	for _, d := range dirs {
		if strings.Contains(strings.ToLower(d.Name), target) {
			slog.Info("Resolved target collection", "requested", o.opts.Target, "directory", d.Name)
			return []remote.Entry{d}, nil
		}
	}
	return nil, &CollectionNotFoundError{Name: o.opts.Target}
}

func (o *Orchestrator) processCollection(ctx context.Context, sum *Summary, dir remote.Entry) (result, error) {
	name := dir.Name
	slog.Info("Processing collection", "collection", name)

	if o.opts.Force {
		o.checkpoints.ClearCollection(name)
	} else if o.checkpoints.Completed(name) {
		slog.Info("Collection already completed, skipping", "collection", name)
		return resultSkipped, nil
	}

	entries, err := o.source.List(ctx, dir.Path)
	if err != nil {
		return 0, err
	}

	dataFile, ok := findDataFile(entries)
	if !ok {
		// An empty collection folder is not an error. Mark it complete so
		// the rest of the run never revisits it.
		slog.Warn("No data file found, skipping collection", "collection", name)
		o.checkpoints.MarkComplete(name)
		o.flush()
		return resultSkipped, nil
	}

	raw, err := o.source.Read(ctx, dataFile.Path)
	if err != nil {
		return 0, err
	}
	checksum := loader.Checksum(raw)

	resume := o.checkpoints.ResumeOffset(name)
	if resume == 0 && !o.opts.Force {
		// A collection already committed from an unchanged sheet needs no
		// work; an updated sheet re-queues it without --force.
		existing, err := o.index.CollectionRecords(ctx, name)
		if err != nil {
			return 0, err
		}
		prev, err := o.index.DataChecksum(ctx, name)
		if err != nil {
			return 0, err
		}
		if existing != nil && prev == checksum {
			slog.Info("Collection up to date, skipping", "collection", name, "records", len(existing))
			o.checkpoints.MarkComplete(name)
			o.flush()
			return resultSkipped, nil
		}
	}

	records, err := loader.LoadRecords(name, raw)
	if err != nil {
		return 0, err
	}
	slog.Info("Parsed records", "collection", name, "count", len(records), "dataFile", dataFile.Name)

	// One subtree walk per collection, not per record.
	images := o.source.ScanImages(ctx, dir.Path)
	slog.Info("Scanned images", "collection", name, "count", len(images))

	committed, err := o.processRecords(ctx, sum, name, records, images, resume)
	if err != nil {
		return 0, err
	}

	if err := o.index.Commit(ctx, name, committed); err != nil {
		return 0, err
	}
	if err := o.index.SetDataChecksum(ctx, name, checksum); err != nil {
		slog.Warn("Failed to record data file checksum", "collection", name, "err", err)
	}
	o.checkpoints.MarkComplete(name)
	o.flush()

	slog.Info("Collection complete", "collection", name, "records", len(committed))
	return resultSucceeded, nil
}

func (o *Orchestrator) processRecords(ctx context.Context, sum *Summary, name string, records []catalog.ProductRecord, images []remote.Entry, resume int) ([]catalog.ProductRecord, error) {
	var results []catalog.ProductRecord
	if resume > 0 {
		// The committed partial list is the accumulator; records [0,resume)
		// are not recomputed.
		prev, err := o.index.CollectionRecords(ctx, name)
		if err != nil {
			return nil, err
		}
		if resume > len(prev) {
			resume = len(prev)
		}
		results = prev[:resume:resume]
		slog.Info("Resuming collection", "collection", name, "offset", resume)
	}

	for i := resume; i < len(records); i++ {
		if err := ctx.Err(); err != nil {
			o.checkpoints.MarkProgress(name, i, sum.Records)
			return nil, err
		}

		rec := o.processRecord(ctx, name, records[i], images)
		results = append(results, rec)

		sum.Records++
		if rec.HasImage {
			sum.WithImages++
		} else {
			sum.WithoutImages++
		}
		if rec.Unpriced() {
			sum.Unpriced++
		}

		if (i+1)%o.opts.CommitEvery == 0 && i+1 < len(records) {
			if err := o.index.Commit(ctx, name, results); err != nil {
				return nil, err
			}
			o.checkpoints.MarkProgress(name, i+1, sum.Records)
			o.flush()
			slog.Debug("Checkpoint saved", "collection", name, "offset", i+1, "total", len(records))
		}

		if o.opts.RecordDelay > 0 && i+1 < len(records) {
			select {
			case <-ctx.Done():
			case <-time.After(o.opts.RecordDelay):
			}
		}
	}

	return results, nil
}

// processRecord resolves and publishes a record's images. Matching misses
// and publish failures leave the record imageless for this run; it stays in
// the collection list and is revisited next time.
func (o *Orchestrator) processRecord(ctx context.Context, name string, rec catalog.ProductRecord, images []remote.Entry) catalog.ProductRecord {
	candidates := match.Candidates(rec.ID, images)
	if len(candidates) == 0 {
		slog.Debug("No image found", "collection", name, "pattern", rec.ID)
		return rec
	}

	for _, cand := range candidates {
		data, err := o.source.Read(ctx, cand.Path)
		if err != nil {
			slog.Warn("Failed to download image", "collection", name, "pattern", rec.ID, "image", cand.Name, "err", err)
			continue
		}

		url, err := o.publisher.Publish(ctx, publish.ObjectKey(name, cand.Name), o.processor.Apply(data))
		if err != nil {
			slog.Warn("Failed to publish image", "collection", name, "pattern", rec.ID, "image", cand.Name, "err", err)
			continue
		}
		rec.Images = append(rec.Images, url)
	}

	if len(rec.Images) > 0 {
		rec.ImageURL = rec.Images[0]
		rec.HasImage = true
	}
	return rec
}

func (o *Orchestrator) flush() {
	if err := o.checkpoints.Save(); err != nil {
		slog.Warn("Failed to save checkpoint", "err", err)
	}
}

func findDataFile(entries []remote.Entry) (remote.Entry, bool) {
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(e.Name)) {
		case ".xlsx", ".xls":
			return e, true
		}
	}
	return remote.Entry{}, false
}

// CollectionNotFoundError reports a target collection with no matching
// remote directory. This is a startup-level failure.
type CollectionNotFoundError struct {
	Name string
}

func (e *CollectionNotFoundError) Error() string {
	return "collection not found: " + e.Name
}
