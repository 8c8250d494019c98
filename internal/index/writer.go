// Package index maintains the three persisted catalog views in Redis:
//
//	catalog:collection:{id} — full record list for one collection (source of truth)
//	catalog:item:{id}       — flat lookup entry per image-bearing record
//	catalog:index           — array of collection summaries for browsing
//
// The per-collection list is always written first; a crash between views is
// recoverable by recommitting from the list on the next run.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vizzaro-home/wallsync/internal/catalog"
)

const (
	indexKey             = "catalog:index"
	itemKeyPrefix        = "catalog:item:"
	collectionKeyPrefix  = "catalog:collection:"
	dataFileKeyPrefix    = "catalog:datafile:"
	defaultFlatChunkSize = 1000
)

func ItemKey(id string) string       { return itemKeyPrefix + id }
func CollectionKey(id string) string { return collectionKeyPrefix + id }
func DataFileKey(id string) string   { return dataFileKeyPrefix + id }

type Writer struct {
	rdb       redis.Cmdable
	chunkSize int
}

func NewWriter(rdb redis.Cmdable, chunkSize int) *Writer {
	if chunkSize <= 0 {
		chunkSize = defaultFlatChunkSize
	}
	return &Writer{rdb: rdb, chunkSize: chunkSize}
}

// Commit overwrites the collection's record list, upserts its image-bearing
// records into the flat index in bounded chunks, and replaces its entry in
// the summary index. Ordering matters and must not be changed.
func (w *Writer) Commit(ctx context.Context, collectionID string, records []catalog.ProductRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", collectionID, err)
	}
	if err := w.rdb.Set(ctx, CollectionKey(collectionID), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write collection list %s: %w", collectionID, err)
	}

	flat := ImageBearing(records)
	for start := 0; start < len(flat); start += w.chunkSize {
		end := min(start+w.chunkSize, len(flat))
		pipe := w.rdb.Pipeline()
		for _, r := range flat[start:end] {
			b, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to encode record %s: %w", r.ID, err)
			}
			pipe.Set(ctx, ItemKey(r.ID), b, 0)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to write flat index chunk for %s: %w", collectionID, err)
		}
	}

	return w.upsertSummary(ctx, catalog.NewSummary(collectionID, records))
}

func (w *Writer) upsertSummary(ctx context.Context, s catalog.Summary) error {
	var summaries []catalog.Summary
	raw, err := w.rdb.Get(ctx, indexKey).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &summaries); err != nil {
			return fmt.Errorf("corrupt summary index: %w", err)
		}
	case errors.Is(err, redis.Nil):
	default:
		return fmt.Errorf("failed to read summary index: %w", err)
	}

	payload, err := json.Marshal(ReplaceSummary(summaries, s))
	if err != nil {
		return fmt.Errorf("failed to encode summary index: %w", err)
	}
	if err := w.rdb.Set(ctx, indexKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write summary index: %w", err)
	}
	return nil
}

// CollectionRecords loads a previously committed record list, or nil if the
// collection has never been committed.
func (w *Writer) CollectionRecords(ctx context.Context, collectionID string) ([]catalog.ProductRecord, error) {
	raw, err := w.rdb.Get(ctx, CollectionKey(collectionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", collectionID, err)
	}
	var records []catalog.ProductRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("corrupt collection list %s: %w", collectionID, err)
	}
	return records, nil
}

// DataChecksum returns the fingerprint of the data file the collection was
// last committed from, or "" if unknown. Stored next to the catalog views so
// it survives checkpoint deletion at the end of a run.
func (w *Writer) DataChecksum(ctx context.Context, collectionID string) (string, error) {
	sum, err := w.rdb.Get(ctx, DataFileKey(collectionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read data checksum for %s: %w", collectionID, err)
	}
	return sum, nil
}

// SetDataChecksum records the data file fingerprint after a full commit.
func (w *Writer) SetDataChecksum(ctx context.Context, collectionID, checksum string) error {
	if err := w.rdb.Set(ctx, DataFileKey(collectionID), checksum, 0).Err(); err != nil {
		return fmt.Errorf("failed to write data checksum for %s: %w", collectionID, err)
	}
	return nil
}

// AllItems streams every flat-index entry, used by the export command.
func (w *Writer) AllItems(ctx context.Context) ([]catalog.ProductRecord, error) {
	var records []catalog.ProductRecord
	iter := w.rdb.Scan(ctx, 0, itemKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := w.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", iter.Val(), err)
		}
		var r catalog.ProductRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("corrupt entry %s: %w", iter.Val(), err)
		}
		records = append(records, r)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("flat index scan failed: %w", err)
	}
	return records, nil
}

// ImageBearing filters the records that belong in the flat index. Records
// without images stay in their collection list only.
func ImageBearing(records []catalog.ProductRecord) []catalog.ProductRecord {
	var out []catalog.ProductRecord
	for _, r := range records {
		if r.HasImage && strings.TrimSpace(r.ID) != "" {
			out = append(out, r)
		}
	}
	return out
}

// ReplaceSummary upserts s into the summary list, replacing any prior entry
// with the same id rather than duplicating it.
func ReplaceSummary(summaries []catalog.Summary, s catalog.Summary) []catalog.Summary {
	for i, existing := range summaries {
		if existing.ID == s.ID {
			summaries[i] = s
			return summaries
		}
	}
	return append(summaries, s)
}
