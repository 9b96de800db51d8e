// Package cache persists conversion progress between runs.
//
// Two stores live here:
//
//  1. Results, the JSON result cache. It records which (source path, content
//     fingerprint) pairs have already produced an artifact, and is the only
//     authority for skipping work on the next run.
//  2. Journal, a BoltDB store of the last outcome per source file, used for
//     reporting (status, failures) only. It never decides what gets skipped.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Norgate-AV/llmconv/internal/errors"
	"github.com/Norgate-AV/llmconv/internal/logging"
	"github.com/rs/zerolog"
)

// document is the on-disk shape of the result cache
type document struct {
	ConvertedFiles []string `json:"converted_files"`
	Timestamp      float64  `json:"timestamp"`
}

// Results is the set of cache keys whose artifacts have been written.
// All access goes through its methods; the set itself is never exposed.
type Results struct {
	path string

	mu        sync.Mutex
	entries   map[string]struct{}
	lastFlush time.Time

	// serializes writers so snapshots reach disk in the order they were taken
	flushMu sync.Mutex

	logger zerolog.Logger
}

// Open loads the result cache at path. A missing file yields an empty cache;
// an unreadable or corrupt one also yields an empty cache with a warning.
func Open(path string) *Results {
	r := &Results{
		path:    path,
		entries: make(map[string]struct{}),
		logger:  logging.GetLogger("cache"),
	}

	if err := r.load(); err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("Failed to load cache, starting empty")
		r.entries = make(map[string]struct{})
		r.lastFlush = time.Time{}
	}

	return r
}

func (r *Results) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return errors.Wrap(err, errors.ErrCacheIO, "failed to read cache")
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, errors.ErrCacheIO, "failed to parse cache")
	}

	for _, key := range doc.ConvertedFiles {
		r.entries[key] = struct{}{}
	}

	if doc.Timestamp > 0 {
		r.lastFlush = fromEpoch(doc.Timestamp)
	}

	r.logger.Info().Int("entries", len(r.entries)).Msg("Loaded cache")
	return nil
}

// Path returns the file backing the cache
func (r *Results) Path() string {
	return r.path
}

// Has reports whether key has been recorded
func (r *Results) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[key]
	return ok
}

// Record marks key as converted. Callers must only record a key after its
// artifact has been written.
func (r *Results) Record(key string) {
	r.mu.Lock()
	r.entries[key] = struct{}{}
	r.mu.Unlock()
}

// Len returns the number of recorded keys
func (r *Results) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// LastFlush returns the timestamp of the last successful flush, or of the
// loaded file
func (r *Results) LastFlush() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastFlush
}

// Flush writes the full current set plus a timestamp to disk atomically
func (r *Results) Flush() error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	now := time.Now()

	r.mu.Lock()
	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	r.mu.Unlock()

	sort.Strings(keys)

	data, err := json.MarshalIndent(document{
		ConvertedFiles: keys,
		Timestamp:      toEpoch(now),
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCacheIO, "failed to encode cache")
	}

	if err := WriteAtomic(r.path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCacheIO, "failed to write cache")
	}

	r.mu.Lock()
	r.lastFlush = now
	r.mu.Unlock()

	r.logger.Debug().Int("entries", len(keys)).Msg("Flushed cache")
	return nil
}

// Clear removes the cache file and forgets every entry
func (r *Results) Clear() error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	r.entries = make(map[string]struct{})
	r.lastFlush = time.Time{}
	r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCacheIO, "failed to remove cache")
	}

	return nil
}

func (r *Results) String() string {
	return fmt.Sprintf("cache(%s, %d entries)", r.path, r.Len())
}

func toEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromEpoch(secs float64) time.Time {
	return time.Unix(0, int64(secs*float64(time.Second)))
}
