package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Norgate-AV/llmconv/internal/cache"
	"github.com/Norgate-AV/llmconv/internal/errors"
	"github.com/Norgate-AV/llmconv/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLimiter fails every acquire with err
type stubLimiter struct{ err error }

func (s stubLimiter) Acquire(ctx context.Context) (ratelimit.Slot, error) {
	return ratelimit.Slot{}, s.err
}

func newTestPool(t *testing.T) *ratelimit.Pool {
	t.Helper()

	pool, err := ratelimit.NewPool([]string{"k1"}, 1000)
	require.NoError(t, err)
	return pool
}

// detectJobs writes n sources and returns their jobs in discovery order
func detectJobs(t *testing.T, ws *workspace, n int) []Job {
	t.Helper()

	var files []string
	for i := 0; i < n; i++ {
		files = append(files, ws.write(fmt.Sprintf("f%02d.cpp", i), fmt.Sprintf("int v%d;", i)))
	}

	return NewDetector(ws.source, ws.target, CppToPython, cache.Open(ws.cache)).Detect(files).Jobs
}

func TestDispatcher_CheckpointsEveryFifthSuccess(t *testing.T) {
	ws := newWorkspace(t)
	jobs := detectJobs(t, ws, 12)
	results := cache.Open(ws.cache)

	onDisk := map[int]int{}
	conv := &fakeConverter{hook: func(n int, _ string) {
		// Before call n, n-1 jobs have succeeded
		onDisk[n] = cache.Open(ws.cache).Len()
	}}

	d := NewDispatcher(conv, newTestPool(t), results, Options{Workers: 1, CheckpointEvery: 5, Profile: CppToPython})
	result := d.Run(context.Background(), jobs)

	assert.Equal(t, 12, result.Converted)

	// At most four successes are ever missing from disk
	for n, persisted := range onDisk {
		done := n - 1
		assert.Equal(t, done-done%5, persisted, "before call %d", n)
		assert.LessOrEqual(t, done-persisted, 4)
	}

	// The final flush persists the remainder
	assert.Equal(t, 12, ws.cacheLen())
}

func TestDispatcher_CrashBeforeFinalFlush(t *testing.T) {
	ws := newWorkspace(t)
	jobs := detectJobs(t, ws, 8)

	// Simulate a crash: the process stops after the 8th conversion, so only
	// the checkpoints reach disk. Keep a copy of the file as it was then.
	var snapshot []byte
	conv := &fakeConverter{hook: func(n int, _ string) {
		if n == 8 {
			snapshot, _ = os.ReadFile(ws.cache)
		}
	}}

	d := NewDispatcher(conv, newTestPool(t), cache.Open(ws.cache), Options{Workers: 1, CheckpointEvery: 5, Profile: CppToPython})
	d.Run(context.Background(), jobs)

	require.NotNil(t, snapshot)
	crashed := filepath.Join(t.TempDir(), "crashed.json")
	require.NoError(t, os.WriteFile(crashed, snapshot, 0o644))

	restart := NewDetector(ws.source, ws.target, CppToPython, cache.Open(crashed)).Detect(filesOf(jobs))
	assert.Len(t, restart.Jobs, 3, "7 successes before the crash, 5 checkpointed")
	assert.LessOrEqual(t, len(restart.Jobs), 4)
}

func filesOf(jobs []Job) []string {
	files := make([]string, len(jobs))
	for i, j := range jobs {
		files[i] = j.SourcePath
	}
	return files
}

func TestDispatcher_CancelStopsNewJobs(t *testing.T) {
	ws := newWorkspace(t)
	jobs := detectJobs(t, ws, 6)
	results := cache.Open(ws.cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conv := &fakeConverter{hook: func(n int, _ string) {
		if n == 2 {
			cancel()
		}
	}}

	d := NewDispatcher(conv, newTestPool(t), results, Options{Workers: 1, CheckpointEvery: 5, Profile: CppToPython})
	result := d.Run(ctx, jobs)

	assert.Len(t, conv.Calls(), 2, "no job starts after cancellation")
	assert.Equal(t, 2, result.Converted, "the in-flight job completes")
	assert.Equal(t, 4, result.Cancelled)
	assert.Equal(t, 0, result.Failed)

	// The final flush ran despite cancellation
	assert.Equal(t, 2, ws.cacheLen())
}

func TestDispatcher_ReadFailure(t *testing.T) {
	ws := newWorkspace(t)
	jobs := detectJobs(t, ws, 3)
	require.NoError(t, os.Remove(jobs[1].SourcePath))

	conv := &fakeConverter{}
	d := NewDispatcher(conv, newTestPool(t), cache.Open(ws.cache), Options{Workers: 2, Profile: CppToPython})
	result := d.Run(context.Background(), jobs)

	assert.Equal(t, 2, result.Converted)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, conv.Calls(), 2)
}

func TestDispatcher_WriteFailure(t *testing.T) {
	ws := newWorkspace(t)
	jobs := detectJobs(t, ws, 2)

	// Occupy the first target's directory slot with a file
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	jobs[0].TargetPath = filepath.Join(blocker, "f00.py")

	results := cache.Open(ws.cache)
	d := NewDispatcher(&fakeConverter{}, newTestPool(t), results, Options{Workers: 2, Profile: CppToPython})
	result := d.Run(context.Background(), jobs)

	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, results.Has(jobs[0].CacheKey), "nothing is recorded without an artifact")
	assert.True(t, results.Has(jobs[1].CacheKey))
}

func TestDispatcher_LimiterCancellation(t *testing.T) {
	ws := newWorkspace(t)
	jobs := detectJobs(t, ws, 3)

	limiter := stubLimiter{err: errors.New(errors.ErrCancelled, "stopped")}
	conv := &fakeConverter{}

	d := NewDispatcher(conv, limiter, cache.Open(ws.cache), Options{Workers: 2, Profile: CppToPython})
	result := d.Run(context.Background(), jobs)

	assert.Empty(t, conv.Calls())
	assert.Equal(t, 3, result.Cancelled)
	assert.Equal(t, 0, result.Failed)
}

func TestDispatcher_RecordsJournal(t *testing.T) {
	ws := newWorkspace(t)
	jobs := detectJobs(t, ws, 3)

	journal, err := cache.OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer journal.Close()

	conv := &fakeConverter{fail: map[string]bool{"f01.cpp": true}}
	d := NewDispatcher(conv, newTestPool(t), cache.Open(ws.cache), Options{Workers: 2, Profile: CppToPython, RunID: "run-42"}).
		WithJournal(journal)
	d.Run(context.Background(), jobs)

	failed, err := journal.Failures()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, jobs[1].SourcePath, failed[0].SourceFile)
	assert.Equal(t, "run-42", failed[0].RunID)
	assert.Equal(t, string(errors.ErrAPI), failed[0].Code)
	assert.Contains(t, failed[0].Error, "forced failure")

	ok, err := journal.Get(jobs[0].SourcePath)
	require.NoError(t, err)
	require.NotNil(t, ok)
	assert.Equal(t, cache.StatusConverted, ok.Status)
	assert.Equal(t, jobs[0].CacheKey, ok.CacheKey)
}

func TestDispatcher_NoJobs(t *testing.T) {
	ws := newWorkspace(t)

	d := NewDispatcher(&fakeConverter{}, newTestPool(t), cache.Open(ws.cache), Options{})
	result := d.Run(context.Background(), nil)

	assert.Equal(t, Result{}, result)
	assert.FileExists(t, ws.cache)
}
