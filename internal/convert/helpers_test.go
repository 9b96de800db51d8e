package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/Norgate-AV/llmconv/internal/cache"
	"github.com/Norgate-AV/llmconv/internal/config"
	"github.com/Norgate-AV/llmconv/internal/ratelimit"
	"github.com/stretchr/testify/require"
)

// fakeConverter records calls and returns canned Python
type fakeConverter struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool

	// hook runs inside Convert with the 1-based call number
	hook func(n int, filename string)
}

func (f *fakeConverter) Convert(ctx context.Context, credential, filename, source string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, filename)
	n := len(f.calls)
	hook := f.hook
	shouldFail := f.fail[filename]
	f.mu.Unlock()

	if hook != nil {
		hook(n, filename)
	}

	if shouldFail {
		return "", fmt.Errorf("forced failure for %s", filename)
	}

	return "# python for " + filename + "\nprint(1)", nil
}

func (f *fakeConverter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

// workspace is a source tree, target tree and cache file under one temp dir
type workspace struct {
	t      *testing.T
	source string
	target string
	cache  string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	root := t.TempDir()
	ws := &workspace{
		t:      t,
		source: filepath.Join(root, "src"),
		target: filepath.Join(root, "out"),
		cache:  filepath.Join(root, ".conversion_cache.json"),
	}
	require.NoError(t, os.MkdirAll(ws.source, 0o755))

	return ws
}

func (ws *workspace) write(name, content string) string {
	ws.t.Helper()

	path := filepath.Join(ws.source, filepath.FromSlash(name))
	require.NoError(ws.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(ws.t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func (ws *workspace) targetFor(name string) string {
	path, err := TargetPath(ws.source, ws.target, filepath.Join(ws.source, filepath.FromSlash(name)), ".py")
	require.NoError(ws.t, err)
	return path
}

func (ws *workspace) config(workers int) *config.Config {
	return &config.Config{
		SourceDir:        ws.source,
		TargetDir:        ws.target,
		CacheFile:        ws.cache,
		Workers:          workers,
		RPM:              1000,
		APIKeys:          []string{"k1", "k2"},
		CheckpointEvery:  config.DefaultCheckpointEvery,
		SourceExtensions: config.DefaultSourceExtensions,
	}
}

// run executes one pipeline run with a fresh cache loaded from disk
func (ws *workspace) run(ctx context.Context, conv Converter, workers int) Summary {
	ws.t.Helper()

	pool, err := ratelimit.NewPool([]string{"k1", "k2"}, 1000)
	require.NoError(ws.t, err)

	results := cache.Open(ws.cache)
	summary, err := NewPipeline(ws.config(workers), CppToPython, conv, pool, results).Run(ctx)
	require.NoError(ws.t, err)

	return summary
}

func (ws *workspace) cacheLen() int {
	return cache.Open(ws.cache).Len()
}
