package convert

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Norgate-AV/llmconv/internal/cache"
	"github.com/Norgate-AV/llmconv/internal/errors"
)

const dateLayout = "2006-01-02 15:04:05"

// TargetPath mirrors sourcePath from sourceRoot into targetRoot and swaps
// its extension for ext
func TargetPath(sourceRoot, targetRoot, sourcePath, ext string) (string, error) {
	rel, err := filepath.Rel(sourceRoot, sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve relative path: %w", err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", sourcePath, sourceRoot)
	}

	base := filepath.Base(rel)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	return filepath.Join(targetRoot, filepath.Dir(rel), stem+ext), nil
}

// RenderArtifact prefixes converted content with its provenance header
func RenderArtifact(prefix, sourcePath, content string, at time.Time) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "%s Converted from %s\n", prefix, filepath.Base(sourcePath))
	fmt.Fprintf(&b, "%s Original path: %s\n", prefix, sourcePath)
	fmt.Fprintf(&b, "%s Conversion date: %s\n\n", prefix, at.Format(dateLayout))
	b.WriteString(content)

	if !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}

	return []byte(b.String())
}

// WriteArtifact renders and durably writes the artifact for job
func WriteArtifact(profile Profile, job Job, content string, at time.Time) error {
	data := RenderArtifact(profile.CommentPrefix, job.SourcePath, content, at)

	if err := cache.WriteAtomic(job.TargetPath, data, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrWrite, "failed to write %s", job.TargetPath)
	}

	return nil
}
