package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/Norgate-AV/llmconv/internal/errors"
)

// Fingerprint returns the hex SHA-256 digest of raw content
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashFile streams path through SHA-256. The digest matches Fingerprint of
// the same bytes.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrRead, "failed to open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, errors.ErrRead, "failed to read %s", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Key builds the result cache key for a source path and its fingerprint.
// Paths are absolute, so the key is unique per file and content.
func Key(sourcePath, fingerprint string) string {
	return sourcePath + ":" + fingerprint
}
