package store

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sort"
)

// HashFile returns the hex SHA-256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ComputeSnapshotHash combines per-file hashes keyed by path into one
// deterministic hash. Map iteration order does not affect the result.
func ComputeSnapshotHash(fileHashes map[string]string) string {
	paths := make([]string, 0, len(fileHashes))
	for p := range fileHashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s:%s\n", p, fileHashes[p])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
