// Package inputsource implements ingestdomain.InputSource for the two
// wired backends: a filesystem glob and an S3-compatible object store.
package inputsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LocalSource enumerates files matching a glob pattern on the local
// filesystem. File IDs are the matched paths themselves, so List and Read
// need no separate index.
type LocalSource struct {
	glob string
}

// NewLocalSource returns a LocalSource for glob (e.g. "./data/*.pdf").
// The pattern is expanded with filepath.Glob, which has no "**" syntax;
// any directory the pattern matches is walked recursively by List.
func NewLocalSource(glob string) *LocalSource {
	return &LocalSource{glob: glob}
}

// List returns every path matching the configured glob, sorted for
// deterministic run ordering.
func (s *LocalSource) List(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob(s.glob)
	if err != nil {
		return nil, fmt.Errorf("inputsource: invalid glob %q: %w", s.glob, err)
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if info.IsDir() {
			err := filepath.Walk(m, func(path string, fi os.FileInfo, err error) error {
				if err != nil || fi.IsDir() {
					return nil
				}
				files = append(files, path)
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// Read loads fileID's bytes. The source URL is a file:// URL for citation
// and artifact-manifest purposes.
func (s *LocalSource) Read(ctx context.Context, fileID string) (string, []byte, string, error) {
	data, err := os.ReadFile(fileID)
	if err != nil {
		return "", nil, "", fmt.Errorf("inputsource: read %q: %w", fileID, err)
	}
	abs, err := filepath.Abs(fileID)
	if err != nil {
		abs = fileID
	}
	return filepath.Base(fileID), data, "file://" + abs, nil
}
