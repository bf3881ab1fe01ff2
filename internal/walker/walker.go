// Package walker finds the markdown documents to diagram under a directory
// tree or a set of glob patterns.
package walker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxFileSize is the maximum document size to process (1 MB).
const DefaultMaxFileSize int64 = 1 << 20

// FileInfo describes one document found during traversal.
type FileInfo struct {
	Path        string // Absolute path on disk.
	RelPath     string // Slash-separated path relative to the root directory.
	Size        int64
	ContentHash string // SHA-256 hex digest of the file content.
}

// Config controls Walk.
type Config struct {
	RootDir     string
	Include     []string // Glob patterns; empty means DefaultIncludes.
	Exclude     []string
	MaxFileSize int64 // 0 uses DefaultMaxFileSize.
}

// Walk traverses the tree rooted at cfg.RootDir and returns every markdown
// document that passes filtering, sorted by relative path. It skips binary
// and oversized files and honours the root .gitignore.
func Walk(cfg Config) ([]FileInfo, error) {
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}

	include := cfg.Include
	if len(include) == 0 {
		include = DefaultIncludes
	}
	gitignorePatterns := loadGitignore(filepath.Join(root, ".gitignore"))

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if matchesGitignore(relPath, gitignorePatterns) {
			return nil
		}
		if !MatchesInclude(relPath, include) || MatchesExclude(relPath, cfg.Exclude) {
			return nil
		}

		fi, ok := inspect(path, relPath, cfg.MaxFileSize)
		if ok {
			files = append(files, fi)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walker: traversal: %w", err)
	}

	sortFiles(files)
	return files, nil
}

// Glob expands doublestar patterns relative to root and returns the
// matching documents, without duplicates and sorted by relative path.
// Unlike Walk it applies no include filter: a pattern naming a file selects
// it whatever its extension.
func Glob(root string, patterns []string, maxSize int64) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}

	seen := make(map[string]bool)
	var files []FileInfo
	for _, pattern := range patterns {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(absRoot, pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("walker: bad pattern %q: %w", pattern, err)
		}
		for _, path := range matches {
			if seen[path] {
				continue
			}
			seen[path] = true

			relPath, err := filepath.Rel(absRoot, path)
			if err != nil {
				relPath = filepath.Base(path)
			}
			if fi, ok := inspect(path, relPath, maxSize); ok {
				files = append(files, fi)
			}
		}
	}

	sortFiles(files)
	return files, nil
}

// inspect returns the FileInfo of path, or false when the file is too
// large, binary or unreadable.
func inspect(path, relPath string, maxSize int64) (FileInfo, bool) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxSize {
		return FileInfo{}, false
	}
	if isBinary(path) {
		return FileInfo{}, false
	}
	hash, err := hashFile(path)
	if err != nil {
		return FileInfo{}, false
	}
	return FileInfo{
		Path:        path,
		RelPath:     filepath.ToSlash(relPath),
		Size:        info.Size(),
		ContentHash: hash,
	}, true
}

func sortFiles(files []FileInfo) {
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
}

// isBinary reads the first 512 bytes of a file and checks for NUL bytes.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return true
	}
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}

// hashFile computes the SHA-256 digest of the given file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// loadGitignore reads a .gitignore file and returns its non-empty,
// non-comment lines as patterns.
func loadGitignore(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// matchesGitignore checks if a relative path matches any gitignore pattern.
// Patterns without a slash match any path component; others match the
// whole path.
func matchesGitignore(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(strings.TrimSpace(pattern), "/")
		if strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(strings.TrimPrefix(pattern, "/"), normalized); ok {
				return true
			}
			continue
		}
		for _, part := range strings.Split(normalized, "/") {
			if ok, _ := doublestar.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}
