package fs

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"ragapi/internal/domain"
)

// Loader collects document files under a root directory, filtered by
// doublestar include/exclude patterns, and turns them into Documents
// with source metadata attached.
type Loader struct {
	includes []string
	excludes []string
}

func NewLoader(includes, excludes []string) *Loader {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Loader{
		includes: includes,
		excludes: excludes,
	}
}

// List returns the matching file paths under root, in walk order.
func (l *Loader) List(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if l.shouldExclude(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if l.shouldInclude(relPath) && !l.shouldExclude(relPath) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// Read loads a single file as a Document. The relative path is kept
// in metadata as the citation source.
func (l *Loader) Read(root, path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}

	source := path
	if rel, err := filepath.Rel(root, path); err == nil {
		source = rel
	}

	return domain.Document{
		Content:  string(data),
		Metadata: map[string]string{"source": source},
	}, nil
}

func (l *Loader) shouldInclude(path string) bool {
	for _, pattern := range l.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (l *Loader) shouldExclude(path string) bool {
	for _, pattern := range l.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
