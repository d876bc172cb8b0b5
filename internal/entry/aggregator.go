package entry

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/polycrystal/internal/errors"
	"git.home.luguber.info/inful/polycrystal/internal/logfields"
)

// Aggregator merges every declaration file directly inside a directory into one desired set.
type Aggregator struct {
	dir string
}

// NewAggregator creates an aggregator for dir.
func NewAggregator(dir string) *Aggregator {
	return &Aggregator{dir: dir}
}

// Dir returns the directory the aggregator reads.
func (a *Aggregator) Dir() string { return a.dir }

// Desired reads and merges all entry files. Subdirectories, non-regular files,
// dotfiles and editor backups are skipped. A single malformed file fails the
// whole read, because applying a partial desired set would remove packages.
func (a *Aggregator) Desired() (Set, error) {
	dirEntries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "cannot list entries directory").
			Fatal().
			WithContext("dir", a.dir).
			Build()
	}

	desired := NewSet()
	for _, de := range dirEntries {
		if !de.Type().IsRegular() || ignored(de.Name()) {
			continue
		}
		path := filepath.Join(a.dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "cannot read entry file").
				Fatal().
				WithContext("file", path).
				Build()
		}
		entries, err := Decode(data, FormatFor(de.Name()))
		if err != nil {
			return nil, errors.ParseError("malformed entry file").
				WithCause(err).
				WithContext("file", path).
				Build()
		}
		slog.Debug("Read entry file", logfields.Path(path), slog.Int("entries", len(entries)))
		for _, e := range entries {
			desired.Add(e)
		}
	}
	return desired, nil
}

func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}
