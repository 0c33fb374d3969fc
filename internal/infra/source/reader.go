package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bryanwahyu/reqverify/internal/domain/analysis"
)

const (
	DefaultMaxFileBytes  = 800 * 1024
	DefaultMaxTotalChars = 200_000
)

var ErrNotDirectory = errors.New("source: not a directory")

// Extensions lists the file types collected by default.
var Extensions = []string{
	".py", ".js", ".ts", ".java", ".cs", ".cpp", ".c", ".h", ".hpp", ".go",
	".rb", ".php", ".swift", ".kt", ".rs", ".m", ".mm", ".scala",
}

// Options bounds a read. Zero values take the defaults.
type Options struct {
	MaxFileBytes  int64
	MaxTotalChars int
	Extensions    []string
	Log           *slog.Logger
}

// Stats describes what a read skipped.
type Stats struct {
	Files      int
	TotalChars int
	SkippedBig int
	Truncated  bool
}

// Read walks dir and collects supported files. Files above MaxFileBytes are
// skipped; the walk stops before the file that would push the collected
// character count past MaxTotalChars.
func Read(dir string, opts Options) ([]analysis.SourceFile, Stats, error) {
	opts = opts.withDefaults()
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%w: %v", ErrNotDirectory, err)
	}
	if !fi.IsDir() {
		return nil, Stats{}, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}

	var (
		files = []analysis.SourceFile{}
		st    Stats
	)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			opts.Log.Warn("walk error", "path", path, "error", err)
			return nil
		}
		// Skip VCS & dependency dirs
		if d.IsDir() {
			if path != dir && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := exts[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			opts.Log.Warn("stat failed", "path", path, "error", err)
			return nil
		}
		if info.Size() > opts.MaxFileBytes {
			opts.Log.Info("skipping large file", "path", path, "kb", info.Size()/1024)
			st.SkippedBig++
			return nil
		}

		b, err := os.ReadFile(path)
		if err != nil {
			opts.Log.Warn("failed reading file", "path", path, "error", err)
			return nil
		}
		content := strings.ToValidUTF8(string(b), "")
		n := utf8.RuneCountInString(content)
		if st.TotalChars+n > opts.MaxTotalChars {
			opts.Log.Info("reached max total code chars, truncating", "limit", opts.MaxTotalChars)
			st.Truncated = true
			return filepath.SkipAll
		}
		st.TotalChars += n
		files = append(files, analysis.SourceFile{Path: path, Content: content})
		return nil
	})
	if err != nil {
		return nil, st, err
	}
	st.Files = len(files)
	opts.Log.Info("collected source files", "count", st.Files, "chars", st.TotalChars)
	return files, st, nil
}

func skipDir(name string) bool {
	switch name {
	case ".git", ".hg", ".svn", "node_modules", "vendor", "target", "build", ".next", ".cache", "__pycache__", ".venv":
		return true
	}
	return false
}

func (o Options) withDefaults() Options {
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = DefaultMaxFileBytes
	}
	if o.MaxTotalChars <= 0 {
		o.MaxTotalChars = DefaultMaxTotalChars
	}
	if len(o.Extensions) == 0 {
		o.Extensions = Extensions
	}
	if o.Log == nil {
		o.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
