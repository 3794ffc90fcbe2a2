// Package cache stores one catalog snapshot per managed game on disk.
//
// Each snapshot lives in a single file named "{game}_{unix seconds}.bin"
// inside the cache directory. The timestamp embedded in the file name is the
// only record of when the catalog was last refreshed.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/tsmm/internal/core"
)

// Suffix is appended to every cache file name.
const Suffix = ".bin"

// ErrNoCache is returned when no cache file exists for a game.
var ErrNoCache = errors.New("no cache file")

// CacheError is returned when a commit or clean cannot complete.
type CacheError struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// Handle points at a located cache file.
type Handle struct {
	Path string
	Game string

	timestamp time.Time
	stamped   bool
}

// LastUpdated returns the timestamp embedded in the file name. The second
// result is false if the name carries no parseable timestamp.
func (h *Handle) LastUpdated() (time.Time, bool) {
	return h.timestamp, h.stamped
}

// FileName returns the cache file name for game written at ts.
func FileName(game string, ts time.Time) string {
	return game + "_" + strconv.FormatInt(ts.Unix(), 10) + Suffix
}

// ParseFileName splits a cache file name into its game and timestamp. The
// game is everything before the last underscore. ok is false unless the name
// ends in Suffix and has an underscore; stamped is false if the trailing
// segment is not a number.
func ParseFileName(name string) (game string, ts time.Time, stamped bool, ok bool) {
	base, found := strings.CutSuffix(name, Suffix)
	if !found {
		return "", time.Time{}, false, false
	}
	i := strings.LastIndex(base, "_")
	if i < 0 {
		return "", time.Time{}, false, false
	}
	game = base[:i]
	secs, err := strconv.ParseInt(base[i+1:], 10, 64)
	if err != nil {
		return game, time.Time{}, false, true
	}
	return game, time.Unix(secs, 0).UTC(), true, true
}

// LastUpdated parses the timestamp embedded in a cache file path.
func LastUpdated(path string) (time.Time, bool) {
	_, ts, stamped, ok := ParseFileName(filepath.Base(path))
	if !ok {
		return time.Time{}, false
	}
	return ts, stamped
}

// Store reads and writes cache files in a single directory.
type Store struct {
	dir    string
	logger *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report discarded cache files.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore returns a store rooted at dir. The directory is created on the
// first commit.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "cache"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// scan lists every cache file for game, newest first. Files without a
// timestamp sort last. A missing directory yields no files.
func (s *Store) scan(game string) ([]*Handle, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var handles []*Handle
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		g, ts, stamped, ok := ParseFileName(name)
		if !ok || g != game {
			continue
		}
		handles = append(handles, &Handle{
			Path:      filepath.Join(s.dir, name),
			Game:      game,
			timestamp: ts,
			stamped:   stamped,
		})
	}

	sort.SliceStable(handles, func(i, j int) bool {
		a, b := handles[i], handles[j]
		if a.stamped != b.stamped {
			return a.stamped
		}
		return a.timestamp.After(b.timestamp)
	})
	return handles, nil
}

// Locate finds the cache file for game. If several exist the one with the
// newest embedded timestamp wins.
func (s *Store) Locate(game string) (*Handle, bool) {
	handles, err := s.scan(game)
	if err != nil {
		s.logger.Warn("scanning cache directory", "dir", s.dir, "err", err)
		return nil, false
	}
	if len(handles) == 0 {
		return nil, false
	}
	if len(handles) > 1 {
		s.logger.Debug("multiple cache files found", "game", game, "count", len(handles), "using", handles[0].Path)
	}
	return handles[0], true
}

// Path returns the path of the located cache file for game. It fails with
// an error wrapping ErrNoCache if there is none, and with a CacheError if the
// directory cannot be read.
func (s *Store) Path(game string) (string, error) {
	handles, err := s.scan(game)
	if err != nil {
		return "", &CacheError{Op: "scan", Path: s.dir, Err: err}
	}
	if len(handles) == 0 {
		return "", fmt.Errorf("unable to locate a cache for %s: %w", game, ErrNoCache)
	}
	return handles[0].Path, nil
}

// Load reads the cached catalog for game. A missing or unreadable cache
// yields an empty catalog.
func (s *Store) Load(game string) core.Catalog {
	h, ok := s.Locate(game)
	if !ok {
		return core.Catalog{}
	}

	f, err := os.Open(h.Path)
	if err != nil {
		s.logger.Warn("discarding unreadable cache", "path", h.Path, "err", err)
		return core.Catalog{}
	}
	defer func() { _ = f.Close() }()

	entries, err := Decode(f)
	if err != nil {
		s.logger.Warn("discarding malformed cache", "path", h.Path, "err", err)
		return core.Catalog{}
	}
	return core.NewCatalog(entries)
}

// Commit writes catalog as the cache for game stamped with ts, then removes
// any older cache files for the game. The new file is written to a temporary
// name and renamed into place, so a failed commit leaves the previous cache
// intact.
func (s *Store) Commit(game string, catalog core.Catalog, ts time.Time) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &CacheError{Op: "mkdir", Path: s.dir, Err: err}
	}

	old, err := s.scan(game)
	if err != nil {
		return &CacheError{Op: "scan", Path: s.dir, Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, "."+game+".*.partial")
	if err != nil {
		return &CacheError{Op: "create", Path: s.dir, Err: err}
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, catalog.Entries()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &CacheError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &CacheError{Op: "write", Path: tmpPath, Err: err}
	}

	path := filepath.Join(s.dir, FileName(game, ts))
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &CacheError{Op: "rename", Path: path, Err: err}
	}

	for _, h := range old {
		if h.Path == path {
			continue
		}
		if err := os.Remove(h.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &CacheError{Op: "remove", Path: h.Path, Err: err}
		}
	}

	s.logger.Debug("committed cache", "path", path, "entries", len(catalog))
	return nil
}

// Clean removes every cache file for game and reports how many were removed.
func (s *Store) Clean(game string) (int, error) {
	handles, err := s.scan(game)
	if err != nil {
		return 0, &CacheError{Op: "scan", Path: s.dir, Err: err}
	}
	removed := 0
	for _, h := range handles {
		if err := os.Remove(h.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, &CacheError{Op: "remove", Path: h.Path, Err: err}
		}
		removed++
	}
	return removed, nil
}
