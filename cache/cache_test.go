package cache

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/tsmm/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), WithLogger(log.New(io.Discard)))
}

func catalogOf(entries ...core.CatalogEntry) core.Catalog {
	return core.NewCatalog(entries)
}

func entry(ns, name string, versions ...string) core.CatalogEntry {
	e := core.CatalogEntry{Namespace: ns, Name: name, FullName: ns + "-" + name}
	for _, v := range versions {
		e.Versions = append(e.Versions, core.VersionRecord{
			FullName: ns + "-" + name + "-" + v,
			Version:  core.MustParseVersion(v),
		})
	}
	return e
}

func TestParseFileName(t *testing.T) {
	tests := []struct {
		name    string
		game    string
		unix    int64
		stamped bool
		ok      bool
	}{
		{"valheim_1700000000.bin", "valheim", 1700000000, true, true},
		{"lethal-company_42.bin", "lethal-company", 42, true, true},
		{"some_game_42.bin", "some_game", 42, true, true},
		{"valheim_abc.bin", "valheim", 0, false, true},
		{"valheim_1700000000", "", 0, false, false},
		{"valheim_notes.txt", "", 0, false, false},
		{"valheim.bin", "", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game, ts, stamped, ok := ParseFileName(tt.name)
			if ok != tt.ok || stamped != tt.stamped || game != tt.game {
				t.Fatalf("ParseFileName(%q) = %q, %v, %v; want %q, %v, %v", tt.name, game, stamped, ok, tt.game, tt.stamped, tt.ok)
			}
			if stamped && ts.Unix() != tt.unix {
				t.Errorf("timestamp = %d, want %d", ts.Unix(), tt.unix)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("valve", time.Unix(1000, 0)); got != "valve_1000.bin" {
		t.Errorf("FileName = %q, want %q", got, "valve_1000.bin")
	}
}

func TestLocateMissingDirectory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "does-not-exist"), WithLogger(log.New(io.Discard)))
	if _, ok := s.Locate("valve"); ok {
		t.Error("expected no cache in missing directory")
	}
	if c := s.Load("valve"); len(c) != 0 {
		t.Errorf("Load = %d entries, want 0", len(c))
	}
	if _, err := s.Path("valve"); !errors.Is(err, ErrNoCache) {
		t.Errorf("Path error = %v, want ErrNoCache", err)
	}
}

func TestCommitReplacesPrevious(t *testing.T) {
	s := newTestStore(t)
	first := catalogOf(entry("AuthorA", "ModX", "1.0.0"))
	second := catalogOf(entry("AuthorB", "ModY", "2.0.0"), entry("AuthorC", "ModZ", "0.1.0"))

	if err := s.Commit("valve", first, time.Unix(1000, 0)); err != nil {
		t.Fatalf("first Commit failed: %v", err)
	}
	if err := s.Commit("valve", second, time.Unix(2000, 0)); err != nil {
		t.Fatalf("second Commit failed: %v", err)
	}

	files, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name())
		}
		t.Fatalf("expected exactly one file, got %v", names)
	}

	h, ok := s.Locate("valve")
	if !ok {
		t.Fatal("Locate found nothing")
	}
	ts, stamped := h.LastUpdated()
	if !stamped || ts.Unix() != 2000 {
		t.Errorf("LastUpdated = %v, %v; want 2000", ts, stamped)
	}

	loaded := s.Load("valve")
	if len(loaded) != 2 {
		t.Fatalf("Load = %d entries, want 2", len(loaded))
	}
	if _, ok := loaded.Get(core.NewPackageKey("AuthorA", "ModX")); ok {
		t.Error("entry from the previous commit survived")
	}
	if e, ok := loaded.Get(core.NewPackageKey("AuthorB", "ModY")); !ok || e.Versions[0].Version.String() != "2.0.0" {
		t.Errorf("AuthorB/ModY = %+v, %v", e, ok)
	}
}

func TestCommitSameTimestamp(t *testing.T) {
	s := newTestStore(t)
	ts := time.Unix(1000, 0)
	if err := s.Commit("valve", catalogOf(entry("A", "One", "1.0.0")), ts); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit("valve", catalogOf(entry("B", "Two", "1.0.0")), ts); err != nil {
		t.Fatal(err)
	}
	loaded := s.Load("valve")
	if _, ok := loaded.Get(core.NewPackageKey("B", "Two")); !ok || len(loaded) != 1 {
		t.Errorf("Load = %v, want only B/Two", loaded)
	}
}

func TestCommitLeavesOtherGames(t *testing.T) {
	s := newTestStore(t)
	if err := s.Commit("valheim", catalogOf(entry("A", "One", "1.0.0")), time.Unix(1000, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit("valve", catalogOf(entry("B", "Two", "1.0.0")), time.Unix(2000, 0)); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Locate("valheim"); !ok {
		t.Error("committing valve removed the valheim cache")
	}
}

func TestLocateNewestWins(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"valve_1000.bin", "valve_3000.bin", "valve_2000.bin", "valve_junk.bin", "other_9000.bin"} {
		if err := os.WriteFile(filepath.Join(s.Dir(), name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	h, ok := s.Locate("valve")
	if !ok {
		t.Fatal("Locate found nothing")
	}
	if filepath.Base(h.Path) != "valve_3000.bin" {
		t.Errorf("Locate = %s, want valve_3000.bin", filepath.Base(h.Path))
	}

	n, err := s.Clean("valve")
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Clean removed %d files, want 4", n)
	}
	if _, ok := s.Locate("other"); !ok {
		t.Error("Clean removed another game's cache")
	}
}

func TestUnparseableTimestamp(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Dir(), "valve_notanumber.bin")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	h, ok := s.Locate("valve")
	if !ok {
		t.Fatal("file with bad timestamp should still be located")
	}
	if _, stamped := h.LastUpdated(); stamped {
		t.Error("LastUpdated should report no timestamp")
	}
	if _, stamped := LastUpdated(path); stamped {
		t.Error("LastUpdated(path) should report no timestamp")
	}
	if c := s.Load("valve"); len(c) != 0 {
		t.Errorf("Load of malformed file = %d entries, want 0", len(c))
	}
}

func TestLoadMalformed(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(filepath.Join(s.Dir(), "valve_1000.bin"), []byte{0xc1, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}
	if c := s.Load("valve"); c == nil || len(c) != 0 {
		t.Errorf("Load = %v, want empty catalog", c)
	}
}

func TestCommitUnwritableDirectory(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(filepath.Join(blocker, "cache"), WithLogger(log.New(io.Discard)))
	err := s.Commit("valve", catalogOf(), time.Unix(1000, 0))

	var cacheErr *CacheError
	if !errors.As(err, &cacheErr) {
		t.Fatalf("Commit = %v, want CacheError", err)
	}
	if cacheErr.Op != "mkdir" {
		t.Errorf("Op = %q, want mkdir", cacheErr.Op)
	}
}

func TestCommitLeavesNoPartialFiles(t *testing.T) {
	s := newTestStore(t)
	if err := s.Commit("valve", catalogOf(entry("A", "One", "1.0.0")), time.Unix(1000, 0)); err != nil {
		t.Fatal(err)
	}
	matches, err := filepath.Glob(filepath.Join(s.Dir(), ".*.partial"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestForeignFilesSurvive(t *testing.T) {
	s := newTestStore(t)
	notes := filepath.Join(s.Dir(), "valve_notes.txt")
	if err := os.WriteFile(notes, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Locate("valve"); ok {
		t.Error("Locate claimed a file without the cache suffix")
	}
	if err := s.Commit("valve", catalogOf(entry("A", "One", "1.0.0")), time.Unix(1000, 0)); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if _, err := os.Stat(notes); err != nil {
		t.Errorf("Commit removed a foreign file: %v", err)
	}
	h, ok := s.Locate("valve")
	if !ok || filepath.Base(h.Path) != "valve_1000.bin" {
		t.Errorf("Locate = %v, %v; want valve_1000.bin", h, ok)
	}

	n, err := s.Clean("valve")
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Clean removed %d files, want 1", n)
	}
	if _, err := os.Stat(notes); err != nil {
		t.Errorf("Clean removed a foreign file: %v", err)
	}
}

func TestPathUnreadableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(blocker, WithLogger(log.New(io.Discard)))
	_, err := s.Path("valve")

	var cacheErr *CacheError
	if !errors.As(err, &cacheErr) || cacheErr.Op != "scan" {
		t.Fatalf("Path = %v, want scan CacheError", err)
	}
	if errors.Is(err, ErrNoCache) {
		t.Error("an unreadable directory should not be reported as a missing cache")
	}
}
