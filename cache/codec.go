package cache

import (
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/git-pkgs/tsmm/internal/core"
)

// formatVersion is bumped whenever the record layout changes. Files written
// with another version fail to decode and are treated as malformed.
const formatVersion = 1

type fileRecord struct {
	_msgpack struct{} `msgpack:",as_array"`

	Version int
	Entries []entryRecord
}

type entryRecord struct {
	_msgpack struct{} `msgpack:",as_array"`

	Namespace      string
	Name           string
	FullName       string
	UUID           string
	PackageURL     string
	Categories     []string
	RatingScore    int64
	IsPinned       bool
	IsDeprecated   bool
	HasNSFWContent bool
	DateUpdated    int64
	Versions       []versionRecord
}

type versionRecord struct {
	_msgpack struct{} `msgpack:",as_array"`

	FullName     string
	Version      string
	Description  string
	Dependencies []string
	DownloadURL  string
	WebsiteURL   string
	Downloads    int64
	FileSize     int64
	DateCreated  int64
	IsActive     bool
}

// Encode writes entries to w in the cache file format.
func Encode(w io.Writer, entries []core.CatalogEntry) error {
	file := fileRecord{
		Version: formatVersion,
		Entries: make([]entryRecord, 0, len(entries)),
	}
	for _, e := range entries {
		rec := entryRecord{
			Namespace:      e.Namespace,
			Name:           e.Name,
			FullName:       e.FullName,
			UUID:           e.UUID,
			PackageURL:     e.PackageURL,
			Categories:     e.Categories,
			RatingScore:    e.RatingScore,
			IsPinned:       e.IsPinned,
			IsDeprecated:   e.IsDeprecated,
			HasNSFWContent: e.HasNSFWContent,
			DateUpdated:    unixNano(e.DateUpdated),
			Versions:       make([]versionRecord, 0, len(e.Versions)),
		}
		for _, v := range e.Versions {
			deps := make([]string, 0, len(v.Dependencies))
			for _, d := range v.Dependencies {
				deps = append(deps, d.String())
			}
			rec.Versions = append(rec.Versions, versionRecord{
				FullName:     v.FullName,
				Version:      v.Version.String(),
				Description:  v.Description,
				Dependencies: deps,
				DownloadURL:  v.DownloadURL,
				WebsiteURL:   v.WebsiteURL,
				Downloads:    v.Downloads,
				FileSize:     v.FileSize,
				DateCreated:  unixNano(v.DateCreated),
				IsActive:     v.IsActive,
			})
		}
		file.Entries = append(file.Entries, rec)
	}

	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&file); err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	return nil
}

// Decode reads entries written by Encode, in the order they were written.
func Decode(r io.Reader) ([]core.CatalogEntry, error) {
	var file fileRecord
	if err := msgpack.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding cache: %w", err)
	}
	if file.Version != formatVersion {
		return nil, fmt.Errorf("decoding cache: unsupported format version %d", file.Version)
	}

	entries := make([]core.CatalogEntry, 0, len(file.Entries))
	for _, rec := range file.Entries {
		e := core.CatalogEntry{
			Namespace:      rec.Namespace,
			Name:           rec.Name,
			FullName:       rec.FullName,
			UUID:           rec.UUID,
			PackageURL:     rec.PackageURL,
			Categories:     rec.Categories,
			RatingScore:    rec.RatingScore,
			IsPinned:       rec.IsPinned,
			IsDeprecated:   rec.IsDeprecated,
			HasNSFWContent: rec.HasNSFWContent,
			DateUpdated:    fromUnixNano(rec.DateUpdated),
			Versions:       make([]core.VersionRecord, 0, len(rec.Versions)),
		}
		for _, v := range rec.Versions {
			version, err := core.ParseVersion(v.Version)
			if err != nil {
				return nil, fmt.Errorf("decoding cache: %s: %w", e.FullName, err)
			}
			var deps []core.DependencyIdent
			for _, s := range v.Dependencies {
				d, err := core.ParseDependencyIdent(s)
				if err != nil {
					return nil, fmt.Errorf("decoding cache: %s: %w", e.FullName, err)
				}
				deps = append(deps, d)
			}
			e.Versions = append(e.Versions, core.VersionRecord{
				FullName:     v.FullName,
				Version:      version,
				Description:  v.Description,
				Dependencies: deps,
				DownloadURL:  v.DownloadURL,
				WebsiteURL:   v.WebsiteURL,
				Downloads:    v.Downloads,
				FileSize:     v.FileSize,
				DateCreated:  fromUnixNano(v.DateCreated),
				IsActive:     v.IsActive,
			})
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
