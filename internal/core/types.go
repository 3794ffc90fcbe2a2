// Package core provides the shared catalog types and the registry system.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// VersionIdent is a version identifier as published by the registry together
// with its parsed semantic version. Ordering always uses the parsed form.
type VersionIdent struct {
	raw     string
	version *semver.Version
}

// ParseVersion parses a textual version identifier.
func ParseVersion(s string) (VersionIdent, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return VersionIdent{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return VersionIdent{raw: s, version: v}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) VersionIdent {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the identifier exactly as it was parsed.
func (v VersionIdent) String() string {
	return v.raw
}

// Semver returns the parsed semantic version, or nil for the zero value.
func (v VersionIdent) Semver() *semver.Version {
	return v.version
}

// IsZero reports whether v holds no parsed version.
func (v VersionIdent) IsZero() bool {
	return v.version == nil
}

// Compare returns -1, 0 or 1. The zero VersionIdent sorts before every parsed version.
func (v VersionIdent) Compare(other VersionIdent) int {
	switch {
	case v.version == nil && other.version == nil:
		return 0
	case v.version == nil:
		return -1
	case other.version == nil:
		return 1
	}
	return v.version.Compare(other.version)
}

// GreaterThan reports whether v orders strictly after other.
func (v VersionIdent) GreaterThan(other VersionIdent) bool {
	return v.Compare(other) > 0
}

// PackageKey identifies a package by namespace and name. Its canonical text
// form is "namespace/name".
type PackageKey struct {
	Namespace string
	Name      string
}

// NewPackageKey builds a key from an already split namespace and name.
func NewPackageKey(namespace, name string) PackageKey {
	return PackageKey{Namespace: namespace, Name: name}
}

// ParsePackageKey parses "namespace/name". Exactly one slash and two
// non-empty segments are required.
func ParsePackageKey(text string) (PackageKey, error) {
	parts := strings.Split(text, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PackageKey{}, &FormatError{Input: text, Expected: "namespace/name"}
	}
	return PackageKey{Namespace: parts[0], Name: parts[1]}, nil
}

func (k PackageKey) String() string {
	return k.Namespace + "/" + k.Name
}

// MarshalText implements encoding.TextMarshaler so keys can be used as JSON object keys.
func (k PackageKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PackageKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePackageKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// DependencyIdent references a specific version of another package, written
// by the registry as "Namespace-Name-1.2.3".
type DependencyIdent struct {
	Key     PackageKey
	Version VersionIdent
}

// ParseDependencyIdent parses a "Namespace-Name-Version" identifier.
func ParseDependencyIdent(s string) (DependencyIdent, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return DependencyIdent{}, &FormatError{Input: s, Expected: "Namespace-Name-Version"}
	}
	v, err := ParseVersion(parts[2])
	if err != nil {
		return DependencyIdent{}, &FormatError{Input: s, Expected: "Namespace-Name-Version", Err: err}
	}
	return DependencyIdent{Key: NewPackageKey(parts[0], parts[1]), Version: v}, nil
}

func (d DependencyIdent) String() string {
	return d.Key.Namespace + "-" + d.Key.Name + "-" + d.Version.String()
}

// VersionRecord is one published version of a package.
type VersionRecord struct {
	FullName     string
	Version      VersionIdent
	Description  string
	Dependencies []DependencyIdent
	DownloadURL  string
	WebsiteURL   string
	Downloads    int64
	FileSize     int64
	DateCreated  time.Time
	IsActive     bool
}

// CatalogEntry is a cached snapshot of one package's metadata.
type CatalogEntry struct {
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
	DateUpdated    time.Time
	Versions       []VersionRecord
}

// ModpackCategory is the category the registry assigns to modpacks.
const ModpackCategory = "Modpacks"

// Key returns the entry's package key.
func (e *CatalogEntry) Key() PackageKey {
	return NewPackageKey(e.Namespace, e.Name)
}

// TotalDownloads sums downloads across all versions.
func (e *CatalogEntry) TotalDownloads() int64 {
	var total int64
	for _, v := range e.Versions {
		total += v.Downloads
	}
	return total
}

// Latest returns the version with the highest parsed semantic version, or nil.
func (e *CatalogEntry) Latest() *VersionRecord {
	var latest *VersionRecord
	for i := range e.Versions {
		v := &e.Versions[i]
		if v.Version.IsZero() {
			continue
		}
		if latest == nil || v.Version.GreaterThan(latest.Version) {
			latest = v
		}
	}
	return latest
}

// IsModpack reports whether the entry is tagged as a modpack.
func (e *CatalogEntry) IsModpack() bool {
	for _, c := range e.Categories {
		if c == ModpackCategory {
			return true
		}
	}
	return false
}
