package core

import (
	"fmt"
	"sort"
)

// Catalog maps package keys to their cached entries for one managed game.
type Catalog map[PackageKey]CatalogEntry

// NewCatalog indexes entries by key. Later entries replace earlier ones with
// the same key, and each entry's versions are made unique by parsed version.
func NewCatalog(entries []CatalogEntry) Catalog {
	c := make(Catalog, len(entries))
	for _, e := range entries {
		e.Versions = uniqueVersions(e.Versions)
		c[e.Key()] = e
	}
	return c
}

// Get looks up a package.
func (c Catalog) Get(key PackageKey) (CatalogEntry, bool) {
	e, ok := c[key]
	return e, ok
}

// Entries returns all entries sorted by namespace then name.
func (c Catalog) Entries() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(c))
	for _, e := range c {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Namespace != entries[j].Namespace {
			return entries[i].Namespace < entries[j].Namespace
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// uniqueVersions drops records whose parsed version was already seen,
// keeping the first occurrence. Unparsed records are dropped. Build metadata
// does not distinguish versions.
func uniqueVersions(versions []VersionRecord) []VersionRecord {
	if len(versions) == 0 {
		return versions
	}
	out := make([]VersionRecord, 0, len(versions))
	seen := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		sv := v.Version.Semver()
		if sv == nil {
			continue
		}
		key := fmt.Sprintf("%d.%d.%d-%s", sv.Major(), sv.Minor(), sv.Patch(), sv.Prerelease())
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
