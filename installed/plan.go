package installed

import (
	"github.com/git-pkgs/tsmm/internal/core"
)

// Resolver picks the version a package should be updated to.
// *requirements.Set satisfies it.
type Resolver interface {
	ResolveLatest(catalog core.Catalog, key core.PackageKey) (*core.VersionRecord, bool)
}

// Update pairs an installed mod with the version it can move to. Target is
// nil when the mod is up to date.
type Update struct {
	Mod    Mod
	Target *core.VersionRecord
}

// Updatable reports whether a newer version is available.
func (u Update) Updatable() bool {
	return u.Target != nil
}

// Plan checks every mod against the resolver. A mod is updatable only if the
// resolved version is strictly newer than the installed one. Up-to-date mods
// come first and updatable mods last, each group in input order.
func Plan(catalog core.Catalog, resolver Resolver, mods []Mod) []Update {
	current := make([]Update, 0, len(mods))
	var stale []Update

	for _, m := range mods {
		target, ok := resolver.ResolveLatest(catalog, m.Key)
		if ok && target.Version.GreaterThan(m.Version) {
			stale = append(stale, Update{Mod: m, Target: target})
			continue
		}
		current = append(current, Update{Mod: m})
	}

	return append(current, stale...)
}

// Filter returns the mods whose key equals key.
func Filter(mods []Mod, key core.PackageKey) []Mod {
	var out []Mod
	for _, m := range mods {
		if m.Key == key {
			out = append(out, m)
		}
	}
	return out
}
