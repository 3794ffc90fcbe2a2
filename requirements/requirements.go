// Package requirements loads the per-game constraint document and resolves
// the newest catalog version each constraint allows.
package requirements

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/git-pkgs/tsmm/internal/core"
)

// FileName returns the requirements document name for game.
func FileName(game string) string {
	return "requirements_" + game + ".json"
}

// Path returns the requirements document path for game under configDir.
func Path(configDir, game string) string {
	return filepath.Join(configDir, FileName(game))
}

// Set maps packages to the version constraint declared for them. A Set is
// read-only once built.
type Set struct {
	constraints map[core.PackageKey]*semver.Constraints
	raw         map[core.PackageKey]string
}

// New builds a Set from constraint expressions. It fails on the first
// expression that does not parse. A comparator written as a bare version,
// such as "1.2.0" or "1.2", is a caret requirement; use "=1.2.0" to pin.
func New(exprs map[core.PackageKey]string) (*Set, error) {
	s := &Set{
		constraints: make(map[core.PackageKey]*semver.Constraints, len(exprs)),
		raw:         make(map[core.PackageKey]string, len(exprs)),
	}
	for key, expr := range exprs {
		c, err := semver.NewConstraint(caretDefault(expr))
		if err != nil {
			return nil, fmt.Errorf("constraint for %s: %w", key, err)
		}
		s.constraints[key] = c
		s.raw[key] = expr
	}
	return s, nil
}

// Empty returns a Set with no constraints.
func Empty() *Set {
	s, _ := New(nil)
	return s
}

// caretDefault prefixes "^" to every comma-separated comparator that is a
// bare version. Operators, wildcards and hyphen ranges are left as written.
func caretDefault(expr string) string {
	groups := strings.Split(expr, "||")
	for i, group := range groups {
		comparators := strings.Split(group, ",")
		for j, c := range comparators {
			if t := strings.TrimSpace(c); isBareVersion(t) {
				comparators[j] = strings.Replace(c, t, "^"+t, 1)
			}
		}
		groups[i] = strings.Join(comparators, ",")
	}
	return strings.Join(groups, "||")
}

func isBareVersion(c string) bool {
	c = strings.TrimPrefix(strings.TrimPrefix(c, "v"), "V")
	if c == "" || c[0] < '0' || c[0] > '9' {
		return false
	}
	return !strings.ContainsAny(c, " xX*")
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	logger *log.Logger
}

// WithLogger sets the logger used to report a discarded document.
func WithLogger(l *log.Logger) Option {
	return func(o *loadOptions) {
		o.logger = l
	}
}

// Load reads the requirements document at path. A missing document yields an
// empty Set, as does a document with any malformed key or constraint.
func Load(path string, opts ...Option) *Set {
	o := loadOptions{logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "requirements"})}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			o.logger.Warn("ignoring unreadable requirements", "path", path, "err", err)
		}
		return Empty()
	}

	s, err := Parse(data)
	if err != nil {
		o.logger.Warn("ignoring malformed requirements", "path", path, "err", err)
		return Empty()
	}
	return s
}

// Parse decodes a JSON object of "namespace/name" keys to constraint
// expressions.
func Parse(data []byte) (*Set, error) {
	var exprs map[core.PackageKey]string
	if err := json.Unmarshal(data, &exprs); err != nil {
		return nil, err
	}
	return New(exprs)
}

// Len returns the number of constrained packages.
func (s *Set) Len() int {
	return len(s.constraints)
}

// Keys returns the constrained packages sorted by their text form.
func (s *Set) Keys() []core.PackageKey {
	keys := make([]core.PackageKey, 0, len(s.constraints))
	for k := range s.constraints {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Constraint returns the parsed constraint declared for key.
func (s *Set) Constraint(key core.PackageKey) (*semver.Constraints, bool) {
	c, ok := s.constraints[key]
	return c, ok
}

// Expression returns the constraint for key as it was written.
func (s *Set) Expression(key core.PackageKey) (string, bool) {
	e, ok := s.raw[key]
	return e, ok
}

// ResolveLatest returns the highest version of key in catalog that satisfies
// the declared constraint. It returns false if the package is absent from
// either the catalog or the set, or if no version satisfies the constraint.
func (s *Set) ResolveLatest(catalog core.Catalog, key core.PackageKey) (*core.VersionRecord, bool) {
	entry, ok := catalog.Get(key)
	if !ok {
		return nil, false
	}
	c, ok := s.constraints[key]
	if !ok {
		return nil, false
	}

	var best *core.VersionRecord
	for i := range entry.Versions {
		v := &entry.Versions[i]
		sv := v.Version.Semver()
		if sv == nil || !c.Check(sv) {
			continue
		}
		if best == nil || v.Version.GreaterThan(best.Version) {
			best = v
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
