package core

import (
	"fmt"
	"strings"

	packageurl "github.com/package-url/packageurl-go"
)

// PURLType is the package URL type used for registry packages.
const PURLType = "thunderstore"

// communityQualifier carries the managed game in a package URL.
const communityQualifier = "community"

// PURL wraps packageurl.PackageURL with registry-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// Key returns the package key encoded in the PURL.
func (p PURL) Key() PackageKey {
	return NewPackageKey(p.Namespace, p.Name)
}

// Game returns the community qualifier, or "" when absent.
func (p PURL) Game() string {
	return p.Qualifiers.Map()[communityQualifier]
}

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:thunderstore/Owner/Mod) and version PURLs (pkg:thunderstore/Owner/Mod@1.0.0).
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	if p.Type != PURLType {
		return nil, fmt.Errorf("unsupported purl type %q", p.Type)
	}
	if p.Namespace == "" || p.Name == "" {
		return nil, &FormatError{Input: purl, Expected: "pkg:thunderstore/namespace/name"}
	}
	return &PURL{p}, nil
}

// BuildPURL renders the package URL for a package, optionally pinned to a
// version and scoped to a game.
func BuildPURL(game string, key PackageKey, version string) string {
	var qualifiers packageurl.Qualifiers
	if game != "" {
		qualifiers = packageurl.QualifiersFromMap(map[string]string{communityQualifier: game})
	}
	return packageurl.NewPackageURL(PURLType, key.Namespace, key.Name, version, qualifiers, "").ToString()
}

// ParsePackageRef accepts either the canonical "namespace/name" form or a
// package URL and returns the key it refers to.
func ParsePackageRef(text string) (PackageKey, error) {
	if strings.HasPrefix(text, "pkg:") {
		p, err := ParsePURL(text)
		if err != nil {
			return PackageKey{}, err
		}
		return p.Key(), nil
	}
	return ParsePackageKey(text)
}
