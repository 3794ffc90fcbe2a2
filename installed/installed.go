// Package installed discovers mods unpacked in a mods directory and plans
// which of them can be updated.
package installed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/tsmm/internal/core"
)

// ManifestName is the file every installed mod carries in its folder.
const ManifestName = "manifest.json"

// Manifest is the metadata file shipped inside a mod archive.
type Manifest struct {
	Name          string   `json:"name"`
	VersionNumber string   `json:"version_number"`
	Description   string   `json:"description"`
	WebsiteURL    string   `json:"website_url"`
	Dependencies  []string `json:"dependencies"`
}

// Mod is one installed mod.
type Mod struct {
	Key      core.PackageKey
	Version  core.VersionIdent
	Dir      string
	Manifest Manifest
}

// ParseFolderName derives a package key from an install folder name such
// as "AuthorA-ModX" or "AuthorA-ModX-1.2.0". Segments after the second are
// ignored.
func ParseFolderName(name string) (core.PackageKey, error) {
	parts := strings.Split(name, "-")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return core.PackageKey{}, &core.FormatError{Input: name, Expected: "Namespace-Name"}
	}
	return core.NewPackageKey(parts[0], parts[1]), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseManifest decodes a manifest, tolerating a leading byte order mark.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Option configures Discover.
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger sets the logger used to report skipped folders.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Discover walks root breadth first and returns every folder holding a
// readable manifest, in the order they were found. Folders whose name or
// manifest cannot be parsed are skipped. Any I/O error aborts the scan.
func Discover(root string, opts ...Option) ([]Mod, error) {
	o := options{logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "installed"})}
	for _, opt := range opts {
		opt(&o)
	}

	var mods []Mod
	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("scanning mods directory: %w", err)
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				queue = append(queue, path)
				continue
			}
			if entry.Name() != ManifestName || dir == root {
				continue
			}

			mod, ok, err := readMod(dir, path, o.logger)
			if err != nil {
				return nil, err
			}
			if ok {
				mods = append(mods, mod)
			}
		}
	}
	return mods, nil
}

func readMod(dir, manifestPath string, logger *log.Logger) (Mod, bool, error) {
	key, err := ParseFolderName(filepath.Base(dir))
	if err != nil {
		logger.Warn("skipping mod folder", "dir", dir, "err", err)
		return Mod{}, false, nil
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return Mod{}, false, fmt.Errorf("reading %s: %w", manifestPath, err)
	}

	manifest, err := ParseManifest(data)
	if err != nil {
		logger.Warn("skipping malformed manifest", "path", manifestPath, "err", err)
		return Mod{}, false, nil
	}

	version, err := core.ParseVersion(manifest.VersionNumber)
	if err != nil {
		logger.Warn("skipping manifest with bad version", "path", manifestPath, "err", err)
		return Mod{}, false, nil
	}

	return Mod{Key: key, Version: version, Dir: dir, Manifest: manifest}, true, nil
}
