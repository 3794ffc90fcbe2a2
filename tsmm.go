// Package tsmm keeps a local, per-game snapshot of a Thunderstore community's
// package catalog and resolves which version each installed mod should move to.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/tsmm"
//		_ "github.com/git-pkgs/tsmm/all"
//	)
//
//	reg, err := tsmm.New("thunderstore", "", tsmm.DefaultClient())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	s := tsmm.Open(tsmm.SessionConfig{
//		Game:      "valheim",
//		CacheDir:  cacheDir,
//		ConfigDir: configDir,
//		Registry:  reg,
//	})
//	if _, err := s.Refresh(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//
//	mods, _ := installed.Discover(modsDir)
//	for _, u := range s.PlanUpdates(mods) {
//		if u.Updatable() {
//			fmt.Println(u.Mod.Key, u.Mod.Version, "->", u.Target.Version)
//		}
//	}
package tsmm

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/tsmm/cache"
	"github.com/git-pkgs/tsmm/client"
	"github.com/git-pkgs/tsmm/installed"
	"github.com/git-pkgs/tsmm/internal/core"
	"github.com/git-pkgs/tsmm/refresh"
	"github.com/git-pkgs/tsmm/requirements"
)

// Re-export types from internal/core
type (
	// Registry is the interface implemented by every catalog backend.
	Registry = core.Registry

	// PackageKey identifies a package by namespace and name.
	PackageKey = core.PackageKey

	// VersionIdent is a registry version string with its parsed semantic version.
	VersionIdent = core.VersionIdent

	// DependencyIdent references a pinned version of another package.
	DependencyIdent = core.DependencyIdent

	// VersionRecord is one published version of a package.
	VersionRecord = core.VersionRecord

	// CatalogEntry is a snapshot of one package's metadata.
	CatalogEntry = core.CatalogEntry

	// Catalog maps package keys to entries for one game.
	Catalog = core.Catalog

	// PURL is a parsed thunderstore package URL.
	PURL = core.PURL
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for registry APIs.
	Client = client.Client

	// URLBuilder constructs URLs for a registry.
	URLBuilder = client.URLBuilder

	// Option configures a Client.
	Option = client.Option
)

// ErrNoRegistry is returned by Session.Refresh when the session was opened
// without a registry.
var ErrNoRegistry = errors.New("no registry configured")

// Re-export errors
var (
	ErrNotFound      = core.ErrNotFound
	ErrInvalidFormat = core.ErrInvalidFormat
	ErrNoCache       = cache.ErrNoCache
)

// Error types
type (
	FormatError    = core.FormatError
	NotFoundError  = core.NotFoundError
	HTTPError      = client.HTTPError
	RateLimitError = client.RateLimitError
	CacheError     = cache.CacheError
	RefreshError   = refresh.RefreshError
)

// Client options
var (
	WithTimeout    = client.WithTimeout
	WithMaxRetries = client.WithMaxRetries
	WithUserAgent  = client.WithUserAgent
)

// New creates a registry backend by name.
// If baseURL is empty, the backend's default is used.
// If client is nil, DefaultClient() is used.
func New(name string, baseURL string, c *Client) (Registry, error) {
	return core.New(name, baseURL, c)
}

// DefaultClient returns a client with sensible defaults.
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// SupportedRegistries returns all registered backend names.
// Note: backends must be imported to be registered.
func SupportedRegistries() []string {
	return core.SupportedRegistries()
}

// DefaultURL returns the default base URL of a backend.
func DefaultURL(name string) string {
	return core.DefaultURL(name)
}

// ParsePackageKey parses "namespace/name".
func ParsePackageKey(text string) (PackageKey, error) {
	return core.ParsePackageKey(text)
}

// ParseVersion parses a registry version string.
func ParseVersion(s string) (VersionIdent, error) {
	return core.ParseVersion(s)
}

// ParsePackageRef parses either "namespace/name" or a package URL.
func ParsePackageRef(text string) (PackageKey, error) {
	return core.ParsePackageRef(text)
}

// ParsePURL parses a thunderstore package URL.
func ParsePURL(purl string) (*PURL, error) {
	return core.ParsePURL(purl)
}

// BuildPURL renders the package URL of a package version in a game.
func BuildPURL(game string, key PackageKey, version string) string {
	return core.BuildPURL(game, key, version)
}

// SessionConfig holds the inputs of Open. Paths are explicit so that
// nothing depends on process-wide directory lookups.
type SessionConfig struct {
	Game      string
	CacheDir  string
	ConfigDir string
	// Registry is only needed for Refresh.
	Registry Registry
	Logger   *log.Logger
}

// Session holds the catalog and requirements of one managed game.
type Session struct {
	Game         string
	Store        *cache.Store
	Requirements *requirements.Set
	Catalog      Catalog

	configDir string
	registry  Registry
	logger    *log.Logger
}

// Open loads the cached catalog and the requirements document of a game.
// Missing or malformed files load as empty.
func Open(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "tsmm"})
	}

	store := cache.NewStore(cfg.CacheDir, cache.WithLogger(logger.WithPrefix("cache")))
	reqs := requirements.Load(
		requirements.Path(cfg.ConfigDir, cfg.Game),
		requirements.WithLogger(logger.WithPrefix("requirements")),
	)

	return &Session{
		Game:         cfg.Game,
		Store:        store,
		Requirements: reqs,
		Catalog:      store.Load(cfg.Game),
		configDir:    cfg.ConfigDir,
		registry:     cfg.Registry,
		logger:       logger,
	}
}

// RequirementsPath returns where the requirements document is read from,
// whether or not it exists.
func (s *Session) RequirementsPath() string {
	return requirements.Path(s.configDir, s.Game)
}

// LastUpdated returns when the cached catalog was written.
func (s *Session) LastUpdated() (time.Time, bool) {
	h, ok := s.Store.Locate(s.Game)
	if !ok {
		return time.Time{}, false
	}
	return h.LastUpdated()
}

// Refresh replaces the catalog with a fresh listing from the registry. On
// error the session keeps its previous catalog.
func (s *Session) Refresh(ctx context.Context) (time.Time, error) {
	if s.registry == nil {
		return time.Time{}, &RefreshError{Game: s.Game, Op: "list", Err: ErrNoRegistry}
	}
	r := refresh.New(s.registry, s.Store, refresh.WithLogger(s.logger.WithPrefix("refresh")))
	catalog, ts, err := r.Refresh(ctx, s.Game)
	if err != nil {
		return time.Time{}, err
	}
	s.Catalog = catalog
	return ts, nil
}

// ResolveLatest returns the newest catalog version allowed for key.
func (s *Session) ResolveLatest(key PackageKey) (*VersionRecord, bool) {
	return s.Requirements.ResolveLatest(s.Catalog, key)
}

// PlanUpdates checks installed mods against the catalog and requirements.
func (s *Session) PlanUpdates(mods []installed.Mod) []installed.Update {
	return installed.Plan(s.Catalog, s.Requirements, mods)
}
