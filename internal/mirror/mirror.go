// Package mirror provides a registry backend that serves package listings
// from JSON dumps on the local filesystem.
//
// A mirror directory holds one v1 listing document per game, named
// "{game}.json", in the same shape the thunderstore API returns.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/tsmm/internal/core"
	"github.com/git-pkgs/tsmm/internal/thunderstore"
)

const name = "mirror"

func init() {
	core.Register(name, "", func(baseURL string, client *core.Client) core.Registry {
		return New(baseURL)
	})
}

type Registry struct {
	dir  string
	urls *thunderstore.URLs
}

// New returns a mirror rooted at dir. A "file://" prefix is accepted.
// Package and download URLs still point at the public registry.
func New(dir string) *Registry {
	dir = strings.TrimPrefix(dir, "file://")
	if dir == "" {
		dir = "."
	}
	return &Registry{
		dir:  filepath.Clean(dir),
		urls: thunderstore.New("", nil).URLs().(*thunderstore.URLs),
	}
}

func (r *Registry) Name() string {
	return name
}

func (r *Registry) URLs() core.URLBuilder {
	return r.urls
}

// Path returns the listing file consulted for game.
func (r *Registry) Path(game string) string {
	return filepath.Join(r.dir, game+".json")
}

func (r *Registry) ListPackages(ctx context.Context, game string) ([]core.CatalogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.Path(game))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &core.NotFoundError{Registry: name, Game: game}
		}
		return nil, fmt.Errorf("opening mirror listing: %w", err)
	}
	defer func() { _ = f.Close() }()

	return thunderstore.Decode(f)
}
