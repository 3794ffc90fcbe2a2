// Package thunderstore provides a registry client for thunderstore.io communities.
package thunderstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/git-pkgs/tsmm/internal/core"
)

const (
	DefaultURL = "https://thunderstore.io"
	name       = "thunderstore"
)

func init() {
	core.Register(name, DefaultURL, func(baseURL string, client *core.Client) core.Registry {
		return New(baseURL, client)
	})
}

type Registry struct {
	baseURL string
	client  *core.Client
	urls    *URLs
}

func New(baseURL string, client *core.Client) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	r := &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
	r.urls = &URLs{baseURL: r.baseURL}
	return r
}

func (r *Registry) Name() string {
	return name
}

func (r *Registry) URLs() core.URLBuilder {
	return r.urls
}

// ListPackages fetches the v1 package listing of a community.
func (r *Registry) ListPackages(ctx context.Context, game string) ([]core.CatalogEntry, error) {
	listURL := fmt.Sprintf("%s/c/%s/api/v1/package/", r.baseURL, url.PathEscape(game))

	var resp []PackageListing
	if err := r.client.GetJSON(ctx, listURL, &resp); err != nil {
		var httpErr *core.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil, &core.NotFoundError{Registry: name, Game: game}
		}
		return nil, err
	}

	return Convert(resp), nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) Package(game, namespace, pkgName string) string {
	return fmt.Sprintf("%s/c/%s/p/%s/%s/", u.baseURL, url.PathEscape(game), namespace, pkgName)
}

func (u *URLs) Download(namespace, pkgName, version string) string {
	return fmt.Sprintf("%s/package/download/%s/%s/%s/", u.baseURL, namespace, pkgName, version)
}

func (u *URLs) PURL(namespace, pkgName, version string) string {
	return core.BuildPURL("", core.NewPackageKey(namespace, pkgName), version)
}
