package thunderstore

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/git-pkgs/tsmm/internal/core"
)

// PackageListing is one element of the v1 package listing.
type PackageListing struct {
	Name           string           `json:"name"`
	FullName       string           `json:"full_name"`
	Owner          string           `json:"owner"`
	PackageURL     string           `json:"package_url"`
	DonationLink   string           `json:"donation_link,omitempty"`
	DateCreated    time.Time        `json:"date_created"`
	DateUpdated    time.Time        `json:"date_updated"`
	UUID4          string           `json:"uuid4"`
	RatingScore    int64            `json:"rating_score"`
	IsPinned       bool             `json:"is_pinned"`
	IsDeprecated   bool             `json:"is_deprecated"`
	HasNSFWContent bool             `json:"has_nsfw_content"`
	Categories     []string         `json:"categories"`
	Versions       []VersionListing `json:"versions"`
}

// VersionListing is one published version inside a PackageListing.
type VersionListing struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	VersionNumber string    `json:"version_number"`
	Dependencies  []string  `json:"dependencies"`
	DownloadURL   string    `json:"download_url"`
	Downloads     int64     `json:"downloads"`
	DateCreated   time.Time `json:"date_created"`
	WebsiteURL    string    `json:"website_url"`
	IsActive      bool      `json:"is_active"`
	UUID4         string    `json:"uuid4"`
	FileSize      int64     `json:"file_size"`
}

// Decode reads a v1 package listing document.
func Decode(r io.Reader) ([]core.CatalogEntry, error) {
	var listings []PackageListing
	if err := json.NewDecoder(r).Decode(&listings); err != nil {
		return nil, fmt.Errorf("decoding package listing: %w", err)
	}
	return Convert(listings), nil
}

// Convert maps listing records onto catalog entries. Versions with an
// unparseable version number and dependency strings that do not follow
// Namespace-Name-Version are dropped.
func Convert(listings []PackageListing) []core.CatalogEntry {
	entries := make([]core.CatalogEntry, 0, len(listings))
	for _, l := range listings {
		entry := core.CatalogEntry{
			Namespace:      l.Owner,
			Name:           l.Name,
			FullName:       l.FullName,
			UUID:           l.UUID4,
			PackageURL:     l.PackageURL,
			Categories:     l.Categories,
			RatingScore:    l.RatingScore,
			IsPinned:       l.IsPinned,
			IsDeprecated:   l.IsDeprecated,
			HasNSFWContent: l.HasNSFWContent,
			DateUpdated:    l.DateUpdated,
			Versions:       make([]core.VersionRecord, 0, len(l.Versions)),
		}

		for _, v := range l.Versions {
			parsed, err := core.ParseVersion(v.VersionNumber)
			if err != nil {
				continue
			}
			entry.Versions = append(entry.Versions, core.VersionRecord{
				FullName:     v.FullName,
				Version:      parsed,
				Description:  v.Description,
				Dependencies: parseDependencies(v.Dependencies),
				DownloadURL:  v.DownloadURL,
				WebsiteURL:   v.WebsiteURL,
				Downloads:    v.Downloads,
				FileSize:     v.FileSize,
				DateCreated:  v.DateCreated,
				IsActive:     v.IsActive,
			})
		}

		entries = append(entries, entry)
	}
	return entries
}

func parseDependencies(raw []string) []core.DependencyIdent {
	if len(raw) == 0 {
		return nil
	}
	deps := make([]core.DependencyIdent, 0, len(raw))
	for _, s := range raw {
		d, err := core.ParseDependencyIdent(s)
		if err != nil {
			continue
		}
		deps = append(deps, d)
	}
	return deps
}
