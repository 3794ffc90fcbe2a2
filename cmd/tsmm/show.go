package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/tsmm"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <namespace/name>",
		Short: "Show the cached details of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := tsmm.ParsePackageRef(args[0])
			if err != nil {
				return err
			}
			s, err := a.session(false)
			if err != nil {
				return err
			}

			entry, ok := s.Catalog.Get(key)
			if !ok {
				return &tsmm.NotFoundError{Registry: "cache", Game: s.Game, Package: key.String()}
			}
			latest := entry.Latest()
			if latest == nil {
				return fmt.Errorf("%s has no published versions", key)
			}

			reg, err := a.registry()
			if err != nil {
				return err
			}
			urls := reg.URLs()

			download := latest.DownloadURL
			if download == "" {
				download = urls.Download(key.Namespace, key.Name, latest.Version.String())
			}

			a.println(TitleStyle.Render(entry.Name) + SubtitleStyle.Render(" by "+entry.Namespace))
			if latest.Description != "" {
				a.println(latest.Description)
			}
			a.println("")
			a.println(field("Version", latest.Version.String()))
			a.println(field("Downloads", strconv.FormatInt(entry.TotalDownloads(), 10)))
			a.println(field("Rating", strconv.FormatInt(entry.RatingScore, 10)))
			if len(entry.Categories) > 0 {
				a.println(field("Categories", strings.Join(entry.Categories, ", ")))
			}
			if entry.IsDeprecated {
				a.println(field("Status", WarningStyle.Render("deprecated")))
			}
			if expr, ok := s.Requirements.Expression(key); ok {
				resolved := SubtitleStyle.Render("no matching version")
				if v, ok := s.ResolveLatest(key); ok {
					resolved = v.Version.String()
				}
				a.println(field("Requirement", expr+" -> "+resolved))
			}
			a.println(field("Page", urls.Package(s.Game, key.Namespace, key.Name)))
			a.println(field("Download", download))
			if size := a.archiveSize(cmd.Context(), latest.FileSize, download); size > 0 {
				a.println(field("Size", humanSize(size)))
			}
			a.println(field("PURL", tsmm.BuildPURL(s.Game, key, latest.Version.String())))

			if len(latest.Dependencies) > 0 {
				a.println("")
				a.println(SubtitleStyle.Render("Dependencies:"))
				for _, d := range latest.Dependencies {
					a.println("  " + d.Key.String() + " " + d.Version.String())
				}
			}
			return nil
		},
	}
}

// archiveSize returns the listed archive size, asking the download host when
// the listing has none. It returns 0 when the size is unknown.
func (a *app) archiveSize(ctx context.Context, listed int64, downloadURL string) int64 {
	if listed > 0 {
		return listed
	}
	size, err := a.httpClient().Head(ctx, downloadURL)
	if err != nil {
		a.logger.Debug("archive size unavailable", "url", downloadURL, "err", err)
		return 0
	}
	return size
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
