package main

import (
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/tsmm"
)

type searchOptions struct {
	limit       int
	includeNSFW bool
}

func newSearchCmd(a *app) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the cached catalog",
		Long: `Search the cached catalog.

Deprecated packages and modpacks are hidden. Results are ordered by total
downloads. The query matches namespace or name, ignoring case.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(false)
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			results := searchCatalog(s.Catalog, query, opts)
			if len(results) == 0 {
				a.println(SubtitleStyle.Render("No packages found."))
				return nil
			}
			a.println(renderSearch(results))
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 25, "maximum number of results (0 for all)")
	cmd.Flags().BoolVar(&opts.includeNSFW, "nsfw", false, "include packages marked as NSFW")
	return cmd
}

// searchCatalog filters and orders catalog entries for display.
func searchCatalog(catalog tsmm.Catalog, query string, opts *searchOptions) []tsmm.CatalogEntry {
	query = strings.ToLower(query)

	var results []tsmm.CatalogEntry
	for _, e := range catalog.Entries() {
		if e.IsDeprecated || e.IsModpack() || (e.HasNSFWContent && !opts.includeNSFW) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(e.Name), query) &&
			!strings.Contains(strings.ToLower(e.Namespace), query) {
			continue
		}
		results = append(results, e)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalDownloads() > results[j].TotalDownloads()
	})

	if opts.limit > 0 && len(results) > opts.limit {
		results = results[:opts.limit]
	}
	return results
}

func renderSearch(results []tsmm.CatalogEntry) string {
	rows := make([][]string, 0, len(results))
	for _, e := range results {
		latest := "-"
		if v := e.Latest(); v != nil {
			latest = v.Version.String()
		}
		rows = append(rows, []string{e.Key().String(), latest, strconv.FormatInt(e.TotalDownloads(), 10)})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Headers("Package", "Latest", "Downloads").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		}).
		Render()
}
