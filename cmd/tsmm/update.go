package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/tsmm"
	"github.com/git-pkgs/tsmm/installed"
)

var errApplyUnsupported = errors.New("applying updates is not supported; use the download URLs above")

type updateOptions struct {
	refresh bool
	dryRun  bool
	mod     string
}

func newUpdateCmd(a *app) *cobra.Command {
	opts := &updateOptions{}
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check installed mods for updates allowed by the requirements",
		Long: `Check installed mods for updates allowed by the requirements.

Every folder under the mods directory that holds a manifest.json is checked.
A mod is updatable when the newest catalog version satisfying its constraint
is newer than the installed version. Mods without a constraint are never
updated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpdate(cmd, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.refresh, "refresh", "c", false, "refresh the catalog before checking")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "only report what would be updated")
	cmd.Flags().StringVarP(&opts.mod, "mod", "m", "", "only check this package (namespace/name or purl)")
	return cmd
}

func (a *app) runUpdate(cmd *cobra.Command, opts *updateOptions) error {
	modsDir, err := a.cfg.RequireModsDir()
	if err != nil {
		return err
	}

	var only *tsmm.PackageKey
	if opts.mod != "" {
		key, err := tsmm.ParsePackageRef(opts.mod)
		if err != nil {
			return err
		}
		only = &key
	}

	s, err := a.session(opts.refresh)
	if err != nil {
		return err
	}
	if opts.refresh {
		_, err = s.Refresh(cmd.Context())
		a.reportBreakers()
		if err != nil {
			return err
		}
	}
	if len(s.Catalog) == 0 {
		a.println(WarningStyle.Render("No cached catalog for " + s.Game + "; run refresh first."))
	}

	mods, err := installed.Discover(modsDir, installed.WithLogger(a.logger.WithPrefix("installed")))
	if err != nil {
		return err
	}
	if only != nil {
		mods = installed.Filter(mods, *only)
		if len(mods) == 0 {
			return fmt.Errorf("%s is not installed in %s", *only, modsDir)
		}
	}
	if len(mods) == 0 {
		a.println("No installed mods found in " + modsDir)
		return nil
	}

	plan := s.PlanUpdates(mods)
	a.println(renderPlan(plan))

	var stale []installed.Update
	for _, u := range plan {
		if u.Updatable() {
			stale = append(stale, u)
		}
	}
	if len(stale) == 0 {
		a.println(SuccessStyle.Render("All mods are up to date."))
		return nil
	}

	a.println(fmt.Sprintf("%d update(s) available.", len(stale)))
	if opts.dryRun {
		return nil
	}

	reg, err := a.registry()
	if err != nil {
		return err
	}
	for _, u := range stale {
		url := u.Target.DownloadURL
		if url == "" {
			url = reg.URLs().Download(u.Mod.Key.Namespace, u.Mod.Key.Name, u.Target.Version.String())
		}
		a.println(field(u.Mod.Key.String(), url))
	}
	return &ExitError{Code: 2, Err: errApplyUnsupported}
}

// renderPlan lays out the plan as a table. Updatable rows are highlighted.
func renderPlan(plan []installed.Update) string {
	rows := make([][]string, 0, len(plan))
	for _, u := range plan {
		target := "N/A"
		if u.Updatable() {
			target = u.Target.Version.String()
		}
		rows = append(rows, []string{u.Mod.Key.String(), u.Mod.Version.String(), target})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Headers("Name", "Installed Version", "Update Version").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow || row < 0 || row >= len(plan):
				return headerCellStyle
			case col == 2 && plan[row].Updatable():
				return cellStyle.Foreground(ColorError)
			case col == 2:
				return cellStyle.Foreground(ColorSuccess)
			default:
				return cellStyle
			}
		}).
		Render()
}
