package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the cache and requirements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(false)
			if err != nil {
				return err
			}

			updated := SubtitleStyle.Render("N/A")
			if ts, ok := s.LastUpdated(); ok {
				updated = ts.Local().Format(time.RFC1123) + SubtitleStyle.Render(" ("+time.Since(ts).Round(time.Minute).String()+" ago)")
			}
			cachePath := SubtitleStyle.Render("(none)")
			if h, ok := s.Store.Locate(s.Game); ok {
				cachePath = h.Path
			}

			a.println(TitleStyle.Render(s.Game))
			a.println(field("Last updated", updated))
			a.println(field("Cache file", cachePath))
			a.println(field("Packages", strconv.Itoa(len(s.Catalog))))
			a.println(field("Requirements file", s.RequirementsPath()))
			a.println(field("Requirements", strconv.Itoa(s.Requirements.Len())))
			return nil
		},
	}
}
