package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download the package catalog and replace the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(true)
			if err != nil {
				return err
			}
			ts, err := s.Refresh(cmd.Context())
			a.reportBreakers()
			if err != nil {
				return err
			}
			a.println(SuccessStyle.Render("Refreshed") + fmt.Sprintf(" %d packages for %s at %s", len(s.Catalog), s.Game, ts.Local().Format(time.RFC1123)))
			return nil
		},
	}
}
