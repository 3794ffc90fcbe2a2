package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/tsmm/cache"
)

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the cached catalog of the managed game",
		Long: `Remove the cached catalog of the managed game.

Installed mods and the requirements file are not touched. Run refresh to
download the catalog again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := a.cfg.RequireGame()
			if err != nil {
				return err
			}
			store := cache.NewStore(a.cfg.CacheDir, cache.WithLogger(a.logger.WithPrefix("cache")))
			n, err := store.Clean(game)
			if err != nil {
				return err
			}
			a.println(fmt.Sprintf("Removed %d cache file(s) for %s", n, game))
			return nil
		},
	}
}
