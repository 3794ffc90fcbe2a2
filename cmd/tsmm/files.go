package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/tsmm/cache"
	"github.com/git-pkgs/tsmm/requirements"
)

func newFilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Print the paths of files tsmm manages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "cache",
		Short: "Print the cache file of the managed game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := a.cfg.RequireGame()
			if err != nil {
				return err
			}
			store := cache.NewStore(a.cfg.CacheDir, cache.WithLogger(a.logger.WithPrefix("cache")))
			path, err := store.Path(game)
			if err != nil {
				if errors.Is(err, cache.ErrNoCache) {
					return &ExitError{Code: 1, Err: err}
				}
				return err
			}
			a.println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the requirements file of the managed game",
		Long: `Print the requirements file of the managed game.

The file does not need to exist. It maps "namespace/name" keys to version
constraints, for example:

  { "AuthorA/ModX": "^1.2.0", "AuthorB/ModY": ">=2.0.0,<3.0.0" }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := a.cfg.RequireGame()
			if err != nil {
				return err
			}
			a.println(requirements.Path(a.cfg.ConfigDir, game))
			return nil
		},
	})

	return cmd
}
