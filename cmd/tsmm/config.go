package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/tsmm/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect tsmm configuration",
		Long: `Inspect tsmm configuration.

Settings are read from config.toml in the config directory, then from
TSMM_* environment variables, then from command-line flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.cfg.TOML()
			if err != nil {
				return err
			}
			source := a.configFile
			if source == "" {
				source = filepath.Join(a.cfg.ConfigDir, config.ConfigFileName)
			}
			a.println(SubtitleStyle.Render("# " + source))
			_, err = a.out.Write(out)
			return err
		},
	})

	return cmd
}
