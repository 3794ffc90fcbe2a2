package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/tsmm"
	_ "github.com/git-pkgs/tsmm/all"
	"github.com/git-pkgs/tsmm/client"
	"github.com/git-pkgs/tsmm/internal/config"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	configFile string
	verbose    bool

	cfg    *config.Config
	logger *log.Logger
	client *client.Client
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "tsmm",
		Short: "Thunderstore mod manager for game servers",
		Long: TitleStyle.Render("tsmm") + SubtitleStyle.Render(" - Thunderstore mod manager for game servers") + `

tsmm caches the package catalog of a Thunderstore community and checks the
mods installed on a server against version constraints declared in
requirements_<game>.json.

` + SubtitleStyle.Render("Examples:") + `
  tsmm -g valheim refresh            Download the latest catalog
  tsmm -g valheim -d ./plugins update --dry-run
  tsmm -g valheim search jotunn      Search the cached catalog
  tsmm -g valheim files config       Print the requirements file path`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringP("managed-game", "g", "", "Thunderstore community identifier of the managed game")
	flags.StringP("mods-dir", "d", "", "directory the game loads mods from")
	flags.String("cache-dir", "", "override the cache directory")
	flags.String("config-dir", "", "override the config directory")
	flags.String("registry", "", "registry backend (thunderstore, mirror)")
	flags.String("registry-url", "", "registry base URL or mirror directory")
	flags.StringVar(&a.configFile, "config", "", "config file (default is <config-dir>/config.toml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newFilesCmd(a),
		newRefreshCmd(a),
		newStatusCmd(a),
		newUpdateCmd(a),
		newSearchCmd(a),
		newShowCmd(a),
		newCleanCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.logger = log.NewWithOptions(a.errOut, log.Options{Prefix: "tsmm", Level: log.WarnLevel})
	if a.verbose {
		a.logger.SetLevel(log.DebugLevel)
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	cfg, err := config.Load(cmd.Context(), config.LoadOptions{
		ConfigFilePath: a.configFile,
		ConfigDirPath:  configDir,
		Flags:          cmd.Flags(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.Debug("loaded configuration", "game", cfg.ManagedGame, "cache_dir", cfg.CacheDir, "config_dir", cfg.ConfigDir)
	return nil
}

// httpClient returns the HTTP client of this invocation, creating it on
// first use.
func (a *app) httpClient() *client.Client {
	if a.client == nil {
		a.client = client.NewClient(
			client.WithTimeout(a.cfg.Timeout),
			client.WithMaxRetries(a.cfg.MaxRetries),
			client.WithUserAgent(a.cfg.UserAgent),
			client.WithLogger(a.logger.WithPrefix("fetch")),
		)
	}
	return a.client
}

// registry builds the configured registry backend.
func (a *app) registry() (tsmm.Registry, error) {
	return tsmm.New(a.cfg.Registry, a.cfg.RegistryURL, a.httpClient())
}

// reportBreakers logs the circuit breaker state of every host contacted.
// Open breakers are warnings; closed ones only show with --verbose.
func (a *app) reportBreakers() {
	if a.client == nil {
		return
	}
	for host, state := range a.client.BreakerStates() {
		if state == "open" {
			a.logger.Warn("circuit breaker open, requests to this host are paused", "host", host)
			continue
		}
		a.logger.Debug("circuit breaker", "host", host, "state", state)
	}
}

// session opens the managed game's cache and requirements. withRegistry
// controls whether a registry is attached for refreshing.
func (a *app) session(withRegistry bool) (*tsmm.Session, error) {
	game, err := a.cfg.RequireGame()
	if err != nil {
		return nil, err
	}

	sc := tsmm.SessionConfig{
		Game:      game,
		CacheDir:  a.cfg.CacheDir,
		ConfigDir: a.cfg.ConfigDir,
		Logger:    a.logger,
	}
	if withRegistry {
		reg, err := a.registry()
		if err != nil {
			return nil, err
		}
		sc.Registry = reg
	}
	return tsmm.Open(sc), nil
}

func (a *app) println(s string) {
	_, _ = fmt.Fprintln(a.out, s)
}
