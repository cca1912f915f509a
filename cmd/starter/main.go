package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vango-dev/starter/internal/config"
	"github.com/vango-dev/starter/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌┬┐┌─┐┬─┐┌┬┐┌─┐┬─┐
  └─┐ │ ├─┤├┬┘ │ ├┤ ├┬┘
  └─┘ ┴ ┴ ┴┴└─ ┴ └─┘┴└─
`

// cli carries the state shared by every command: the viper instance flags
// are bound to and the --config path.
type cli struct {
	v          *viper.Viper
	configFile string
	stderr     io.Writer
}

func (c *cli) load() (*config.Config, error) {
	return config.Load(c.v, c.configFile)
}

// bind binds a flag to a configuration key. Unset flags fall through to
// the file, the environment and the defaults.
func (c *cli) bind(cmd *cobra.Command, key, flag string) {
	if err := c.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind %s: %v", flag, err))
	}
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	c := &cli{v: config.NewViper(), stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "starter",
		Short: "Admin starter navigation server",
		Long: `Starter serves the sign-in and dashboard shell of an admin application.

Every navigation runs through the route table and the auth guard on
the server: anonymous visitors are sent to the sign-in page, signed-in
users are kept off it, and the document title follows the route.

Configuration is read from starter.yaml in the working directory (or
--config), then STARTER_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "Configuration file (default ./starter.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json")
	rootCmd.PersistentFlags().String("history", "", "History mode: hash, path")
	c.bindPersistent(rootCmd, "log.level", "log-level")
	c.bindPersistent(rootCmd, "log.format", "log-format")
	c.bindPersistent(rootCmd, "router.history", "history")

	rootCmd.AddCommand(
		serveCmd(c),
		routesCmd(c),
		resolveCmd(c),
		versionCmd(),
	)
	return rootCmd
}

func (c *cli) bindPersistent(cmd *cobra.Command, key, flag string) {
	if err := c.v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind %s: %v", flag, err))
	}
}

func main() {
	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stderr.Fd()) {
		errors.DisableColors()
	}
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}
