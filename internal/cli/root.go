// Package cli implements the pagesmith command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiaot623/pagesmith/internal/config"
	"github.com/xiaot623/pagesmith/internal/transport/http/client"
)

// Version is set at build time.
var Version = "dev"

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd(viper.New()).ExecuteContext(ctx)
}

// app carries what every subcommand shares.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	a := &app{v: v}

	rootCmd := &cobra.Command{
		Use:           "pagesmith",
		Short:         "Generate and refine web pages from natural language",
		Long:          "pagesmith serves the page generation API and provides a terminal client for building a page turn by turn, previewing it and exporting the result.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (YAML, TOML or JSON)")
	flags.String("server", "", "page service URL (default server_url)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	_ = v.BindPFlag("server_url", flags.Lookup("server"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(a),
		newChatCmd(a),
		newHistoryCmd(a),
		newExportCmd(a),
		newWatchCmd(a),
	)
	return rootCmd
}

// config loads the configuration once.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// client returns an API client for the configured server. Model calls can
// take minutes, so deadlines come from the command context.
func (a *app) client() (*client.Client, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	return client.New(strings.TrimSpace(cfg.ServerURL), 0), nil
}
