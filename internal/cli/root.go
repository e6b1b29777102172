// Package cli provides the zbxexpr command tree.
package cli

import (
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zabbix/zabbix-sub156/internal/config"
	"github.com/zabbix/zabbix-sub156/internal/logger"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// rootOptions is shared by every subcommand and filled in before it runs.
type rootOptions struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg config.Config
	log *slog.Logger
}

// NewCmdRoot creates the root command for zbxexpr.
func NewCmdRoot() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "zbxexpr",
		Short: "Parse, build and evaluate Zabbix trigger expressions",
		Long: `zbxexpr works with Zabbix trigger expressions from the command line.

It extracts function and LLD macros from text, builds regexp trigger
expressions from match / no-match fragments, evaluates expressions with
substituted values and runs the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			opts.cfg = cfg
			logger.Level.SetByName(cfg.LogLevel)
			opts.log = logger.New(cmd.ErrOrStderr())
			if opts.noColor {
				color.NoColor = true
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newCmdParse(opts))
	cmd.AddCommand(newCmdBuild(opts))
	cmd.AddCommand(newCmdEval(opts))
	cmd.AddCommand(newCmdTest(opts))
	cmd.AddCommand(newCmdServe(opts))

	return cmd
}
