package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zabbix/zabbix-sub156/internal/rules"
	"github.com/zabbix/zabbix-sub156/zbxexpr/constructor"
	"github.com/zabbix/zabbix-sub156/zbxexpr/regexptest"
)

func newCmdTest(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test FILE|DIR",
		Short: "Build rule files and check their test strings",
		Long: `Load one rule file or every rule file under a directory, build each
trigger expression and, when the rule has a test_string, run it through the
regexp tester. A rule with "expect" fails when the verdict differs.`,
		Example: `  zbxexpr test rules/
  zbxexpr test rules/syslog.yml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(root, args[0], cmd.OutOrStdout())
		},
	}
	return cmd
}

func runTest(opts *rootOptions, path string, w io.Writer) error {
	rs, bad, err := rules.LoadDirSkipInvalid(path)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	dim := color.New(color.Faint)

	for _, fe := range bad {
		red.Fprintf(w, "✗ %v\n", fe)
	}

	builder := constructor.New(constructor.WithLimits(opts.cfg.Limits))
	tester := regexptest.New(regexptest.WithLimits(opts.cfg.Limits), regexptest.WithLogger(opts.log))

	failed := len(bad)
	for _, r := range rs {
		expr, err := builder.Build(r.Host, r.Key, r.Fragments())
		if err != nil {
			red.Fprintf(w, "✗ %s: %v\n", r.Name, err)
			failed++
			continue
		}
		if !r.HasTest() {
			dim.Fprintf(w, "- %s: %s\n", r.Name, expr)
			continue
		}
		res, err := tester.Run(r.Host, r.Key, r.Fragments(), r.TestString)
		if err != nil {
			red.Fprintf(w, "✗ %s: %v\n", r.Name, err)
			failed++
			continue
		}
		if r.Expect != nil && *r.Expect != res.Result {
			red.Fprintf(w, "✗ %s: expected %t, got %t\n", r.Name, *r.Expect, res.Result)
			failed++
			continue
		}
		green.Fprintf(w, "✓ %s: %t\n", r.Name, res.Result)
		opts.log.Debug("rule tested", slog.String("rule", r.Name), slog.String("expression", res.Expression))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d rules failed", failed, len(rs)+len(bad))
	}
	return nil
}
