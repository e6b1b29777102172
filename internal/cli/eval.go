package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zabbix/zabbix-sub156/zbxexpr/evaluator"
)

type evalOptions struct {
	*rootOptions
	values []string
}

func newCmdEval(root *rootOptions) *cobra.Command {
	opts := &evalOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "eval EXPRESSION",
		Short: "Evaluate an expression with substituted placeholder values",
		Example: `  zbxexpr eval '{x} = 10m and {y} > 1K' --value '{x}=600s' --value '{y}=2048'
  zbxexpr eval '({A})<>0 or ({B})=0' --value '{A}=0' --value '{B}=0'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringArrayVar(&opts.values, "value", nil, "placeholder value as {name}=literal (repeatable)")
	return cmd
}

// parseValues turns "{x}=600s" pairs into substitutions.
func parseValues(pairs []string) (map[string]evaluator.Literal, error) {
	subs := make(map[string]evaluator.Literal, len(pairs))
	for _, p := range pairs {
		i := strings.Index(p, "}=")
		if !strings.HasPrefix(p, "{") || i < 0 {
			return nil, fmt.Errorf("invalid --value %q: want {name}=literal", p)
		}
		subs[p[:i+1]] = evaluator.ParseLiteral(p[i+2:])
	}
	return subs, nil
}

func runEval(opts *evalOptions, expression string, w io.Writer) error {
	subs, err := parseValues(opts.values)
	if err != nil {
		return err
	}
	ok, err := evaluator.New(evaluator.WithLimits(opts.cfg.Limits)).Evaluate(expression, subs)
	if err != nil {
		return err
	}
	if ok {
		color.New(color.FgGreen).Fprintln(w, "true")
	} else {
		color.New(color.FgRed).Fprintln(w, "false")
	}
	return nil
}
