package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zabbix/zabbix-sub156/internal/rules"
	"github.com/zabbix/zabbix-sub156/pkg/regexprule"
	"github.com/zabbix/zabbix-sub156/zbxexpr/constructor"
)

type buildOptions struct {
	*rootOptions
	host      string
	key       string
	file      string
	fragments []constructor.Fragment
}

// fragmentFlag appends to a slice shared by --match and --no-match so the
// fragments keep the order they were given in.
type fragmentFlag struct {
	dst *[]constructor.Fragment
	typ constructor.MatchType
}

func (f fragmentFlag) String() string { return "" }
func (f fragmentFlag) Type() string   { return "expr" }

func (f fragmentFlag) Set(v string) error {
	*f.dst = append(*f.dst, constructor.Fragment{Value: v, Type: f.typ})
	return nil
}

func newCmdBuild(root *rootOptions) *cobra.Command {
	opts := &buildOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a regexp trigger expression",
		Long: `Build a trigger expression from regexp/iregexp fragments.

Each --match or --no-match value is one fragment: a list of regexp(...) or
iregexp(...) calls joined with "and" / "or". Fragments are combined in the
order given. A rule file may be used instead of the flags.`,
		Example: `  zbxexpr build --host 'Zabbix server' --key 'log[/var/log/syslog]' \
    --match 'regexp(error) or regexp(fail)' --no-match 'iregexp(ignore)'

  zbxexpr build --file rules/syslog.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "host name")
	cmd.Flags().StringVar(&opts.key, "key", "", "item key")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "rule file (YAML)")
	cmd.Flags().Var(fragmentFlag{dst: &opts.fragments, typ: constructor.Match}, "match", "fragment that must match (repeatable)")
	cmd.Flags().Var(fragmentFlag{dst: &opts.fragments, typ: constructor.NoMatch}, "no-match", "fragment that must not match (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("file", "host")
	cmd.MarkFlagsMutuallyExclusive("file", "key")

	return cmd
}

// rule returns the rule described by the flags or by --file.
func (o *buildOptions) rule() (regexprule.Rule, error) {
	if o.file != "" {
		return rules.LoadFile(o.file)
	}
	if o.host == "" || o.key == "" {
		return regexprule.Rule{}, errors.New("--host and --key are required without --file")
	}
	return regexprule.Rule{Host: o.host, Key: o.key, Expressions: o.fragments}, nil
}

func runBuild(opts *buildOptions, w io.Writer) error {
	r, err := opts.rule()
	if err != nil {
		return err
	}
	expr, err := constructor.New(constructor.WithLimits(opts.cfg.Limits)).Build(r.Host, r.Key, r.Fragments())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, expr)
	return err
}
