package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zabbix/zabbix-sub156/zbxexpr/funccall"
	"github.com/zabbix/zabbix-sub156/zbxexpr/itemkey"
	"github.com/zabbix/zabbix-sub156/zbxexpr/macro"
)

type parseOptions struct {
	*rootOptions
	json bool
}

func newCmdParse(root *rootOptions) *cobra.Command {
	opts := &parseOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "parse TEXT",
		Short: "List the function and LLD macros found in text",
		Example: `  zbxexpr parse '{server:system.cpu.load[all,avg1].last()}>5'
  zbxexpr parse '{host:net.if.in[{#IFNAME}].avg(5m)}>0' --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON")
	return cmd
}

type functionJSON struct {
	Pos      int    `json:"pos"`
	Macro    string `json:"macro"`
	Host     string `json:"host"`
	Key      string `json:"key"`
	Function string `json:"function"`
}

type lldJSON struct {
	Pos   int    `json:"pos"`
	Macro string `json:"macro"`
	Name  string `json:"name"`
}

type parseOutput struct {
	Functions []functionJSON `json:"functions"`
	LLD       []lldJSON      `json:"lld"`
}

func runParse(opts *parseOptions, text string, w io.Writer) error {
	limits := macro.WithLimits(opts.cfg.Limits)
	fms, err := macro.NewFunctionMacroMatcher(itemkey.New(), funccall.New(), limits).FindAll(text)
	if err != nil {
		return err
	}
	lms, err := macro.NewLLDMacroMatcher(limits).FindAll(text)
	if err != nil {
		return err
	}

	if opts.json {
		out := parseOutput{Functions: []functionJSON{}, LLD: []lldJSON{}}
		for _, m := range fms {
			out.Functions = append(out.Functions, functionJSON{Pos: m.Pos, Macro: m.Match, Host: m.Host, Key: m.Item, Function: m.Function})
		}
		for _, m := range lms {
			out.LLD = append(out.LLD, lldJSON{Pos: m.Pos, Macro: m.Match, Name: m.Name})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	if len(fms)+len(lms) == 0 {
		dim.Fprintln(w, "no macros found")
		return nil
	}
	for _, m := range fms {
		bold.Fprintf(w, "%s", m.Match)
		fmt.Fprintf(w, "  pos=%d host=%s key=%s function=%s\n", m.Pos, m.Host, m.Item, m.Function)
	}
	for _, m := range lms {
		bold.Fprintf(w, "%s", m.Match)
		fmt.Fprintf(w, "  pos=%d lld=%s\n", m.Pos, m.Name)
	}
	return nil
}
