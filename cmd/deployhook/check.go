package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli"
)

func runCheck(c *cli.Context) error {
	ctx, err := newContext(c)
	if err != nil {
		return err
	}

	targets, err := newTargets(ctx)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("%s is invalid: %v", ctx.String(FlagConfig), err), 1)
	}

	w := tabwriter.NewWriter(os.Stdout, 1, 2, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tCOMMAND\tDIR\tTIMEOUT")
	for _, name := range targets.Names() {
		t, _ := targets.Get(name)
		timeout := "-"
		if t.Timeout > 0 {
			timeout = t.Timeout.String()
		}
		dir := t.Dir
		if dir == "" {
			dir = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, strings.Join(t.Command, " "), dir, timeout)
	}
	return w.Flush()
}
