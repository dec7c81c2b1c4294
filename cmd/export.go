package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/etnz/planner"
	"github.com/etnz/planner/renderer"
	"github.com/google/subcommands"
)

type exportCmd struct {
	month  monthFlag
	format string
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export a month or a full backup" }
func (*exportCmd) Usage() string {
	return `plan export [-format csv|json|xlsx|html] [-month <YYYY-MM>] [-o <file>]

  csv, xlsx and html export the dashboard of a month. json exports a backup
  of every record, ledger and preference of the user.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.month, "month", "The month to export (YYYY-MM), ignored by json.")
	f.StringVar(&c.format, "format", "csv", "The format: csv, json, xlsx or html.")
	f.StringVar(&c.output, "o", "", "The output file (default stdout).")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	switch c.format {
	case "csv", "json", "xlsx", "html":
	default:
		errorf("unknown format %q", c.format)
		return subcommands.ExitUsageError
	}
	e, err := openEnv(ctx)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer e.close()

	w := stdout
	if c.output != "" {
		file, err := os.Create(c.output)
		if err != nil {
			errorf("%v", err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		w = file
	}

	if err := c.export(ctx, e, w); err != nil {
		errorf("export failed: %v", err)
		return subcommands.ExitFailure
	}
	if c.output != "" {
		successf(os.Stderr, "Exported to %s.", c.output)
	}
	return subcommands.ExitSuccess
}

func (c *exportCmd) export(ctx context.Context, e *env, w io.Writer) error {
	if c.format == "json" {
		user, err := e.user()
		if err != nil {
			return err
		}
		return planner.ExportJSON(ctx, w, user, e.collections(), e.store, time.Now())
	}
	r, err := e.report(ctx, c.month.Value())
	if err != nil {
		return err
	}
	switch c.format {
	case "csv":
		return planner.ExportCSV(w, r)
	case "xlsx":
		return planner.ExportXLSX(w, r)
	case "html":
		return renderer.WriteHTML(w, r, time.Now())
	}
	return fmt.Errorf("unknown format %q", c.format)
}
