package cmd

import (
	"context"
	"flag"

	"github.com/etnz/planner"
	"github.com/etnz/planner/renderer"
	"github.com/google/subcommands"
)

type monthCmd struct {
	month monthFlag
}

func (*monthCmd) Name() string     { return "month" }
func (*monthCmd) Synopsis() string { return "display the finance dashboard of a month" }
func (*monthCmd) Usage() string {
	return `plan month [-month <YYYY-MM>]

  Displays the starting balance, the income, expense and debt tables and the
  derived metrics of a month, the current one by default.
`
}

func (c *monthCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.month, "month", "The month to display (YYYY-MM).")
}

func (c *monthCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer e.close()

	r, err := e.report(ctx, c.month.Value())
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.MonthMarkdown(r))
	return subcommands.ExitSuccess
}

type monthsCmd struct{}

func (*monthsCmd) Name() string     { return "months" }
func (*monthsCmd) Synopsis() string { return "list the months holding a ledger" }
func (*monthsCmd) Usage() string {
	return `plan months

  Lists the months with a saved ledger, with their balance and savings rate.
`
}

func (*monthsCmd) SetFlags(*flag.FlagSet) {}

func (*monthsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer e.close()
	user, err := e.user()
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}

	months, err := e.store.Months(ctx, user)
	if err != nil {
		errorf("cannot list months: %v", err)
		return subcommands.ExitFailure
	}
	var reports []*planner.Report
	for _, m := range months {
		r, err := e.report(ctx, m)
		if err != nil {
			errorf("%v", err)
			return subcommands.ExitFailure
		}
		reports = append(reports, r)
	}
	printMarkdown(renderer.MonthsMarkdown(reports))
	return subcommands.ExitSuccess
}
