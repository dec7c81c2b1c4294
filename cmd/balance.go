package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/planner"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type balanceCmd struct {
	month monthFlag
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "get or set the starting balance of a month" }
func (*balanceCmd) Usage() string {
	return `plan balance [-month <YYYY-MM>] [<amount>]

  Without argument, prints the starting balance of the month. With an
  amount, sets it: the value is saved locally first then sent to the
  backend. When the backend cannot be reached the value stays pending and
  is sent by plan sync.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.month, "month", "The month (YYYY-MM).")
}

func (c *balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() > 1 {
		errorf("at most one amount expected")
		return subcommands.ExitUsageError
	}
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
	m := c.month.Value()
	sync := e.synchronizer()

	if f.NArg() == 0 {
		r := planner.NewReport(user, m, e.currency(ctx), planner.NewLedger(), sync.StartingBalance(ctx, user, m))
		fmt.Fprintln(stdout, r.Money(r.Metrics.StartingBalance))
		return subcommands.ExitSuccess
	}

	v, err := decimal.NewFromString(f.Arg(0))
	if err != nil {
		errorf("invalid amount %q", f.Arg(0))
		return subcommands.ExitUsageError
	}
	err = sync.SetStartingBalance(ctx, user, m, v)
	switch {
	case planner.IsWarning(err):
		warnf("%v", err)
	case err != nil:
		errorf("%v", err)
		return subcommands.ExitFailure
	default:
		successf(stdout, "Starting balance of %s set to %s.", m, v.StringFixed(2))
	}
	return subcommands.ExitSuccess
}

type syncCmd struct{}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "send pending starting balances to the backend" }
func (*syncCmd) Usage() string {
	return `plan sync

  Sends every starting balance saved while offline to the backend.
`
}

func (*syncCmd) SetFlags(*flag.FlagSet) {}

func (*syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
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
	if !flush(ctx, e, user) {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// flush sends the pending balances of user and reports the outcome. It
// returns false when some month is still pending.
func flush(ctx context.Context, e *env, user string) bool {
	synced, err := e.synchronizer().Flush(ctx, user)
	for _, m := range synced {
		successf(stdout, "Starting balance of %s synced.", m)
	}
	if err != nil {
		warnf("%v", err)
		return false
	}
	if len(synced) == 0 {
		e.log.Debug("nothing to sync")
	}
	return true
}
