package cmd

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/robfig/cron/v3"
)

type watchCmd struct {
	schedule string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "periodically send pending starting balances" }
func (*watchCmd) Usage() string {
	return `plan watch [-schedule <spec>]

  Runs plan sync on a schedule until interrupted. The schedule is a cron
  spec, or a descriptor like "@every 5m" (watch.schedule by default).
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.schedule, "schedule", "", "The cron schedule, overrides watch.schedule.")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
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
	schedule := e.cfg.Watch.Schedule
	if c.schedule != "" {
		schedule = c.schedule
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := cron.New()
	if _, err := runner.AddFunc(schedule, func() { flush(ctx, e, user) }); err != nil {
		errorf("invalid schedule %q: %v", schedule, err)
		return subcommands.ExitUsageError
	}
	e.log.WithField("schedule", schedule).Info("watching pending balances")
	flush(ctx, e, user)
	runner.Start()
	<-ctx.Done()
	// wait for a running flush before closing the store.
	<-runner.Stop().Done()
	return subcommands.ExitSuccess
}
