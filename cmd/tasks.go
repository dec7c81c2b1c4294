package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/planner"
	"github.com/etnz/planner/date"
	"github.com/etnz/planner/remote"
	"github.com/etnz/planner/renderer"
	"github.com/google/subcommands"
)

type tasksCmd struct {
	priority string
	due      string
	month    string
}

func (*tasksCmd) Name() string     { return "tasks" }
func (*tasksCmd) Synopsis() string { return "list and edit the tasks kept on the backend" }
func (*tasksCmd) Usage() string {
	return `plan tasks [-month <YYYY-MM>] [list]
plan tasks add [-priority <p>] [-due <YYYY-MM-DD>] <title>
plan tasks done <id>
plan tasks rm <id>

  Edits are shown at once and undone if the backend refuses them.
`
}

func (c *tasksCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.priority, "priority", "", "The priority of a new task.")
	f.StringVar(&c.due, "due", "", "The due date of a new task.")
	f.StringVar(&c.month, "month", "", "Only show the tasks due that month.")
}

func (c *tasksCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	action, args := "list", f.Args()
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}
	switch {
	case action == "list" && len(args) == 0:
	case action == "add" && len(args) == 1:
	case (action == "done" || action == "rm") && len(args) == 1:
	default:
		fmt.Fprint(stdout, c.Usage())
		return subcommands.ExitUsageError
	}

	var due date.Date
	if c.due != "" {
		d, err := date.Parse(c.due)
		if err != nil {
			errorf("%v", err)
			return subcommands.ExitUsageError
		}
		due = d
	}
	var opts []planner.CoordinatorOption
	if c.month != "" {
		m, err := date.ParseMonth(c.month)
		if err != nil {
			errorf("%v", err)
			return subcommands.ExitUsageError
		}
		opts = append(opts, planner.WithFilter(func(q *remote.Query) {
			q.Gte("due_date", m.First().String()).Lte("due_date", m.Last().String())
		}))
	}

	e, err := openEnv(ctx)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer e.close()
	if e.client == nil {
		errorf("tasks are kept on the backend: set remote.url in the configuration")
		return subcommands.ExitFailure
	}

	opts = append(opts,
		planner.WithOrder("position"),
		planner.WithCoordinatorLogger(e.log),
		planner.WithStateHook(func(m planner.Mutation) {
			if m.State == planner.RolledBack {
				warnf("%s of task %s undone: %v", m.Kind, m.ID, m.Err)
			}
		}))
	co := planner.NewCoordinator(e.collection(remote.Tasks), planner.NewCache(nil), opts...)
	if err := co.Settle(ctx); err != nil {
		errorf("cannot list tasks: %v", err)
		return subcommands.ExitFailure
	}

	switch action {
	case "add":
		data := remote.Record{"title": args[0], "status": "todo", "position": float64(len(co.Cache().Records()))}
		if c.priority != "" {
			data["priority"] = c.priority
		}
		if c.due != "" {
			data["due_date"] = due.String()
		}
		_, err = co.Insert(ctx, data)
	case "done":
		_, err = co.Update(ctx, args[0], remote.Record{"status": "done", "completed": true})
	case "rm":
		err = co.Remove(ctx, args[0])
	}
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RecordsMarkdown("Tasks", co.Cache().Records(), "id", "title", "status", "priority", "due_date"))
	return subcommands.ExitSuccess
}
