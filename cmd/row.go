package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/planner"
	"github.com/google/subcommands"
)

type addRowCmd struct {
	month   monthFlag
	table   tableFlag
	label   string
	planned string
	actual  string
}

func (*addRowCmd) Name() string     { return "add-row" }
func (*addRowCmd) Synopsis() string { return "add a row to a table of the ledger" }
func (*addRowCmd) Usage() string {
	return `plan add-row -table <income|expense|debt> [-month <YYYY-MM>] [-label <text>] [-planned <amount>] [-actual <amount>]

  Appends a row to a table and prints its id. Cells not given stay empty.
`
}

func (c *addRowCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.month, "month", "The month of the ledger (YYYY-MM).")
	f.Var(&c.table, "table", "The table: income, expense or debt.")
	f.StringVar(&c.label, "label", "", "The row label.")
	f.StringVar(&c.planned, "planned", "", "The planned amount.")
	f.StringVar(&c.actual, "actual", "", "The actual amount.")
}

func (c *addRowCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if !c.table.set {
		errorf("-table is required")
		return subcommands.ExitUsageError
	}
	e, err := openEnv(ctx)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer e.close()
	ed, err := e.editor(ctx, c.month.Value())
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}

	row, err := ed.AddRow(c.table.TableKind)
	if err != nil {
		errorf("cannot add row: %v", err)
		return subcommands.ExitFailure
	}
	cells := []struct {
		field planner.Field
		value string
	}{
		{planner.Label, c.label},
		{planner.Planned, c.planned},
		{planner.Actual, c.actual},
	}
	for _, cell := range cells {
		if cell.value == "" {
			continue
		}
		if err := edit(ed, c.table.TableKind, row.ID, cell.field, cell.value); err != nil {
			errorf("%v", err)
			return subcommands.ExitFailure
		}
	}
	fmt.Fprintln(stdout, row.ID)
	return subcommands.ExitSuccess
}

// edit types a value in a cell and leaves it, which commits it at once.
func edit(ed *planner.Editor, kind planner.TableKind, id string, field planner.Field, value string) error {
	if err := ed.Type(kind, id, field, value); err != nil {
		return err
	}
	return ed.Blur(kind, id, field)
}

type setCmd struct {
	month monthFlag
	table tableFlag
	row   string
	field string
	value string
}

func (*setCmd) Name() string     { return "set" }
func (*setCmd) Synopsis() string { return "set a cell of the ledger" }
func (*setCmd) Usage() string {
	return `plan set -table <income|expense|debt> -row <id> -field <label|planned|actual> -value <value> [-month <YYYY-MM>]

  Sets one cell. Labels are cleaned from markup and amounts that are not
  numbers are stored as empty cells.
`
}

func (c *setCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.month, "month", "The month of the ledger (YYYY-MM).")
	f.Var(&c.table, "table", "The table: income, expense or debt.")
	f.StringVar(&c.row, "row", "", "The row id.")
	f.StringVar(&c.field, "field", "", "The field: label, planned or actual.")
	f.StringVar(&c.value, "value", "", "The new value, empty to clear the cell.")
}

func (c *setCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	field, err := planner.ParseField(c.field)
	if err != nil || !c.table.set || c.row == "" {
		errorf("-table, -row and -field are required")
		return subcommands.ExitUsageError
	}
	e, err := openEnv(ctx)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer e.close()
	ed, err := e.editor(ctx, c.month.Value())
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	if err := edit(ed, c.table.TableKind, c.row, field, c.value); err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type rmRowCmd struct {
	month monthFlag
	table tableFlag
	row   string
	yes   bool
}

func (*rmRowCmd) Name() string     { return "rm-row" }
func (*rmRowCmd) Synopsis() string { return "delete a row of the ledger" }
func (*rmRowCmd) Usage() string {
	return `plan rm-row -table <income|expense|debt> -row <id> [-month <YYYY-MM>] [-y]

  Deletes a row after confirmation. Locked rows cannot be deleted.
`
}

func (c *rmRowCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.month, "month", "The month of the ledger (YYYY-MM).")
	f.Var(&c.table, "table", "The table: income, expense or debt.")
	f.StringVar(&c.row, "row", "", "The row id.")
	f.BoolVar(&c.yes, "y", false, "Do not ask for confirmation.")
}

func (c *rmRowCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if !c.table.set || c.row == "" {
		errorf("-table and -row are required")
		return subcommands.ExitUsageError
	}
	e, err := openEnv(ctx)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer e.close()
	ed, err := e.editor(ctx, c.month.Value())
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}

	del, err := ed.RequestDelete(c.table.TableKind, c.row)
	switch {
	case errors.Is(err, planner.ErrLockedRow):
		errorf("row %q is locked", c.row)
		return subcommands.ExitFailure
	case err != nil:
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	if !c.yes && !confirm(del.Prompt()) {
		del.Cancel()
		fmt.Fprintln(os.Stderr, "Cancelled.")
		return subcommands.ExitSuccess
	}
	if err := del.Confirm(); err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// confirm asks a yes/no question on the terminal, no by default.
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
