package cmd

import (
	"bytes"
	"context"
	"flag"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/planner"
	"github.com/etnz/planner/backend"
	"github.com/etnz/planner/date"
	"github.com/etnz/planner/remote"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// setup points the commands to a fresh configuration and captures their
// output.
func setup(t *testing.T, config string) *bytes.Buffer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	oldConfig, oldOut := *configFile, stdout
	*configFile, stdout = path, &out
	t.Cleanup(func() { *configFile, stdout = oldConfig, oldOut })
	return &out
}

// run parses args for c and executes it.
func run(t *testing.T, c subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("%s: cannot parse %v: %v", c.Name(), args, err)
	}
	return c.Execute(context.Background(), f)
}

func TestMonthFlag(t *testing.T) {
	var f monthFlag
	if got, want := f.Value(), date.ThisMonth(); got != want {
		t.Errorf("zero monthFlag.Value() = %v, want %v", got, want)
	}
	if err := f.Set("2025-03"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if got, want := f.Value(), date.NewMonth(2025, 3); got != want {
		t.Errorf("Value() = %v, want %v", got, want)
	}
	if err := f.Set("March"); err == nil {
		t.Error("Set(March) succeeded, want an error")
	}
}

func TestTableFlag(t *testing.T) {
	var f tableFlag
	if err := f.Set("debt"); err != nil || f.TableKind != planner.Debt || !f.set {
		t.Errorf("Set(debt) = %v, %+v", err, f)
	}
	if err := f.Set("savings"); err == nil {
		t.Error("Set(savings) succeeded, want an error")
	}
}

func TestLedgerCommands(t *testing.T) {
	out := setup(t, "user:\n  id: alice\nstorage:\n  driver: dir\n  dsn: "+t.TempDir()+"\n")

	if got := run(t, &addRowCmd{}, "-month", "2025-03", "-table", "income", "-label", "<b>Salary</b>", "-planned", "5000", "-actual", "4800"); got != subcommands.ExitSuccess {
		t.Fatalf("add-row = %v, want success", got)
	}
	id := strings.TrimSpace(out.String())
	if id == "" {
		t.Fatal("add-row printed no id")
	}
	if got := run(t, &setCmd{}, "-month", "2025-03", "-table", "income", "-row", id, "-field", "actual", "-value", "5000"); got != subcommands.ExitSuccess {
		t.Errorf("set = %v, want success", got)
	}
	if got := run(t, &balanceCmd{}, "-month", "2025-03", "1500"); got != subcommands.ExitSuccess {
		t.Errorf("balance 1500 = %v, want success", got)
	}

	e, err := openEnv(context.Background())
	if err != nil {
		t.Fatalf("openEnv() failed: %v", err)
	}
	r, err := e.report(context.Background(), date.NewMonth(2025, 3))
	e.close()
	if err != nil {
		t.Fatal(err)
	}
	rows := r.Ledger.IncomeData
	if len(rows) != 1 || rows[0].Label != "Salary" || !rows[0].Actual.Decimal().Equal(decimal.NewFromInt(5000)) {
		t.Errorf("income rows = %v, want the sanitized Salary row", rows)
	}
	if got, want := r.Metrics.StartingBalance, decimal.NewFromInt(1500); !got.Equal(want) {
		t.Errorf("starting balance = %v, want %v", got, want)
	}

	out.Reset()
	if got := run(t, &exportCmd{}, "-month", "2025-03", "-format", "csv"); got != subcommands.ExitSuccess {
		t.Fatalf("export = %v, want success", got)
	}
	if !strings.Contains(out.String(), "Salary,5000.00,5000.00") {
		t.Errorf("export csv = %q, want the Salary row", out.String())
	}

	if got := run(t, &rmRowCmd{}, "-month", "2025-03", "-table", "income", "-row", id, "-y"); got != subcommands.ExitSuccess {
		t.Errorf("rm-row = %v, want success", got)
	}
	out.Reset()
	run(t, &monthCmd{}, "-month", "2025-03")
	if strings.Contains(out.String(), "Salary") {
		t.Errorf("month still shows the deleted row:\n%s", out.String())
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	setup(t, "user:\n  id: alice\nstorage:\n  driver: memory\n")
	if got := run(t, &exportCmd{}, "-format", "pdf"); got != subcommands.ExitUsageError {
		t.Errorf("export -format pdf = %v, want usage error", got)
	}
}

func TestLoginAndTasks(t *testing.T) {
	ctx := context.Background()
	db, err := backend.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "backend.db"), backend.WithPasswordCost(bcrypt.MinCost))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	auth, _ := backend.NewAuth("test-secret", 0)
	srv := httptest.NewServer(backend.NewServer(db, auth, nil).Handler())
	defer srv.Close()

	out := setup(t, "storage:\n  driver: dir\n  dsn: "+t.TempDir()+"\nremote:\n  url: "+srv.URL+"\n")

	if got := run(t, &tasksCmd{}, "list"); got != subcommands.ExitFailure {
		t.Errorf("tasks before login = %v, want failure", got)
	}
	if got := run(t, &loginCmd{}, "-register", "-password", "s3cret", "alice@example.com"); got != subcommands.ExitSuccess {
		t.Fatalf("login = %v, want success", got)
	}
	if got := run(t, &tasksCmd{}, "-due", "tomorrow", "add", "write the report"); got != subcommands.ExitUsageError {
		t.Errorf("tasks add -due tomorrow = %v, want a usage error", got)
	}
	if got := run(t, &tasksCmd{}, "-due", "2025-3-7", "add", "write the report"); got != subcommands.ExitSuccess {
		t.Fatalf("tasks add = %v, want success", got)
	}
	if !strings.Contains(out.String(), "write the report") {
		t.Errorf("tasks add output = %q, want the new task", out.String())
	}

	e, err := openEnv(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer e.close()
	if e.userID == "" {
		t.Fatal("the session user was not restored")
	}
	tasks, err := e.collection(remote.Tasks).List(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].String("status") != "todo" {
		t.Fatalf("tasks = %v, want one todo task", tasks)
	}
	if got, want := tasks[0].String("due_date"), "2025-03-07"; got != want {
		t.Errorf("due_date = %q, want %q", got, want)
	}

	if got := run(t, &tasksCmd{}, "-due", "2025-04-01", "add", "file taxes"); got != subcommands.ExitSuccess {
		t.Fatalf("tasks add = %v, want success", got)
	}
	out.Reset()
	if got := run(t, &tasksCmd{}, "-month", "2025-03", "list"); got != subcommands.ExitSuccess {
		t.Fatalf("tasks -month list = %v, want success", got)
	}
	if !strings.Contains(out.String(), "write the report") || strings.Contains(out.String(), "file taxes") {
		t.Errorf("tasks due in 2025-03 = %q, want only the report", out.String())
	}

	if got := run(t, &tasksCmd{}, "done", tasks[0].ID()); got != subcommands.ExitSuccess {
		t.Errorf("tasks done = %v, want success", got)
	}
	if r, _ := e.collection(remote.Tasks).Get(ctx, tasks[0].ID()); r.String("status") != "done" {
		t.Errorf("task = %v, want done", r)
	}
}
