package renderer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/etnz/planner"
	"github.com/etnz/planner/date"
	"github.com/etnz/planner/remote"
	"github.com/shopspring/decimal"
)

func row(id, label string, planned, actual float64) planner.Row {
	return planner.Row{ID: id, Label: label, Planned: planner.NewAmount(planned), Actual: planner.NewAmount(actual)}
}

func scenario() *planner.Report {
	l := planner.MonthlyLedger{
		IncomeData:  planner.RowTable{row("i1", "Salary", 5000, 5000)},
		ExpenseData: planner.RowTable{row("e1", "Rent", 1200, 1200), {ID: "e2", Label: "Food", Planned: planner.NewAmount(300)}},
		DebtData:    planner.RowTable{{ID: "d1", Label: "Loan", Planned: planner.NewAmount(2000), Actual: planner.NewAmount(500), Locked: true}},
	}
	return planner.NewReport("u1", date.NewMonth(2025, time.March), "USD", l, decimal.NewFromInt(1000))
}

func TestMonthMarkdown(t *testing.T) {
	got := MonthMarkdown(scenario())
	for _, want := range []string{
		"# Finance Dashboard March 2025",
		"$4,300.00",
		"66.00%",
		"Top income: Salary ($5,000.00)",
		"Top expense: Rent ($1,200.00)",
		"## Income",
		"## Expense",
		"## Debt",
		"Loan (locked)",
		"$1,500.00",
		"25.00%",
		"Variance %",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("MonthMarkdown() does not contain %q:\n%s", want, got)
		}
	}
}

func TestMonthMarkdown_Empty(t *testing.T) {
	r := planner.NewReport("u1", date.NewMonth(2025, time.April), "", planner.NewLedger(), decimal.Zero)
	got := MonthMarkdown(r)
	if n := strings.Count(got, "No rows."); n != 3 {
		t.Errorf("MonthMarkdown(empty) has %d empty tables, want 3:\n%s", n, got)
	}
	if strings.Contains(got, "Top ") {
		t.Errorf("MonthMarkdown(empty) shows a top row:\n%s", got)
	}
}

func TestMonthsMarkdown(t *testing.T) {
	got := MonthsMarkdown([]*planner.Report{scenario()})
	for _, want := range []string{"2025-03", "$4,300.00", "66.00%"} {
		if !strings.Contains(got, want) {
			t.Errorf("MonthsMarkdown() does not contain %q:\n%s", want, got)
		}
	}
	if got := MonthsMarkdown(nil); !strings.Contains(got, "No saved month.") {
		t.Errorf("MonthsMarkdown(nil) = %q", got)
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2025, 4, 1, 8, 30, 0, 0, time.UTC)
	if err := WriteHTML(&buf, scenario(), now); err != nil {
		t.Fatalf("WriteHTML() failed: %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"<title>Finance Dashboard 2025-03</title>",
		"<h1>Finance Dashboard March 2025</h1>",
		"<table>",
		">Label</th>",
		"Generated on 2025-04-01 08:30 UTC.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("WriteHTML() does not contain %q:\n%s", want, got)
		}
	}
}

func TestRecordsMarkdown(t *testing.T) {
	rs := []remote.Record{
		{"title": "Pay rent", "due_date": "2025-03-01", "priority": 1.0},
	}
	got := RecordsMarkdown("Tasks", rs, "title", "due_date", "priority")
	for _, want := range []string{"## Tasks", "Due Date", "Pay rent", "2025-03-01"} {
		if !strings.Contains(got, want) {
			t.Errorf("RecordsMarkdown() does not contain %q:\n%s", want, got)
		}
	}
	if got := RecordsMarkdown("Tasks", nil, "title"); !strings.Contains(got, "Nothing yet.") {
		t.Errorf("RecordsMarkdown(nil) = %q", got)
	}
}
