package renderer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/planner"
	md "github.com/nao1215/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titled capitalizes the words of s, underscores count as spaces. A Caser
// is stateful so one is made per call.
func titled(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// MonthMarkdown renders the dashboard of a month: the metrics then the three
// tables with their derived columns.
func MonthMarkdown(r *planner.Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	m := r.Metrics
	doc.H1(fmt.Sprintf("Finance Dashboard %s %d", r.Month.Number(), r.Month.Year()))
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Balance"), md.Bold(r.Money(m.Balance).String())},
		Rows: [][]string{
			{"Starting Balance", r.Money(m.StartingBalance).String()},
			{"Income", r.Money(m.Income).String()},
			{"Expenses", r.Money(m.Expenses).String()},
			{"Debt Paid", r.Money(m.TotalDebtPaid).String()},
			{"Outstanding Debt", r.Money(m.TotalDebt).String()},
			{"Savings Rate", m.SavingsRate.String()},
		},
	})

	if m.TopIncome != nil || m.TopExpense != nil {
		var tops []string
		if m.TopIncome != nil {
			tops = append(tops, fmt.Sprintf("Top income: %s (%s)", label(*m.TopIncome), r.Money(m.TopIncome.Actual.Decimal())))
		}
		if m.TopExpense != nil {
			tops = append(tops, fmt.Sprintf("Top expense: %s (%s)", label(*m.TopExpense), r.Money(m.TopExpense.Actual.Decimal())))
		}
		doc.BulletList(tops...)
	}

	budgetTable(doc, r, planner.Income)
	budgetTable(doc, r, planner.Expense)
	debtTable(doc, r)
	return doc.String()
}

func label(row planner.Row) string {
	if row.Label == "" {
		return "(unnamed)"
	}
	return row.Label
}

// cell formats an amount cell, empty stays empty.
func cell(r *planner.Report, a planner.Amount) string {
	if a.IsEmpty() {
		return ""
	}
	return r.Money(a.Decimal()).String()
}

func rowLabel(row planner.Row) string {
	if row.Locked {
		return label(row) + " (locked)"
	}
	return label(row)
}

func budgetTable(doc *md.Markdown, r *planner.Report, kind planner.TableKind) {
	doc.H2(titled(kind.String()))
	rows := r.Ledger.Table(kind)
	if len(rows) == 0 {
		doc.PlainText("No rows.")
		return
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Label", "Planned", "Actual", "Variance", "Variance %"},
	}
	for _, row := range rows {
		s, _ := r.Metrics.Stats(kind, row.ID)
		table.Rows = append(table.Rows, []string{
			rowLabel(row),
			cell(r, row.Planned),
			cell(r, row.Actual),
			r.Money(s.Variance).SignedString(),
			s.VariancePercent.SignedString(),
		})
	}
	table.Rows = append(table.Rows, []string{
		md.Bold("Total"),
		md.Bold(r.Money(planner.SumPlanned(rows)).String()),
		md.Bold(r.Money(planner.SumActual(rows)).String()),
		"",
		"",
	})
	doc.Table(table)
}

func debtTable(doc *md.Markdown, r *planner.Report) {
	doc.H2(titled(planner.Debt.String()))
	rows := r.Ledger.DebtData
	if len(rows) == 0 {
		doc.PlainText("No rows.")
		return
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Label", "Planned", "Paid", "Outstanding", "Progress"},
	}
	for _, row := range rows {
		s, _ := r.Metrics.Stats(planner.Debt, row.ID)
		table.Rows = append(table.Rows, []string{
			rowLabel(row),
			cell(r, row.Planned),
			cell(r, row.Actual),
			r.Money(s.Variance).String(),
			s.VariancePercent.String(),
		})
	}
	doc.Table(table)
}

// MonthsMarkdown renders the list of months holding a ledger.
func MonthsMarkdown(reports []*planner.Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Months")
	if len(reports) == 0 {
		doc.PlainText("No saved month.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Month", "Rows", "Balance", "Savings Rate"},
	}
	for _, r := range reports {
		l := r.Ledger
		table.Rows = append(table.Rows, []string{
			r.Month.String(),
			fmt.Sprint(len(l.IncomeData) + len(l.ExpenseData) + len(l.DebtData)),
			r.Money(r.Metrics.Balance).String(),
			r.Metrics.SavingsRate.String(),
		})
	}
	doc.Table(table)
	return doc.String()
}

// generated formats the footer stamp of exported documents.
func generated(now time.Time) string {
	return fmt.Sprintf("Generated on %s.", now.UTC().Format("2006-01-02 15:04 MST"))
}
