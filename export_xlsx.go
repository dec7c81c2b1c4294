package planner

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX writes the month report as a spreadsheet: a Summary sheet with
// the metrics and one sheet per table.
func ExportXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}
	m := r.Metrics
	rows := [][]any{
		{"Finance Dashboard Export", r.Month.String()},
		{"Currency", r.Currency},
		{},
		{"Metric", "Value"},
		{"Starting Balance", m.StartingBalance.InexactFloat64()},
		{"Income", m.Income.InexactFloat64()},
		{"Expenses", m.Expenses.InexactFloat64()},
		{"Debt Paid", m.TotalDebtPaid.InexactFloat64()},
		{"Total Debt", m.TotalDebt.InexactFloat64()},
		{"Balance", m.Balance.InexactFloat64()},
		{"Savings Rate %", float64(m.SavingsRate)},
	}
	if err := writeRows(f, summary, rows); err != nil {
		return err
	}

	sheets := []struct {
		name   string
		kind   TableKind
		header []any
	}{
		{"Income", Income, []any{"Label", "Planned", "Actual", "Variance", "Variance %"}},
		{"Expenses", Expense, []any{"Label", "Planned", "Actual", "Variance", "Variance %"}},
		{"Debts", Debt, []any{"Label", "Planned", "Paid", "Outstanding", "Progress %"}},
	}
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return err
		}
		rows := [][]any{s.header}
		for _, row := range r.Ledger.Table(s.kind) {
			stats, _ := m.Stats(s.kind, row.ID)
			rows = append(rows, []any{
				row.Label, cellAmount(row.Planned), cellAmount(row.Actual),
				stats.Variance.InexactFloat64(), float64(stats.VariancePercent),
			})
		}
		if err := writeRows(f, s.name, rows); err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, "A", "A", 30); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("cannot write xlsx: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("cannot write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// cellAmount returns the cell value of an amount, nil for an empty one.
func cellAmount(a Amount) any {
	if a.IsEmpty() {
		return nil
	}
	return a.Decimal().InexactFloat64()
}
