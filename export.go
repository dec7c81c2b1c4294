package planner

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/etnz/planner/remote"
	"github.com/shopspring/decimal"
)

func fixed2(d decimal.Decimal) string { return d.StringFixed(2) }

func amount2(a Amount) string {
	if a.IsEmpty() {
		return ""
	}
	return fixed2(a.Decimal())
}

func percent2(p Percent) string { return fmt.Sprintf("%.2f%%", float64(p)) }

// ExportCSV writes the month report as CSV: a header section, the metrics,
// then the income, expense and debt tables. Numbers have 2 decimals and
// percentages a trailing %. Fields holding a comma, a quote or a newline are
// quoted.
func ExportCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	m := r.Metrics

	records := [][]string{
		{"Finance Dashboard Export"},
		{"Month", r.Month.String()},
		{"Currency", r.Currency},
		{},
		{"Metrics"},
		{"Metric", "Value"},
		{"Starting Balance", fixed2(m.StartingBalance)},
		{"Income", fixed2(m.Income)},
		{"Expenses", fixed2(m.Expenses)},
		{"Debt Paid", fixed2(m.TotalDebtPaid)},
		{"Total Debt", fixed2(m.TotalDebt)},
		{"Balance", fixed2(m.Balance)},
		{"Savings Rate", percent2(m.SavingsRate)},
	}
	for _, kind := range []TableKind{Income, Expense} {
		title := "Income Data"
		if kind == Expense {
			title = "Expense Data"
		}
		records = append(records, []string{}, []string{title},
			[]string{"Label", "Planned", "Actual", "Variance", "Variance %"})
		for _, row := range r.Ledger.Table(kind) {
			records = append(records, []string{
				row.Label, amount2(row.Planned), amount2(row.Actual),
				fixed2(Variance(row)), percent2(VariancePercent(row)),
			})
		}
	}
	records = append(records, []string{}, []string{"Debt Data"},
		[]string{"Label", "Planned", "Paid", "Outstanding", "Progress %"})
	for _, row := range r.Ledger.DebtData {
		records = append(records, []string{
			row.Label, amount2(row.Planned), amount2(row.Actual),
			fixed2(Outstanding(row)), percent2(Progress(row)),
		})
	}

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("cannot write csv: %w", err)
	}
	return nil
}

// ExportJSON writes a backup of everything a user owns: the records of every
// collection, the finance blobs as stored (ledgers and balance copies), the
// preferences and the export time.
//
// It fails if any collection cannot be listed, a partial backup would look
// complete.
func ExportJSON(ctx context.Context, w io.Writer, userID string, cols []remote.Collection, st *Store, now time.Time) error {
	entities := make(map[string][]remote.Record, len(cols))
	for _, c := range cols {
		rs, err := c.List(ctx, remote.FieldCreatedAt, 0)
		if err != nil {
			return fmt.Errorf("cannot export %s: %w", c.Name(), err)
		}
		if rs == nil {
			rs = []remote.Record{}
		}
		entities[c.Name()] = rs
	}

	finance := make(map[string]string)
	ledgers, err := st.Months(ctx, userID)
	if err != nil {
		return fmt.Errorf("cannot export finance data: %w", err)
	}
	balances, err := st.balanceMonths(ctx, userID)
	if err != nil {
		return fmt.Errorf("cannot export finance data: %w", err)
	}
	var keys []string
	for _, m := range ledgers {
		keys = append(keys, ledgerKey(userID, m))
	}
	for _, m := range balances {
		keys = append(keys, balanceKey(userID, m))
	}
	for _, k := range keys {
		v, err := st.Storage().Get(ctx, k)
		if err != nil {
			return fmt.Errorf("cannot export %q: %w", k, err)
		}
		finance[k] = v
	}

	settings, err := st.Preferences(ctx)
	if err != nil {
		return fmt.Errorf("cannot export settings: %w", err)
	}

	var doc jsonObjectWriter
	doc.Append("version", 1)
	doc.Append("userId", userID)
	doc.Append("exportedAt", now.UTC().Format(time.RFC3339))
	doc.Append("collections", slices.Sorted(maps.Keys(entities)))
	doc.Append("entities", entities)
	doc.Append("finance", finance)
	doc.Append("settings", settings)
	data, err := doc.MarshalJSON()
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return err
	}
	pretty.WriteByte('\n')
	_, err = pretty.WriteTo(w)
	return err
}
