package planner

import (
	"github.com/etnz/planner/date"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RowStats holds the values derived from a single row.
//
// For income and expense rows Variance is actual-planned and VariancePercent
// is that gap relative to planned. For debt rows Variance is the outstanding
// amount (planned-actual) and VariancePercent the repayment progress: debt is
// framed as "how much is left", not as a budget gap.
type RowStats struct {
	ID              string
	Variance        decimal.Decimal
	VariancePercent Percent
}

// Metrics are the values derived from a monthly ledger and its starting
// balance. They are never persisted.
type Metrics struct {
	StartingBalance decimal.Decimal

	Income        decimal.Decimal // sum of actual income
	Expenses      decimal.Decimal // sum of actual expenses
	TotalDebtPaid decimal.Decimal // sum of actual debt payments
	TotalDebt     decimal.Decimal // outstanding debt: planned debt minus paid

	PlannedIncome   decimal.Decimal
	PlannedExpenses decimal.Decimal
	PlannedDebt     decimal.Decimal

	// Balance is StartingBalance + Income - Expenses - TotalDebtPaid.
	Balance decimal.Decimal
	// SavingsRate is (Income - Expenses - TotalDebtPaid) / Income, 0 without income.
	SavingsRate Percent

	IncomeRows  []RowStats
	ExpenseRows []RowStats
	DebtRows    []RowStats

	TopIncome  *Row // largest income row, nil if none is positive
	TopExpense *Row // largest expense row, nil if none is positive
}

// Compute derives the metrics of a ledger. It is pure: empty or missing
// amounts count as zero and divisions by zero yield zero.
func Compute(l MonthlyLedger, startingBalance decimal.Decimal) Metrics {
	m := Metrics{
		StartingBalance: startingBalance,
		PlannedIncome:   SumPlanned(l.IncomeData),
		Income:          SumActual(l.IncomeData),
		PlannedExpenses: SumPlanned(l.ExpenseData),
		Expenses:        SumActual(l.ExpenseData),
		PlannedDebt:     SumPlanned(l.DebtData),
		TotalDebtPaid:   SumActual(l.DebtData),
	}
	m.TotalDebt = m.PlannedDebt.Sub(m.TotalDebtPaid)
	m.Balance = Balance(startingBalance, m.Income, m.Expenses, m.TotalDebtPaid)
	m.SavingsRate = SavingsRate(m.Income, m.Expenses, m.TotalDebtPaid)

	m.IncomeRows = budgetStats(l.IncomeData)
	m.ExpenseRows = budgetStats(l.ExpenseData)
	for _, r := range l.DebtData {
		m.DebtRows = append(m.DebtRows, RowStats{
			ID:              r.ID,
			Variance:        Outstanding(r),
			VariancePercent: Progress(r),
		})
	}
	m.TopIncome = TopRow(l.IncomeData)
	m.TopExpense = TopRow(l.ExpenseData)
	return m
}

// Stats returns the stats of the row with that id in the table of that kind.
func (m Metrics) Stats(kind TableKind, id string) (RowStats, bool) {
	var rows []RowStats
	switch kind {
	case Income:
		rows = m.IncomeRows
	case Expense:
		rows = m.ExpenseRows
	case Debt:
		rows = m.DebtRows
	}
	for _, s := range rows {
		if s.ID == id {
			return s, true
		}
	}
	return RowStats{}, false
}

func budgetStats(t RowTable) []RowStats {
	stats := make([]RowStats, 0, len(t))
	for _, r := range t {
		stats = append(stats, RowStats{
			ID:              r.ID,
			Variance:        Variance(r),
			VariancePercent: VariancePercent(r),
		})
	}
	return stats
}

// Balance returns start + income - expenses - debtPaid.
func Balance(start, income, expenses, debtPaid decimal.Decimal) decimal.Decimal {
	return start.Add(income).Sub(expenses).Sub(debtPaid)
}

// SavingsRate returns the share of income left after expenses and debt
// payments, as a percentage. It is 0 when there is no positive income.
func SavingsRate(income, expenses, debtPaid decimal.Decimal) Percent {
	if !income.IsPositive() {
		return 0
	}
	saved := income.Sub(expenses).Sub(debtPaid)
	return ratio(saved, income)
}

// SumPlanned sums the planned column, empty cells count as zero.
func SumPlanned(t RowTable) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range t {
		sum = sum.Add(r.Planned.Decimal())
	}
	return sum
}

// SumActual sums the actual column, empty cells count as zero.
func SumActual(t RowTable) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range t {
		sum = sum.Add(r.Actual.Decimal())
	}
	return sum
}

// Variance returns actual - planned of an income or expense row.
func Variance(r Row) decimal.Decimal {
	return r.Actual.Decimal().Sub(r.Planned.Decimal())
}

// VariancePercent returns the variance relative to planned, 0 when planned is 0.
func VariancePercent(r Row) Percent {
	return ratio(Variance(r), r.Planned.Decimal())
}

// Outstanding returns what is left to pay on a debt row: planned - actual.
func Outstanding(r Row) decimal.Decimal {
	return r.Planned.Decimal().Sub(r.Actual.Decimal())
}

// Progress returns the repaid share of a debt row, 0 when planned is not
// positive.
func Progress(r Row) Percent {
	if !r.Planned.Decimal().IsPositive() {
		return 0
	}
	return ratio(r.Actual.Decimal(), r.Planned.Decimal())
}

// TopRow returns the row with the largest actual amount, the first one in
// table order on ties. It returns nil when no row has a positive amount.
func TopRow(t RowTable) *Row {
	var top *Row
	for i := range t {
		v := t[i].Actual.Decimal()
		if !v.IsPositive() {
			continue
		}
		if top == nil || v.GreaterThan(top.Actual.Decimal()) {
			r := t[i]
			top = &r
		}
	}
	return top
}

// ratio returns num/den*100, 0 when den is 0.
func ratio(num, den decimal.Decimal) Percent {
	if den.IsZero() {
		return 0
	}
	return Percent(num.Mul(hundred).Div(den).InexactFloat64())
}

// Report bundles everything needed to display or export one month.
type Report struct {
	UserID   string
	Month    date.Month
	Currency string
	Ledger   MonthlyLedger
	Metrics  Metrics
}

// NewReport computes the metrics of the ledger and bundles them.
func NewReport(userID string, month date.Month, currency string, l MonthlyLedger, startingBalance decimal.Decimal) *Report {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Report{
		UserID:   userID,
		Month:    month,
		Currency: currency,
		Ledger:   l,
		Metrics:  Compute(l, startingBalance),
	}
}

// Money formats d in the report currency.
func (r *Report) Money(d decimal.Decimal) Money { return M(d, r.Currency) }
