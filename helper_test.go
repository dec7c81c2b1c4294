package planner

import "github.com/shopspring/decimal"

// D is a helper for test to create a decimal from a const.
func D(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// A is a helper for test to create a non-empty amount from a const.
func A(v float64) Amount { return NewAmount(v) }

// R is a helper for test to create an editable row with both amounts set.
func R(id, label string, planned, actual float64) Row {
	return Row{ID: id, Label: label, Planned: A(planned), Actual: A(actual)}
}

// scenarioLedger is the reference month: a salary, a rent and a loan.
func scenarioLedger() MonthlyLedger {
	return MonthlyLedger{
		IncomeData:  RowTable{R("i1", "Salary", 5000, 5000)},
		ExpenseData: RowTable{R("e1", "Rent", 1200, 1200)},
		DebtData:    RowTable{R("d1", "Loan", 2000, 500)},
	}
}
