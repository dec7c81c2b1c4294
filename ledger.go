package planner

import (
	"encoding/json"
	"fmt"
	"slices"
)

// MonthlyLedger is the persisted unit of the finance view: the income,
// expense and debt tables of one user for one month.
type MonthlyLedger struct {
	IncomeData  RowTable `json:"incomeData"`
	ExpenseData RowTable `json:"expenseData"`
	DebtData    RowTable `json:"debtData"`
}

// NewLedger returns an empty ledger. Its tables are empty, not nil, so that
// it persists as empty JSON arrays.
func NewLedger() MonthlyLedger {
	return MonthlyLedger{
		IncomeData:  RowTable{},
		ExpenseData: RowTable{},
		DebtData:    RowTable{},
	}
}

// Table returns the table of that kind.
func (l MonthlyLedger) Table(kind TableKind) RowTable {
	switch kind {
	case Income:
		return l.IncomeData
	case Expense:
		return l.ExpenseData
	case Debt:
		return l.DebtData
	default:
		return nil
	}
}

// WithTable returns a copy of the ledger where the table of that kind is t.
func (l MonthlyLedger) WithTable(kind TableKind, t RowTable) MonthlyLedger {
	switch kind {
	case Income:
		l.IncomeData = t
	case Expense:
		l.ExpenseData = t
	case Debt:
		l.DebtData = t
	}
	return l
}

// Clone returns a deep copy of the ledger.
func (l MonthlyLedger) Clone() MonthlyLedger {
	return MonthlyLedger{
		IncomeData:  cloneTable(l.IncomeData),
		ExpenseData: cloneTable(l.ExpenseData),
		DebtData:    cloneTable(l.DebtData),
	}
}

func cloneTable(t RowTable) RowTable {
	if t == nil {
		return RowTable{}
	}
	return slices.Clone(t)
}

// Equal reports whether both ledgers hold the same rows in the same order.
func (l MonthlyLedger) Equal(o MonthlyLedger) bool {
	return l.IncomeData.Equal(o.IncomeData) &&
		l.ExpenseData.Equal(o.ExpenseData) &&
		l.DebtData.Equal(o.DebtData)
}

// IsEmpty reports whether the ledger has no row at all.
func (l MonthlyLedger) IsEmpty() bool {
	return len(l.IncomeData) == 0 && len(l.ExpenseData) == 0 && len(l.DebtData) == 0
}

// AddRow appends an empty row to the table of that kind.
func (l MonthlyLedger) AddRow(kind TableKind) (MonthlyLedger, Row) {
	t, row := AddRow(l.Table(kind))
	return l.WithTable(kind, t), row
}

// DeleteRow removes the row with that id from the table of that kind.
func (l MonthlyLedger) DeleteRow(kind TableKind, id string) (MonthlyLedger, error) {
	t, err := DeleteRow(l.Table(kind), id)
	if err != nil {
		return l, fmt.Errorf("%s table: %w", kind, err)
	}
	return l.WithTable(kind, t), nil
}

// UpdateCell sets a cell of the table of that kind, see [UpdateCell].
func (l MonthlyLedger) UpdateCell(kind TableKind, id string, field Field, raw string) (MonthlyLedger, error) {
	t, err := UpdateCell(l.Table(kind), id, field, raw)
	if err != nil {
		return l, fmt.Errorf("%s table: %w", kind, err)
	}
	return l.WithTable(kind, t), nil
}

// EncodeLedger returns the canonical JSON form of the ledger.
func EncodeLedger(l MonthlyLedger) ([]byte, error) {
	l = l.Clone() // replaces nil tables by empty ones.
	var w jsonObjectWriter
	w.Append("incomeData", l.IncomeData)
	w.Append("expenseData", l.ExpenseData)
	w.Append("debtData", l.DebtData)
	return w.MarshalJSON()
}

// DecodeLedger parses the JSON form of a ledger. Missing tables decode as
// empty tables.
func DecodeLedger(data []byte) (MonthlyLedger, error) {
	var l MonthlyLedger
	if err := json.Unmarshal(data, &l); err != nil {
		return NewLedger(), fmt.Errorf("invalid ledger: %w", err)
	}
	return l.Clone(), nil
}
