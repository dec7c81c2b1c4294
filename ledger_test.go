package planner

import (
	"errors"
	"testing"
)

func TestLedger_Operations(t *testing.T) {
	l := NewLedger()

	l, row := l.AddRow(Expense)
	l, err := l.UpdateCell(Expense, row.ID, Label, "Rent")
	if err != nil {
		t.Fatalf("UpdateCell() error = %v", err)
	}
	l, err = l.UpdateCell(Expense, row.ID, Actual, "1200")
	if err != nil {
		t.Fatalf("UpdateCell() error = %v", err)
	}
	if got := l.ExpenseData[0]; got.Label != "Rent" || !got.Actual.Equal(A(1200)) {
		t.Errorf("expense row = %+v", got)
	}
	if len(l.IncomeData) != 0 || len(l.DebtData) != 0 {
		t.Error("other tables changed")
	}

	if _, err := l.UpdateCell(Income, row.ID, Label, "x"); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("UpdateCell(wrong table) error = %v, want %v", err, ErrUnknownRow)
	}

	l, err = l.DeleteRow(Expense, row.ID)
	if err != nil {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if !l.IsEmpty() {
		t.Errorf("ledger = %+v, want empty", l)
	}
}

func TestLedger_CloneIsDeep(t *testing.T) {
	l := scenarioLedger()
	c := l.Clone()
	c.IncomeData[0].Label = "changed"
	if l.IncomeData[0].Label != "Salary" {
		t.Error("Clone() shares rows with the original")
	}
}

func TestEncodeDecodeLedger(t *testing.T) {
	tests := []struct {
		name   string
		ledger MonthlyLedger
		json   string
	}{
		{"nil tables", MonthlyLedger{}, `{"incomeData":[],"expenseData":[],"debtData":[]}`},
		{
			name:   "rows",
			ledger: MonthlyLedger{IncomeData: RowTable{R("a", "Salary", 10, 20)}},
			json:   `{"incomeData":[{"id":"a","col1":"Salary","col2":10,"col3":20}],"expenseData":[],"debtData":[]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeLedger(tt.ledger)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.json {
				t.Errorf("EncodeLedger() = %s, want %s", data, tt.json)
			}
			got, err := DecodeLedger(data)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.ledger) {
				t.Errorf("DecodeLedger() = %+v, want %+v", got, tt.ledger)
			}
		})
	}

	t.Run("missing tables", func(t *testing.T) {
		got, err := DecodeLedger([]byte(`{"incomeData":[{"id":"a"}]}`))
		if err != nil {
			t.Fatal(err)
		}
		if got.ExpenseData == nil || got.DebtData == nil || len(got.IncomeData) != 1 {
			t.Errorf("DecodeLedger() = %+v", got)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := DecodeLedger([]byte(`{"incomeData":{}}`)); err == nil {
			t.Error("DecodeLedger() succeeded, want an error")
		}
	})
}
