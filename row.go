package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"slices"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// TableKind identifies one of the three tables of a monthly ledger.
type TableKind int

const (
	Income TableKind = iota
	Expense
	Debt
)

func (k TableKind) String() string {
	switch k {
	case Income:
		return "income"
	case Expense:
		return "expense"
	case Debt:
		return "debt"
	default:
		return "unknown"
	}
}

// ParseTableKind parses a string into a TableKind.
func ParseTableKind(s string) (TableKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "incomes":
		return Income, nil
	case "expense", "expenses":
		return Expense, nil
	case "debt", "debts":
		return Debt, nil
	default:
		return 0, fmt.Errorf("unknown table %q: want income, expense or debt", s)
	}
}

// Field identifies an editable cell of a row.
type Field int

const (
	Label Field = iota
	Planned
	Actual
)

func (f Field) String() string {
	switch f {
	case Label:
		return "label"
	case Planned:
		return "planned"
	case Actual:
		return "actual"
	default:
		return "unknown"
	}
}

// ParseField parses a field name. The legacy column names col1..col3 are
// accepted too.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "label", "col1":
		return Label, nil
	case "planned", "col2":
		return Planned, nil
	case "actual", "col3":
		return Actual, nil
	default:
		return 0, fmt.Errorf("unknown field %q: want label, planned or actual", s)
	}
}

// ErrLockedRow is returned when editing or deleting a row that is not editable.
var ErrLockedRow = errors.New("row is not editable")

// ErrUnknownRow is returned by operations that require an existing row.
var ErrUnknownRow = errors.New("unknown row")

// Row is one line item of a planned/actual table.
//
// Locked rows are seeded by the system (debts imported from the debt tracker)
// and cannot be edited from the table.
type Row struct {
	ID      string
	Label   string
	Planned Amount
	Actual  Amount
	Locked  bool
}

// Editable reports whether the row accepts cell updates.
func (r Row) Editable() bool { return !r.Locked }

// Equal reports whether both rows hold the same values.
func (r Row) Equal(o Row) bool {
	return r.ID == o.ID && r.Label == o.Label && r.Locked == o.Locked &&
		r.Planned.Equal(o.Planned) && r.Actual.Equal(o.Actual)
}

// Row JSON keeps the column names used since the first version of the
// ledger blob: col1 is the label, col2 the planned amount and col3 the actual
// amount.
func (r Row) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", r.ID)
	w.Append("col1", r.Label)
	w.Append("col2", r.Planned)
	w.Append("col3", r.Actual)
	if r.Locked {
		w.Append("editable", false)
	}
	return w.MarshalJSON()
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var jrow struct {
		ID       json.RawMessage `json:"id"`
		Label    any             `json:"col1"`
		Planned  Amount          `json:"col2"`
		Actual   Amount          `json:"col3"`
		Editable *bool           `json:"editable"`
	}
	if err := json.Unmarshal(data, &jrow); err != nil {
		return fmt.Errorf("invalid row %s: %w", data, err)
	}
	*r = Row{
		ID:      rawID(jrow.ID),
		Planned: jrow.Planned,
		Actual:  jrow.Actual,
		Locked:  jrow.Editable != nil && !*jrow.Editable,
	}
	switch v := jrow.Label.(type) {
	case string:
		r.Label = v
	case nil:
	default:
		r.Label = fmt.Sprint(v)
	}
	return nil
}

// rawID reads an id that older versions wrote either as a string or as a
// number (a millisecond timestamp).
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// RowTable is an ordered list of rows. Order is insertion order and matters
// for display only.
type RowTable []Row

// Find returns the index of the row with that id, or -1.
func (t RowTable) Find(id string) int {
	return slices.IndexFunc(t, func(r Row) bool { return r.ID == id })
}

// Equal reports whether both tables hold equal rows in the same order.
func (t RowTable) Equal(o RowTable) bool {
	return slices.EqualFunc(t, o, Row.Equal)
}

// NewRowID returns a fresh unique row identifier.
func NewRowID() string { return uuid.NewString() }

// AddRow returns a copy of table with a new empty, editable row appended.
func AddRow(table RowTable) (RowTable, Row) {
	row := Row{ID: NewRowID()}
	return append(slices.Clone(table), row), row
}

// DeleteRow returns a copy of table without the row with that id. Deleting an
// absent id is a no-op; deleting a locked row fails with ErrLockedRow.
//
// Confirming the destructive intent is the caller's business, see
// [Editor.RequestDelete].
func DeleteRow(table RowTable, id string) (RowTable, error) {
	i := table.Find(id)
	if i < 0 {
		return slices.Clone(table), nil
	}
	if table[i].Locked {
		return slices.Clone(table), fmt.Errorf("cannot delete %q: %w", id, ErrLockedRow)
	}
	return slices.Delete(slices.Clone(table), i, i+1), nil
}

// UpdateCell returns a copy of table where the cell (id, field) holds the
// sanitized raw value. Labels are stripped from markup and control
// characters, amounts that are blank or not numeric become empty.
//
// UpdateCell is idempotent: applying the same value twice yields the same
// table as applying it once.
func UpdateCell(table RowTable, id string, field Field, raw string) (RowTable, error) {
	i := table.Find(id)
	if i < 0 {
		return slices.Clone(table), fmt.Errorf("cannot update %s of %q: %w", field, id, ErrUnknownRow)
	}
	if table[i].Locked {
		return slices.Clone(table), fmt.Errorf("cannot update %s of %q: %w", field, id, ErrLockedRow)
	}
	out := slices.Clone(table)
	row := &out[i]
	switch field {
	case Label:
		row.Label = SanitizeLabel(raw)
	case Planned:
		row.Planned, _ = ParseAmount(raw)
	case Actual:
		row.Actual, _ = ParseAmount(raw)
	default:
		return slices.Clone(table), fmt.Errorf("cannot update field %d of %q: unknown field", field, id)
	}
	return out, nil
}

var labelPolicy = bluemonday.StrictPolicy()

// SanitizeLabel strips markup and control characters from a free text label.
// The result is a fixed point: SanitizeLabel(SanitizeLabel(s)) == SanitizeLabel(s).
func SanitizeLabel(s string) string {
	// Unescaping can reveal markup hidden behind entities ("&lt;b&gt;"), so
	// the policy is applied until nothing changes. Every pass either removes
	// markup, decodes an entity or leaves s as is.
	for {
		next := html.UnescapeString(labelPolicy.Sanitize(s))
		next = strings.Map(func(r rune) rune {
			if unicode.IsControl(r) {
				return ' '
			}
			return r
		}, next)
		next = strings.Join(strings.Fields(next), " ")
		if next == s {
			return s
		}
		s = next
	}
}
