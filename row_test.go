package planner

import (
	"encoding/json"
	"errors"
	"html"
	"testing"
)

func TestAddRow(t *testing.T) {
	var table RowTable
	table, a := AddRow(table)
	table, b := AddRow(table)

	if len(table) != 2 {
		t.Fatalf("got %d rows, want 2", len(table))
	}
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids %q and %q are not unique", a.ID, b.ID)
	}
	if !a.Editable() || a.Label != "" || !a.Planned.IsEmpty() || !a.Actual.IsEmpty() {
		t.Errorf("AddRow() = %+v, want an empty editable row", a)
	}
	if table[1].ID != b.ID {
		t.Error("AddRow() does not append")
	}
}

func TestDeleteRow(t *testing.T) {
	table := RowTable{R("a", "x", 1, 1), R("b", "y", 2, 2), {ID: "c", Locked: true}}

	got, err := DeleteRow(table, "a")
	if err != nil {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if want := (RowTable{R("b", "y", 2, 2), {ID: "c", Locked: true}}); !got.Equal(want) {
		t.Errorf("DeleteRow() = %+v, want %+v", got, want)
	}
	if len(table) != 3 {
		t.Error("DeleteRow() modified its input")
	}

	if got, err := DeleteRow(table, "missing"); err != nil || !got.Equal(table) {
		t.Errorf("DeleteRow(missing) = %+v, %v, want a no-op", got, err)
	}
	if _, err := DeleteRow(table, "c"); !errors.Is(err, ErrLockedRow) {
		t.Errorf("DeleteRow(locked) error = %v, want %v", err, ErrLockedRow)
	}
}

func TestUpdateCell(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		raw   string
		want  Row
	}{
		{"label", Label, "Groceries", Row{ID: "a", Label: "Groceries"}},
		{"label markup", Label, `<script>alert(1)</script>Rent <b>March</b>`, Row{ID: "a", Label: "Rent March"}},
		{"label entities", Label, "Tom &amp; Jerry", Row{ID: "a", Label: "Tom & Jerry"}},
		{"label control chars", Label, "a\x07b\nc", Row{ID: "a", Label: "a b c"}},
		{"planned", Planned, "1200.50", Row{ID: "a", Planned: A(1200.5)}},
		{"planned spaces", Planned, "  42 ", Row{ID: "a", Planned: A(42)}},
		{"planned empty", Planned, "", Row{ID: "a"}},
		{"planned not a number", Planned, "12abc", Row{ID: "a"}},
		{"actual NaN", Actual, "NaN", Row{ID: "a"}},
		{"actual negative", Actual, "-5", Row{ID: "a", Actual: A(-5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := RowTable{{ID: "a"}}
			once, err := UpdateCell(table, "a", tt.field, tt.raw)
			if err != nil {
				t.Fatalf("UpdateCell() error = %v", err)
			}
			if !once[0].Equal(tt.want) {
				t.Errorf("UpdateCell() = %+v, want %+v", once[0], tt.want)
			}
			// idempotent with the raw value and with the stored value.
			twice, _ := UpdateCell(once, "a", tt.field, tt.raw)
			if !twice.Equal(once) {
				t.Errorf("UpdateCell() twice = %+v, want %+v", twice, once)
			}
			var stored string
			switch tt.field {
			case Label:
				stored = once[0].Label
			case Planned:
				stored = once[0].Planned.String()
			case Actual:
				stored = once[0].Actual.String()
			}
			again, _ := UpdateCell(once, "a", tt.field, stored)
			if !again.Equal(once) {
				t.Errorf("UpdateCell(stored) = %+v, want %+v", again, once)
			}
		})
	}
}

func TestUpdateCell_Errors(t *testing.T) {
	table := RowTable{{ID: "card", Label: "Card", Locked: true}}
	if _, err := UpdateCell(table, "card", Actual, "10"); !errors.Is(err, ErrLockedRow) {
		t.Errorf("UpdateCell(locked) error = %v, want %v", err, ErrLockedRow)
	}
	if _, err := UpdateCell(table, "missing", Actual, "10"); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("UpdateCell(missing) error = %v, want %v", err, ErrUnknownRow)
	}
}

func TestSanitizeLabel_FixedPoint(t *testing.T) {
	for _, s := range []string{
		"plain",
		"&lt;b&gt;bold&lt;/b&gt;",
		"&amp;lt;i&amp;gt;",
		"  spaced\t\tout  ",
		"<img src=x onerror=alert(1)>",
		"Food, Dining",
		nestEntities("<b>x</b>", 9),
		nestEntities("<script>alert(1)</script>", 20),
	} {
		once := SanitizeLabel(s)
		if twice := SanitizeLabel(once); twice != once {
			t.Errorf("SanitizeLabel(%q) = %q, then %q", s, once, twice)
		}
	}
}

// nestEntities escapes s n times, "<" becoming "&amp;amp;lt;" at n = 3.
func nestEntities(s string, n int) string {
	for range n {
		s = html.EscapeString(s)
	}
	return s
}

func TestUpdateCell_DeeplyEscapedLabel(t *testing.T) {
	table := RowTable{R("a", "", 0, 0)}
	once, err := UpdateCell(table, "a", Label, nestEntities("<b>x</b>", 9))
	if err != nil {
		t.Fatalf("UpdateCell() failed: %v", err)
	}
	if got, want := once[0].Label, "x"; got != want {
		t.Errorf("UpdateCell() label = %q, want %q", got, want)
	}
	twice, _ := UpdateCell(once, "a", Label, once[0].Label)
	if !twice.Equal(once) {
		t.Errorf("UpdateCell() again = %v, want %v", twice, once)
	}
}

func TestRowJSON(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		json string
	}{
		{"full", R("a", "Salary", 5000, 4800.5), `{"id":"a","col1":"Salary","col2":5000,"col3":4800.5}`},
		{"empty cells", Row{ID: "b", Label: "Gym"}, `{"id":"b","col1":"Gym","col2":"","col3":""}`},
		{"locked", Row{ID: "c", Label: "Card", Planned: A(300), Locked: true}, `{"id":"c","col1":"Card","col2":300,"col3":"","editable":false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.row)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.json {
				t.Errorf("Marshal() = %s, want %s", got, tt.json)
			}
			var back Row
			if err := json.Unmarshal(got, &back); err != nil {
				t.Fatal(err)
			}
			if !back.Equal(tt.row) {
				t.Errorf("Unmarshal() = %+v, want %+v", back, tt.row)
			}
		})
	}
}

func TestRowJSON_Legacy(t *testing.T) {
	tests := []struct {
		json string
		want Row
	}{
		{`{"id":1700000000000,"col1":"Salary","col2":"5000","col3":null}`, Row{ID: "1700000000000", Label: "Salary", Planned: A(5000)}},
		{`{"id":"x","col1":42,"col2":"abc","col3":"7.5","editable":true}`, Row{ID: "x", Label: "42", Actual: A(7.5)}},
		{`{"id":"y"}`, Row{ID: "y"}},
	}
	for _, tt := range tests {
		var got Row
		if err := json.Unmarshal([]byte(tt.json), &got); err != nil {
			t.Errorf("Unmarshal(%s) error = %v", tt.json, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.json, got, tt.want)
		}
	}
}

func TestParseTableKindAndField(t *testing.T) {
	for s, want := range map[string]TableKind{"income": Income, "Expenses": Expense, " debt ": Debt} {
		if got, err := ParseTableKind(s); err != nil || got != want {
			t.Errorf("ParseTableKind(%q) = %v, %v, want %v", s, got, err, want)
		}
	}
	if _, err := ParseTableKind("savings"); err == nil {
		t.Error("ParseTableKind(savings) succeeded")
	}
	for s, want := range map[string]Field{"label": Label, "col2": Planned, "ACTUAL": Actual} {
		if got, err := ParseField(s); err != nil || got != want {
			t.Errorf("ParseField(%q) = %v, %v, want %v", s, got, err, want)
		}
	}
	if _, err := ParseField("col4"); err == nil {
		t.Error("ParseField(col4) succeeded")
	}
}
