package remote

import (
	"slices"
)

// Collection names.
const (
	Habits              = "habits"
	HabitLogs           = "habit_logs"
	Tasks               = "tasks"
	FinanceTransactions = "finance_transactions"
	Debts               = "debts"
	Categories          = "categories"
	MonthlyBudgets      = "monthly_budgets"
	MentalStates        = "mental_states"
	VisionBoards        = "vision_boards"
	VisionBoardItems    = "vision_board_items"
)

// Schema lists the columns of a collection, system fields excluded.
type Schema struct {
	Name     string
	Required []string
	Optional []string
}

// Schemas holds the schema of every collection, by name.
var Schemas = map[string]Schema{
	Habits: {
		Name:     Habits,
		Required: []string{"name"},
		Optional: []string{"description", "frequency", "color", "target", "archived"},
	},
	HabitLogs: {
		Name:     HabitLogs,
		Required: []string{"habit_id", "date"},
		Optional: []string{"completed", "note"},
	},
	Tasks: {
		Name:     Tasks,
		Required: []string{"title"},
		Optional: []string{"description", "status", "priority", "due_date", "completed", "category_id", "position"},
	},
	FinanceTransactions: {
		Name:     FinanceTransactions,
		Required: []string{"type", "amount", "date"},
		Optional: []string{"category", "description"},
	},
	Debts: {
		Name:     Debts,
		Required: []string{"name", "amount"},
		Optional: []string{"paid", "due_date", "interest_rate", "creditor"},
	},
	Categories: {
		Name:     Categories,
		Required: []string{"name"},
		Optional: []string{"type", "color", "icon"},
	},
	MonthlyBudgets: {
		Name:     MonthlyBudgets,
		Required: []string{"month", "category", "amount"},
		Optional: []string{"note"},
	},
	MentalStates: {
		Name:     MentalStates,
		Required: []string{"date", "mood"},
		Optional: []string{"energy", "stress", "notes"},
	},
	VisionBoards: {
		Name:     VisionBoards,
		Required: []string{"title"},
		Optional: []string{"description", "background"},
	},
	VisionBoardItems: {
		Name:     VisionBoardItems,
		Required: []string{"board_id", "type"},
		Optional: []string{"content", "x", "y", "width", "height", "rotation", "z_index"},
	},
}

// Names returns the sorted names of every collection.
func Names() []string {
	names := make([]string, 0, len(Schemas))
	for n := range Schemas {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

var systemFields = []string{FieldID, FieldUserID, FieldCreatedAt, FieldUpdatedAt}

// HasColumn reports whether field is a column of the collection.
func (s Schema) HasColumn(field string) bool {
	return slices.Contains(systemFields, field) ||
		slices.Contains(s.Required, field) ||
		slices.Contains(s.Optional, field)
}

// Validate checks data against the schema. Unknown columns are always
// rejected; required fields only when partial is false (a create), since an
// update only carries the fields that change.
func (s Schema) Validate(data Record, partial bool) error {
	fields := make([]string, 0, len(data))
	for f := range data {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	for _, f := range fields {
		if !s.HasColumn(f) {
			return &SchemaError{Collection: s.Name, Field: f, Code: CodeUnknownColumn}
		}
	}
	if partial {
		return nil
	}
	for _, f := range s.Required {
		if v, ok := data[f]; !ok || v == nil || v == "" {
			return &SchemaError{Collection: s.Name, Field: f, Code: CodeMissingField}
		}
	}
	return nil
}
