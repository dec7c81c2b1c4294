package remote

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Op is a comparison operator of a filter.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

var ops = []Op{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte}

// Filter is one condition on a field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Match reports whether the record satisfies the filter. A missing field
// only matches neq.
func (f Filter) Match(r Record) bool {
	v, ok := r[f.Field]
	if !ok || v == nil {
		return f.Op == OpNeq && f.Value != nil
	}
	c := compare(v, f.Value)
	switch f.Op {
	case OpEq:
		return c == 0
	case OpNeq:
		return c != 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

// Query is a conjunction of filters with an optional order.
type Query struct {
	Filters []Filter
	Order   string // field, "-field" for descending
}

func (q *Query) where(field string, op Op, v any) *Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: op, Value: v})
	return q
}

func (q *Query) Eq(field string, v any) *Query  { return q.where(field, OpEq, v) }
func (q *Query) Neq(field string, v any) *Query { return q.where(field, OpNeq, v) }
func (q *Query) Gt(field string, v any) *Query  { return q.where(field, OpGt, v) }
func (q *Query) Gte(field string, v any) *Query { return q.where(field, OpGte, v) }
func (q *Query) Lt(field string, v any) *Query  { return q.where(field, OpLt, v) }
func (q *Query) Lte(field string, v any) *Query { return q.where(field, OpLte, v) }

// OrderBy sorts the result on field, descending when desc is true.
func (q *Query) OrderBy(field string, desc bool) *Query {
	q.Order = field
	if desc {
		q.Order = "-" + field
	}
	return q
}

// Match reports whether the record satisfies every filter.
func (q *Query) Match(r Record) bool {
	for _, f := range q.Filters {
		if !f.Match(r) {
			return false
		}
	}
	return true
}

// SelectOptions configures a Select. Build adds filters to the query, for
// instance a date range; Limit caps the result when > 0.
type SelectOptions struct {
	Build func(*Query)
	Limit int
}

// Query returns the query described by the options.
func (o SelectOptions) Query() *Query {
	q := new(Query)
	if o.Build != nil {
		o.Build(q)
	}
	return q
}

// Apply filters, sorts and limits records the way the backend does.
func (q *Query) Apply(rs []Record, limit int) []Record {
	var out []Record
	for _, r := range rs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	Sort(out, q.Order)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Sort sorts records in place on order ("field" or "-field"). The sort is
// stable so records with equal keys keep their order.
func Sort(rs []Record, order string) {
	if order == "" {
		return
	}
	field, desc := strings.TrimPrefix(order, "-"), strings.HasPrefix(order, "-")
	slices.SortStableFunc(rs, func(a, b Record) int {
		c := compare(a[field], b[field])
		if desc {
			return -c
		}
		return c
	})
}

// Encode writes the query in the URL form used by the HTTP API:
// field=op.value for filters, order=field.asc|desc and limit=n.
func (q *Query) Encode(v url.Values, limit int) {
	for _, f := range q.Filters {
		v.Add(f.Field, string(f.Op)+"."+formatValue(f.Value))
	}
	if q.Order != "" {
		v.Set("order", encodeOrder(q.Order))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
}

func encodeOrder(order string) string {
	if field, ok := strings.CutPrefix(order, "-"); ok {
		return field + ".desc"
	}
	return order + ".asc"
}

// reserved query parameters, never filters.
var reserved = []string{"order", "limit", "on_conflict"}

// ParseQuery reads a query and its limit from URL values, see Encode.
func ParseQuery(v url.Values) (*Query, int, error) {
	q := new(Query)
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, field := range keys {
		if slices.Contains(reserved, field) {
			continue
		}
		for _, raw := range v[field] {
			op, value, ok := strings.Cut(raw, ".")
			if !ok || !slices.Contains(ops, Op(op)) {
				return nil, 0, fmt.Errorf("invalid filter %s=%s: want op.value", field, raw)
			}
			q.where(field, Op(op), value)
		}
	}
	if order := v.Get("order"); order != "" {
		field, dir, _ := strings.Cut(order, ".")
		switch dir {
		case "", "asc":
			q.OrderBy(field, false)
		case "desc":
			q.OrderBy(field, true)
		default:
			return nil, 0, fmt.Errorf("invalid order %q", order)
		}
	}
	limit := 0
	if l := v.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return nil, 0, fmt.Errorf("invalid limit %q", l)
		}
		limit = n
	}
	return q, limit, nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// compare orders two field values: numerically when both are numbers (or
// numeric strings), otherwise as strings. nil sorts first.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	return strings.Compare(formatValue(a), formatValue(b))
}
