package advisor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/etnz/planner"
	"github.com/etnz/planner/date"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// scriptedChat answers with the next scripted part and records what it got.
type scriptedChat struct {
	answers []*genai.Part
	sent    [][]*genai.Part
}

func (c *scriptedChat) Send(_ context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error) {
	c.sent = append(c.sent, parts)
	if len(c.answers) == 0 {
		return nil, errors.New("script exhausted")
	}
	next := c.answers[0]
	c.answers = c.answers[1:]
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{next}}}},
	}, nil
}

func march() *planner.Report {
	l := planner.NewLedger()
	l.IncomeData = planner.RowTable{{ID: "i1", Label: "Salary", Planned: planner.NewAmount(5000), Actual: planner.NewAmount(5000)}}
	l.ExpenseData = planner.RowTable{{ID: "e1", Label: "Rent", Planned: planner.NewAmount(1200), Actual: planner.NewAmount(1400)}}
	return planner.NewReport("u1", date.NewMonth(2025, time.March), "USD", l, decimal.NewFromInt(100))
}

func loader(ctx context.Context, m date.Month) (*planner.Report, error) {
	if m != date.NewMonth(2025, time.March) {
		return nil, errors.New("no ledger for " + m.String())
	}
	return march(), nil
}

func TestInstructions(t *testing.T) {
	got := Instructions(march())
	for _, want := range []string{"Budgeting Guide", "Finance Dashboard March 2025", "Rent"} {
		if !strings.Contains(got, want) {
			t.Errorf("Instructions() does not contain %q", want)
		}
	}
}

func TestAsk_FunctionCalls(t *testing.T) {
	chat := &scriptedChat{answers: []*genai.Part{
		{FunctionCall: &genai.FunctionCall{ID: "c1", Name: monthTool, Args: map[string]any{"month": "2025-03"}}},
		{Text: "Rent is $200 over plan."},
	}}
	e := New("", march(), loader)
	e.Attach(chat)

	got, err := e.Ask(context.Background(), &genai.Part{Text: "how is march?"})
	if err != nil {
		t.Fatalf("Ask() failed: %v", err)
	}
	if want := "Rent is $200 over plan."; got != want {
		t.Errorf("Ask() = %q, want %q", got, want)
	}
	if len(chat.sent) != 2 {
		t.Fatalf("chat received %d messages, want 2", len(chat.sent))
	}
	resp := chat.sent[1][0].FunctionResponse
	if resp == nil || resp.ID != "c1" {
		t.Fatalf("second message = %+v, want the function response of c1", chat.sent[1][0])
	}
	out, _ := resp.Response["output"].(string)
	if !strings.Contains(out, "Salary") {
		t.Errorf("month_dashboard output = %q, want the march dashboard", out)
	}
}

func TestLibrary(t *testing.T) {
	lib := NewLibrary([]Function{MonthDashboard(loader), Documentation()})
	ctx := context.Background()

	tests := []struct {
		name    string
		call    *genai.FunctionCall
		wantKey string
	}{
		{"month", &genai.FunctionCall{Name: monthTool, Args: map[string]any{"month": "2025-03"}}, "output"},
		{"unknown month", &genai.FunctionCall{Name: monthTool, Args: map[string]any{"month": "2025-04"}}, "error"},
		{"invalid month", &genai.FunctionCall{Name: monthTool, Args: map[string]any{"month": "march"}}, "error"},
		{"missing month", &genai.FunctionCall{Name: monthTool, Args: map[string]any{}}, "error"},
		{"topic", &genai.FunctionCall{Name: topicTool, Args: map[string]any{"topic": "balance"}}, "output"},
		{"unknown topic", &genai.FunctionCall{Name: topicTool, Args: map[string]any{"topic": "nope"}}, "error"},
		{"unknown function", &genai.FunctionCall{Name: "nope"}, "error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := lib(ctx, tc.call)
			if _, ok := resp.Response[tc.wantKey]; !ok {
				t.Errorf("response = %v, want a %q key", resp.Response, tc.wantKey)
			}
		})
	}
}

func TestAsk_Errors(t *testing.T) {
	e := New("", nil, nil)
	if _, err := e.Ask(context.Background(), &genai.Part{Text: "hi"}); err == nil {
		t.Error("Ask() before Start succeeded")
	}

	calls := make([]*genai.Part, maxCalls+1)
	for i := range calls {
		calls[i] = &genai.Part{FunctionCall: &genai.FunctionCall{Name: topicTool, Args: map[string]any{"topic": "ledger"}}}
	}
	e.Attach(&scriptedChat{answers: calls})
	if _, err := e.Ask(context.Background(), &genai.Part{Text: "loop"}); err == nil {
		t.Error("Ask() with endless function calls succeeded")
	}
}

func TestSession(t *testing.T) {
	chat := &scriptedChat{answers: []*genai.Part{{Text: "first"}, {Text: "second"}}}
	e := New("", nil, nil)
	e.Attach(chat)

	var out bytes.Buffer
	s := NewSession(&out, strings.NewReader("next question\nbye\nnever asked\n"), e)
	if err := s.Run(context.Background(), nil, "opening question"); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{"assist> opening question", "first", "second"} {
		if !strings.Contains(got, want) {
			t.Errorf("session output does not contain %q:\n%s", want, got)
		}
	}
	if len(chat.sent) != 2 {
		t.Errorf("chat received %d questions, want 2", len(chat.sent))
	}
}
