// Package advisor is a chat assistant that reads the finance dashboard of
// the user and gives budgeting advice.
package advisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/planner"
	"github.com/etnz/planner/docs"
	"github.com/etnz/planner/renderer"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-pro"

// Instructions returns the system instruction of the advisor, grounded on
// the budgeting guide and the dashboard of the current month.
func Instructions(current *planner.Report) string {
	var b strings.Builder
	b.WriteString(`You are a personal budgeting advisor. The user keeps a monthly ledger of
income, expenses and debt repayments, each with a planned and an actual amount.
Answer with short, concrete advice in markdown. Quote the figures you rely on.
Use the tools to read other months or the documentation when needed.
Never invent amounts that are not in a dashboard.

`)
	if guide, err := docs.GetTopic("budgeting"); err == nil {
		b.WriteString(guide)
		b.WriteString("\n")
	}
	if current != nil {
		b.WriteString("The dashboard of the current month follows.\n\n")
		b.WriteString(renderer.MonthMarkdown(current))
	}
	return b.String()
}

// New returns the advisor expert for the current month. load gives access
// to the other months.
func New(model string, current *planner.Report, load ReportLoader) *Expert {
	if model == "" {
		model = DefaultModel
	}
	functions := []Function{Documentation()}
	if load != nil {
		functions = append(functions, MonthDashboard(load))
	}
	return &Expert{
		Name:      "Advisor",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(functions)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: Instructions(current)}}},
		},
		Library: NewLibrary(functions),
	}
}

const prompt = "assist> "

// Session is an interactive conversation with an expert.
type Session struct {
	w      io.Writer
	r      *bufio.Reader
	expert *Expert
	// Print writes an answer, plain text by default.
	Print func(w io.Writer, answer string)
}

// NewSession returns a session reading questions from r and writing answers
// to w.
func NewSession(w io.Writer, r io.Reader, e *Expert) *Session {
	return &Session{
		w:      w,
		r:      bufio.NewReader(r),
		expert: e,
		Print:  func(w io.Writer, answer string) { fmt.Fprintln(w, answer) },
	}
}

// Run asks the prompts first, then reads questions until "bye" or the end of
// the input. client may be nil when the expert is already started.
func (s *Session) Run(ctx context.Context, client *genai.Client, prompts ...string) error {
	if !s.expert.Started() {
		if client == nil {
			return errors.New("no model client")
		}
		if err := s.expert.Start(ctx, client); err != nil {
			return err
		}
	}

	fmt.Fprintln(s.w, "Ask about your budget. Type 'bye' to exit.")
	for {
		fmt.Fprint(s.w, prompt)
		var input string
		if len(prompts) > 0 {
			input, prompts = strings.TrimSpace(prompts[0]), prompts[1:]
			if input == "" {
				fmt.Fprintln(s.w)
				continue
			}
			fmt.Fprintln(s.w, input)
		} else {
			line, err := s.r.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			input = strings.TrimSpace(line)
			if input == "" && errors.Is(err, io.EOF) {
				fmt.Fprintln(s.w)
				return nil
			}
		}
		if input == "bye" {
			return nil
		}
		if input == "" {
			continue
		}

		answer, err := s.expert.Ask(ctx, &genai.Part{Text: input})
		if err != nil {
			return err
		}
		s.Print(s.w, answer)
	}
}
