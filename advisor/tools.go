package advisor

import (
	"context"
	"fmt"

	"github.com/etnz/planner"
	"github.com/etnz/planner/date"
	"github.com/etnz/planner/docs"
	"github.com/etnz/planner/renderer"
	"google.golang.org/genai"
)

// Func implements a Function with a declaration and a closure.
type Func struct {
	Decl *genai.FunctionDeclaration
	Func func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }
func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	return f.Func(ctx, id, args)
}

// ReportLoader returns the report of a month.
type ReportLoader func(ctx context.Context, m date.Month) (*planner.Report, error)

const monthTool = "month_dashboard"

// MonthDashboard lets the model read the dashboard of any month.
func MonthDashboard(load ReportLoader) *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: monthTool,
			Description: `Returns the finance dashboard of a month as markdown: the starting balance,
the income, expense and debt tables with planned and actual amounts, variances and the savings rate.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"month": {
						Type:        genai.TypeString,
						Description: "The month in the YYYY-MM format.",
					},
				},
				Required: []string{"month"},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "The markdown dashboard.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			s, ok := args["month"].(string)
			if !ok {
				return failure(id, monthTool, fmt.Sprintf("argument 'month' must be a string, got %T", args["month"]))
			}
			m, err := date.ParseMonth(s)
			if err != nil {
				return failure(id, monthTool, err.Error())
			}
			r, err := load(ctx, m)
			if err != nil {
				return failure(id, monthTool, err.Error())
			}
			return output(id, monthTool, renderer.MonthMarkdown(r))
		},
	}
}

const topicTool = "documentation"

// Documentation lets the model read a documentation topic.
func Documentation() *Func {
	topics, _ := docs.GetAllTopics()
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        topicTool,
			Description: "Returns a documentation topic of the application as markdown.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"topic": {
						Type:        genai.TypeString,
						Description: "The topic name.",
						Enum:        topics,
					},
				},
				Required: []string{"topic"},
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			name, _ := args["topic"].(string)
			content, err := docs.GetTopic(name)
			if err != nil {
				return failure(id, topicTool, err.Error())
			}
			return output(id, topicTool, content)
		},
	}
}
