package cmd

import (
	"context"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/etnz/planner"
	"github.com/etnz/planner/advisor"
	"github.com/etnz/planner/date"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

type assistCmd struct {
	month monthFlag
}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "chat with a budget advisor" }
func (*assistCmd) Usage() string {
	return `plan assist [-month <YYYY-MM>] [<question>...]

  Starts a conversation about the budget of the month with a Gemini model.
  The model is set by assist.model and the credentials are read from
  GEMINI_API_KEY. The arguments are asked first.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.month, "month", "The month to talk about (YYYY-MM).")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer e.close()
	current, err := e.report(ctx, c.month.Value())
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		errorf("cannot initialize the Gemini client: %v", err)
		return subcommands.ExitFailure
	}

	load := func(ctx context.Context, m date.Month) (*planner.Report, error) { return e.report(ctx, m) }
	s := advisor.NewSession(os.Stdout, os.Stdin, advisor.New(e.cfg.Assist.Model, current, load))
	s.Print = func(_ io.Writer, answer string) { printMarkdown(answer) }

	var prompts []string
	if f.NArg() > 0 {
		prompts = append(prompts, strings.Join(f.Args(), " "))
	}
	if err := s.Run(ctx, client, prompts...); err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
