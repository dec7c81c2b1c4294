package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

type loginCmd struct {
	register bool
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in to the backend" }
func (*loginCmd) Usage() string {
	return `plan login [-register] [-password <password>] <email>

  Signs in to the backend of remote.url and saves the session in the local
  store. The password is read from PLANNER_PASSWORD when not given.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.register, "register", false, "Create the account first.")
	f.StringVar(&c.password, "password", "", "The password.")
}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		errorf("an email is required")
		return subcommands.ExitUsageError
	}
	password := c.password
	if password == "" {
		password = os.Getenv("PLANNER_PASSWORD")
	}
	e, err := openEnv(ctx)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer e.close()
	if e.client == nil {
		errorf("remote.url is not configured")
		return subcommands.ExitFailure
	}

	s, err := e.client.SignIn(ctx, f.Arg(0), password, c.register)
	if err != nil {
		errorf("sign in failed: %v", err)
		return subcommands.ExitFailure
	}
	if err := e.store.Storage().Set(ctx, sessionKey, s.Token); err != nil {
		errorf("cannot save session: %v", err)
		return subcommands.ExitFailure
	}
	successf(stdout, "Signed in as %s (%s).", f.Arg(0), s.UserID)
	return subcommands.ExitSuccess
}
