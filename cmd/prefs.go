package cmd

import (
	"context"
	"flag"
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/planner"
	"github.com/google/subcommands"
)

type prefCmd struct{}

func (*prefCmd) Name() string     { return "pref" }
func (*prefCmd) Synopsis() string { return "get or set a preference" }
func (*prefCmd) Usage() string {
	return fmt.Sprintf(`plan pref [<key> [<value>]]

  Without argument, lists the preferences. Keys: %s.
`, strings.Join(planner.PreferenceKeys, ", "))
}

func (*prefCmd) SetFlags(*flag.FlagSet) {}

func (*prefCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() > 2 || (f.NArg() > 0 && !slices.Contains(planner.PreferenceKeys, f.Arg(0))) {
		errorf("usage: plan pref [<key> [<value>]]; keys: %s", strings.Join(planner.PreferenceKeys, ", "))
		return subcommands.ExitUsageError
	}
	e, err := openEnv(ctx)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer e.close()

	switch f.NArg() {
	case 0:
		prefs, err := e.store.Preferences(ctx)
		if err != nil {
			errorf("%v", err)
			return subcommands.ExitFailure
		}
		for _, k := range planner.PreferenceKeys {
			if v, ok := prefs[k]; ok {
				fmt.Fprintf(stdout, "%s=%s\n", k, v)
			}
		}
	case 1:
		fmt.Fprintln(stdout, e.store.Preference(ctx, f.Arg(0), ""))
	case 2:
		if err := e.store.SetPreference(ctx, f.Arg(0), f.Arg(1)); err != nil {
			errorf("%v", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
