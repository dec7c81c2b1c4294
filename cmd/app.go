// Package cmd implements the plan command line application: the monthly
// ledger, the starting balance, the exports, the remote entities and the
// backend server.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"

	"github.com/etnz/planner"
	"github.com/etnz/planner/config"
	"github.com/etnz/planner/date"
	"github.com/etnz/planner/remote"
	"github.com/etnz/planner/storage"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", "", "Path to the configuration file (default $HOME/.planner/config.yaml)")
	userFlag   = flag.String("user", "", "User id, overrides user.id of the configuration")
	Verbose    = flag.Bool("v", false, "Log debug messages")
)

// Commands lists every subcommand, with its group.
var Commands = []struct {
	Command subcommands.Command
	Group   string
}{
	{&monthCmd{}, "ledger"},
	{&monthsCmd{}, "ledger"},
	{&addRowCmd{}, "ledger"},
	{&setCmd{}, "ledger"},
	{&rmRowCmd{}, "ledger"},
	{&balanceCmd{}, "balance"},
	{&syncCmd{}, "balance"},
	{&watchCmd{}, "balance"},
	{&exportCmd{}, "export"},
	{&tasksCmd{}, "entities"},
	{&prefCmd{}, "settings"},
	{&loginCmd{}, "settings"},
	{&serveCmd{}, "backend"},
	{&assistCmd{}, "help"},
	{&topicCmd{}, "help"},
}

// Register the subcommands.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands {
		c.Register(cmd.Command, cmd.Group)
	}
}

// sessionKey is the storage key of the session token saved by login.
const sessionKey = "session_token"

// env bundles what commands need, opened from the configuration.
type env struct {
	cfg     *config.Config
	log     *logrus.Logger
	store   *planner.Store
	close   func() error
	client  *remote.Client
	session remote.Session
	userID  string
}

func openStorage(ctx context.Context, c config.StorageConfig) (storage.Storage, func() error, error) {
	noop := func() error { return nil }
	switch c.Driver {
	case "memory":
		return storage.NewMemory(), noop, nil
	case "sqlite", "postgres":
		s, err := storage.OpenSQL(ctx, c.Driver, c.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := storage.NewDir(c.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
}

// openEnv loads the configuration and opens the local store and the remote
// client. The user id comes from -user, then user.id, then the session.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	log := cfg.NewLogger()
	if *Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	s, closer, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("cannot open local storage: %w", err)
	}
	e := &env{cfg: cfg, log: log, store: planner.NewStore(s, log), close: closer}

	token := cfg.Remote.Token
	if token == "" {
		token, _ = s.Get(ctx, sessionKey)
	}
	if token != "" {
		if e.session, err = remote.NewSession(token); err != nil {
			log.WithError(err).Warn("ignoring session token")
		}
	}
	if cfg.Remote.URL != "" {
		e.client, err = remote.NewClient(cfg.Remote.URL, e.session,
			remote.WithHTTPClient(&http.Client{Timeout: cfg.Remote.Timeout}),
			remote.WithLogger(log))
		if err != nil {
			closer()
			return nil, err
		}
	}

	e.userID = cfg.User.ID
	if *userFlag != "" {
		e.userID = *userFlag
	}
	if e.userID == "" {
		e.userID = e.session.UserID
	}
	return e, nil
}

var errNoUser = errors.New("no user: set user.id in the configuration, use -user or run plan login")

// user returns the current user id.
func (e *env) user() (string, error) {
	if e.userID == "" {
		return "", errNoUser
	}
	return e.userID, nil
}

// collection returns a remote collection, one that is always offline when
// no backend is configured.
func (e *env) collection(name string) remote.Collection {
	if e.client == nil {
		return remote.Offline(name)
	}
	return e.client.Collection(name)
}

func (e *env) collections() []remote.Collection {
	var cols []remote.Collection
	for _, name := range remote.Names() {
		cols = append(cols, e.collection(name))
	}
	return cols
}

func (e *env) synchronizer() *planner.Synchronizer {
	return planner.NewSynchronizer(e.collection(remote.MonthlyBudgets), e.store, e.log)
}

func (e *env) currency(ctx context.Context) string {
	return e.store.Preference(ctx, planner.PrefCurrency, e.cfg.User.Currency)
}

// report loads the ledger and the starting balance of a month.
func (e *env) report(ctx context.Context, m date.Month) (*planner.Report, error) {
	user, err := e.user()
	if err != nil {
		return nil, err
	}
	l := e.store.Load(ctx, user, m)
	start := e.synchronizer().StartingBalance(ctx, user, m)
	return planner.NewReport(user, m, e.currency(ctx), l, start), nil
}

// editor returns an editor of the month committing to the store.
func (e *env) editor(ctx context.Context, m date.Month) (*planner.Editor, error) {
	user, err := e.user()
	if err != nil {
		return nil, err
	}
	return planner.NewEditor(e.store.Load(ctx, user, m), e.store.Committer(user, m),
		planner.WithDebounce(e.cfg.Editor.Debounce),
		planner.WithLogger(e.log)), nil
}

// monthFlag is a flag.Value of a month, the current one by default.
type monthFlag struct{ date.Month }

func (f *monthFlag) String() string {
	if f.IsZero() {
		return date.ThisMonth().String()
	}
	return f.Month.String()
}

func (f *monthFlag) Set(s string) error {
	m, err := date.ParseMonth(s)
	if err != nil {
		return err
	}
	f.Month = m
	return nil
}

// Value returns the month, the current one when not set.
func (f *monthFlag) Value() date.Month {
	if f.IsZero() {
		return date.ThisMonth()
	}
	return f.Month
}

// tableFlag is a flag.Value of a ledger table.
type tableFlag struct {
	planner.TableKind
	set bool
}

func (f *tableFlag) Set(s string) error {
	k, err := planner.ParseTableKind(s)
	if err != nil {
		return err
	}
	f.TableKind, f.set = k, true
	return nil
}
