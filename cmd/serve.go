package cmd

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/planner/backend"
	"github.com/etnz/planner/config"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

type serveCmd struct {
	address string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the backend server" }
func (*serveCmd) Usage() string {
	return `plan serve [-addr <host:port>]

  Serves the remote collections and the sign in endpoints, backed by the
  database of the server section of the configuration.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.address, "addr", "", "The listen address, overrides server.address.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := config.Load(*configFile)
	if err != nil {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	log := cfg.NewLogger()
	if *Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	addr := cfg.Server.Address
	if c.address != "" {
		addr = c.address
	}

	db, err := backend.Open(ctx, cfg.Server.Driver, cfg.Server.DSN, backend.WithPasswordCost(cfg.Server.BcryptCost))
	if err != nil {
		errorf("cannot open backend database: %v", err)
		return subcommands.ExitFailure
	}
	defer db.Close()
	auth, err := backend.NewAuth(cfg.Server.JWTSecret, time.Duration(cfg.Server.TokenHours)*time.Hour)
	if err != nil {
		errorf("%v: set server.jwt_secret or PLANNER_SERVER_JWT_SECRET", err)
		return subcommands.ExitFailure
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           backend.NewServer(db, auth, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.WithError(err).Error("shutdown failed")
		}
	}()

	log.WithField("address", addr).Info("backend listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errorf("%v", err)
		return subcommands.ExitFailure
	}
	log.Info("backend stopped")
	return subcommands.ExitSuccess
}
