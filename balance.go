package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/planner/date"
	"github.com/etnz/planner/remote"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BalanceCategory is the category of the monthly_budgets records holding the
// starting balance of a month.
const BalanceCategory = "total_balance"

// WarningKind classifies a failed remote write.
type WarningKind int

const (
	// Transient failures (network, backend down) go away by retrying later.
	Transient WarningKind = iota
	// SchemaMismatch failures come from data the backend does not accept
	// (missing field, unknown column) and need someone to act.
	SchemaMismatch
)

// SyncWarning reports that a starting balance was saved locally but not
// remotely. It is not a failure: the local value stands and the remote write
// is retried by Flush.
type SyncWarning struct {
	Month date.Month
	Kind  WarningKind
	Err   error
}

func (w *SyncWarning) Error() string {
	switch w.Kind {
	case SchemaMismatch:
		return fmt.Sprintf("balance of %s saved locally; the backend rejected it (%v), check that the backend schema is up to date", w.Month, w.Err)
	default:
		return fmt.Sprintf("balance of %s saved locally; will sync later (%v)", w.Month, w.Err)
	}
}

func (w *SyncWarning) Unwrap() error { return w.Err }

// IsWarning reports whether err is a *SyncWarning, a non fatal outcome.
func IsWarning(err error) bool {
	var w *SyncWarning
	return errors.As(err, &w)
}

// Synchronizer keeps the starting balance of each month authoritative in the
// remote monthly_budgets collection, with the local store as fallback.
//
// The local value is always written first and is never rolled back: a
// remote failure leaves the month pending until Flush succeeds. When both
// sides disagree the remote wins on read, the last write wins on write.
type Synchronizer struct {
	budgets remote.Collection
	store   *Store
	log     *logrus.Logger
}

// NewSynchronizer returns a synchronizer over the monthly_budgets collection.
func NewSynchronizer(budgets remote.Collection, store *Store, log *logrus.Logger) *Synchronizer {
	return &Synchronizer{budgets: budgets, store: store, log: orDiscard(log)}
}

// find returns the balance record of the month, nil if there is none.
func (s *Synchronizer) find(ctx context.Context, m date.Month) (remote.Record, error) {
	rs, err := s.budgets.Select(ctx, remote.SelectOptions{
		Build: func(q *remote.Query) {
			q.Eq("month", m.String()).Eq("category", BalanceCategory)
		},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, nil
	}
	return rs[0], nil
}

// StartingBalance returns the starting balance of the month: the remote
// value when reachable, else the local copy, else 0. It never fails.
//
// A month still pending a remote write returns the local value, which is
// newer.
func (s *Synchronizer) StartingBalance(ctx context.Context, userID string, m date.Month) decimal.Decimal {
	local, hasLocal := s.store.LocalBalance(ctx, userID, m)
	if hasLocal && s.isPending(ctx, userID, m) {
		return local
	}

	r, err := s.find(ctx, m)
	switch {
	case err != nil:
		s.log.WithError(err).WithField("month", m).Warn("remote balance unavailable, using local copy")
	case r != nil:
		if v, ok := recordAmount(r); ok {
			if !hasLocal || !v.Equal(local) {
				// keep the shadow copy fresh for the next offline read.
				if err := s.store.SetLocalBalance(ctx, userID, m, v); err != nil {
					s.log.WithError(err).Warn("cannot cache remote balance")
				}
			}
			return v
		}
		s.log.WithField("month", m).Warn("remote balance record has no amount")
	}
	if hasLocal {
		return local
	}
	return decimal.Zero
}

func recordAmount(r remote.Record) (decimal.Decimal, bool) {
	switch v := r["amount"].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	}
	return decimal.Zero, false
}

// SetStartingBalance saves the starting balance of the month locally, then
// remotely. The local write is the only one that can fail the call; a failed
// remote write is reported as a *SyncWarning.
func (s *Synchronizer) SetStartingBalance(ctx context.Context, userID string, m date.Month, v decimal.Decimal) error {
	if err := s.store.SetLocalBalance(ctx, userID, m, v); err != nil {
		return fmt.Errorf("cannot save balance of %s: %w", m, err)
	}
	if err := s.push(ctx, m, v); err != nil {
		if perr := s.store.markPending(ctx, userID, m); perr != nil {
			s.log.WithError(perr).Error("cannot mark balance as pending")
		}
		w := &SyncWarning{Month: m, Kind: classify(err), Err: err}
		s.log.WithError(err).WithField("month", m).Warn("balance saved locally only")
		return w
	}
	if err := s.store.clearPending(ctx, userID, m); err != nil {
		s.log.WithError(err).Warn("cannot clear pending balance")
	}
	return nil
}

// push writes the value to the remote record of the month, updating the
// existing one or creating it.
func (s *Synchronizer) push(ctx context.Context, m date.Month, v decimal.Decimal) error {
	r, err := s.find(ctx, m)
	if err != nil {
		return err
	}
	amount := v.InexactFloat64()
	if r != nil {
		_, err = s.budgets.Update(ctx, r.ID(), remote.Record{"amount": amount})
		return err
	}
	_, err = s.budgets.Create(ctx, remote.Record{
		"month":    m.String(),
		"category": BalanceCategory,
		"amount":   amount,
	})
	return err
}

func classify(err error) WarningKind {
	if remote.IsSchemaError(err) {
		return SchemaMismatch
	}
	return Transient
}

func (s *Synchronizer) isPending(ctx context.Context, userID string, m date.Month) bool {
	months, err := s.store.PendingBalances(ctx, userID)
	if err != nil {
		return false
	}
	return slices.Contains(months, m)
}

// Flush retries the remote write of every pending month. It returns the
// months that reached the remote, and the joined errors of the others.
func (s *Synchronizer) Flush(ctx context.Context, userID string) ([]date.Month, error) {
	months, err := s.store.PendingBalances(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cannot list pending balances: %w", err)
	}
	var synced []date.Month
	var errs []error
	for _, m := range months {
		v, ok := s.store.LocalBalance(ctx, userID, m)
		if !ok {
			// nothing to push anymore.
			_ = s.store.clearPending(ctx, userID, m)
			continue
		}
		if err := s.push(ctx, m, v); err != nil {
			errs = append(errs, &SyncWarning{Month: m, Kind: classify(err), Err: err})
			continue
		}
		if err := s.store.clearPending(ctx, userID, m); err != nil {
			errs = append(errs, err)
			continue
		}
		s.log.WithField("month", m).Info("balance synced")
		synced = append(synced, m)
	}
	return synced, errors.Join(errs...)
}
