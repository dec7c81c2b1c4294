package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/etnz/planner/date"
	"github.com/etnz/planner/storage"
	"github.com/etnz/planner/vault"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Storage keys.
func ledgerKey(userID string, m date.Month) string {
	return fmt.Sprintf("finance_data_%s_%s", userID, m)
}

func balanceKey(userID string, m date.Month) string {
	return fmt.Sprintf("total_balance_%s_%s", userID, m)
}

func pendingKey(userID string, m date.Month) string {
	return fmt.Sprintf("total_balance_pending_%s_%s", userID, m)
}

// Preference keys, stored in clear.
const (
	PrefTheme            = "theme"
	PrefLanguage         = "language"
	PrefCurrency         = "currency"
	PrefNotifications    = "notifications"
	PrefHasSeenWelcome   = "hasSeenWelcome"
	PrefHasCompletedTour = "hasCompletedTour"
)

// PreferenceKeys lists the known preference keys.
var PreferenceKeys = []string{
	PrefTheme, PrefLanguage, PrefCurrency, PrefNotifications, PrefHasSeenWelcome, PrefHasCompletedTour,
}

// Store persists monthly ledgers encrypted per user, the local shadow of
// the starting balances, and the preferences.
type Store struct {
	s   storage.Storage
	log *logrus.Logger
}

// NewStore returns a store on s. log may be nil.
func NewStore(s storage.Storage, log *logrus.Logger) *Store {
	return &Store{s: s, log: orDiscard(log)}
}

// Storage returns the underlying storage.
func (st *Store) Storage() storage.Storage { return st.s }

// Save encrypts the ledger with the user's key and stores it under
// finance_data_{userID}_{month}. The last Save wins.
func (st *Store) Save(ctx context.Context, userID string, m date.Month, l MonthlyLedger) error {
	data, err := EncodeLedger(l)
	if err != nil {
		return err
	}
	blob, err := vault.Seal(userID, data)
	if err != nil {
		return fmt.Errorf("cannot encrypt ledger: %w", err)
	}
	if err := st.s.Set(ctx, ledgerKey(userID, m), blob); err != nil {
		return fmt.Errorf("cannot save ledger of %s: %w", m, err)
	}
	return nil
}

// Load returns the ledger of that user and month.
//
// The stored value is decrypted first; a value that does not decrypt is
// parsed as the plain JSON written by older versions. Anything else (absent,
// corrupted) yields an empty ledger: Load never fails.
func (st *Store) Load(ctx context.Context, userID string, m date.Month) MonthlyLedger {
	key := ledgerKey(userID, m)
	raw, err := st.s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			st.log.WithError(err).WithField("key", key).Warn("cannot read ledger")
		}
		return NewLedger()
	}
	l, err := st.decode(userID, raw)
	if err != nil {
		st.log.WithError(err).WithField("key", key).Warn("unreadable ledger, starting empty")
		return NewLedger()
	}
	return l
}

// decode decrypts then decodes raw, or decodes it as legacy plain JSON.
func (st *Store) decode(userID, raw string) (MonthlyLedger, error) {
	plain, derr := vault.Open(userID, raw)
	if derr == nil {
		return DecodeLedger(plain)
	}
	l, err := DecodeLedger([]byte(raw))
	if err != nil {
		return l, fmt.Errorf("neither encrypted (%v) nor plain json: %w", derr, err)
	}
	st.log.Debug("legacy plain json ledger")
	return l, nil
}

// Months returns the months for which the user has a stored ledger.
func (st *Store) Months(ctx context.Context, userID string) ([]date.Month, error) {
	return st.months(ctx, fmt.Sprintf("finance_data_%s_", userID))
}

// months returns the months of the keys made of prefix and a month. Keys of
// another user whose id starts like this one are skipped.
func (st *Store) months(ctx context.Context, prefix string) ([]date.Month, error) {
	keys, err := st.s.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var months []date.Month
	for _, k := range keys {
		if m, err := date.ParseMonth(strings.TrimPrefix(k, prefix)); err == nil {
			months = append(months, m)
		}
	}
	return months, nil
}

// Committer returns a CommitFunc saving the ledger of that user and month,
// to be used by an Editor.
func (st *Store) Committer(userID string, m date.Month) CommitFunc {
	return func(l MonthlyLedger) error {
		return st.Save(context.Background(), userID, m, l)
	}
}

// LocalBalance returns the shadow copy of the starting balance. ok is false
// when there is none or it is unreadable.
func (st *Store) LocalBalance(ctx context.Context, userID string, m date.Month) (v decimal.Decimal, ok bool) {
	raw, err := st.s.Get(ctx, balanceKey(userID, m))
	if err != nil {
		return decimal.Zero, false
	}
	v, err = decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		st.log.WithError(err).Warn("unreadable local balance")
		return decimal.Zero, false
	}
	return v, true
}

// SetLocalBalance writes the shadow copy of the starting balance.
func (st *Store) SetLocalBalance(ctx context.Context, userID string, m date.Month, v decimal.Decimal) error {
	return st.s.Set(ctx, balanceKey(userID, m), v.String())
}

// markPending records that the balance of m still has to reach the remote.
func (st *Store) markPending(ctx context.Context, userID string, m date.Month) error {
	return st.s.Set(ctx, pendingKey(userID, m), "1")
}

func (st *Store) clearPending(ctx context.Context, userID string, m date.Month) error {
	return st.s.Delete(ctx, pendingKey(userID, m))
}

// PendingBalances returns the months whose starting balance was saved
// locally but not yet accepted by the remote.
func (st *Store) PendingBalances(ctx context.Context, userID string) ([]date.Month, error) {
	return st.months(ctx, fmt.Sprintf("total_balance_pending_%s_", userID))
}

// balanceMonths returns the months with a local starting balance.
func (st *Store) balanceMonths(ctx context.Context, userID string) ([]date.Month, error) {
	return st.months(ctx, fmt.Sprintf("total_balance_%s_", userID))
}

// Preferences returns the stored preference scalars.
func (st *Store) Preferences(ctx context.Context) (map[string]string, error) {
	prefs := make(map[string]string)
	for _, k := range PreferenceKeys {
		v, err := st.s.Get(ctx, k)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		prefs[k] = v
	}
	return prefs, nil
}

// Preference returns a preference or def when it is not set.
func (st *Store) Preference(ctx context.Context, key, def string) string {
	v, err := st.s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// SetPreference stores a preference scalar.
func (st *Store) SetPreference(ctx context.Context, key, value string) error {
	if !slices.Contains(PreferenceKeys, key) {
		return fmt.Errorf("unknown preference %q", key)
	}
	return st.s.Set(ctx, key, value)
}

// PreferenceBool reads a boolean preference such as hasSeenWelcome.
func (st *Store) PreferenceBool(ctx context.Context, key string) bool {
	b, _ := strconv.ParseBool(st.Preference(ctx, key, "false"))
	return b
}
