// Package planner keeps a personal monthly budget on the local device and
// reconciles it with a remote backend.
//
// The core of the package is the monthly ledger: three row tables (income,
// expenses and debts) edited cell by cell, from which the dashboard metrics
// are derived. The package provides:
//   - Row tables: rows with a sanitized label and optional planned and actual
//     amounts, locked rows that cannot be edited or deleted.
//   - Metrics: balance, savings rate, variances and debt progress of a month.
//   - Local store: ledgers, starting balances and preferences persisted per
//     user in a key-value storage, ledgers encrypted at rest.
//   - Balance synchronization: the starting balance of a month kept in the
//     remote monthly_budgets collection, with a local copy for offline use.
//   - Optimistic mutations: remote records edited in a local cache first and
//     rolled back when the backend refuses the change.
//   - Exports: a month as CSV or spreadsheet, and a full JSON backup.
//
// This package serves as the foundational logic for the plan command-line
// tool.
package planner
