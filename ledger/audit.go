/*
audit.go - Balance/ledger reconciliation check

PURPOSE:
  The verifiable invariant behind the whole engine: for every user,
  balance == sum of all BalanceSnapshot deltas since account creation.
  Any discrepancy is drift and means a mutation bypassed BalanceLedger
  or storage corrupted silently.

READ-ONLY:
  Runs independently of the mutation path, no locks. A check racing an
  in-flight settlement may see marginally stale state; the drift
  threshold absorbs nothing - 0.01 exists only to shrug off historical
  sub-paisa storage artifacts, never to excuse real drift.
*/
package ledger

import (
	"context"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// DriftThreshold is the tolerance before a user is flagged.
var DriftThreshold = money.MustParse("0.01")

// AuditResult is the reconciliation outcome for one user.
type AuditResult struct {
	UserID          string
	Balance         money.Money
	ExpectedBalance money.Money
	Drift           money.Money
	Flagged         bool
}

// Auditor replays snapshot history against stored balances.
type Auditor struct {
	Store Store
}

// NewAuditor binds the auditor to a store.
func NewAuditor(store Store) *Auditor {
	return &Auditor{Store: store}
}

// CheckUser computes the drift between a user's stored balance and the
// sum of their snapshot deltas.
func (a *Auditor) CheckUser(ctx context.Context, userID string) (*AuditResult, error) {
	u, err := a.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "load user", Err: err}
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	snaps, err := a.Store.SnapshotsByUser(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "load snapshots", Err: err}
	}

	expected := money.Zero()
	for _, s := range snaps {
		expected = expected.Add(s.AmountChange)
	}

	drift := u.Balance.Sub(expected)
	return &AuditResult{
		UserID:          userID,
		Balance:         u.Balance,
		ExpectedBalance: expected,
		Drift:           drift,
		Flagged:         drift.Abs().GreaterThan(DriftThreshold),
	}, nil
}

// CheckAll audits every user of a shop and returns the flagged ones.
func (a *Auditor) CheckAll(ctx context.Context, shopID string) ([]AuditResult, error) {
	users, err := a.Store.ListUsers(ctx, shopID)
	if err != nil {
		return nil, &PersistenceError{Op: "list users", Err: err}
	}

	var flagged []AuditResult
	for _, u := range users {
		r, err := a.CheckUser(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if r.Flagged {
			flagged = append(flagged, *r)
		}
	}
	return flagged, nil
}
