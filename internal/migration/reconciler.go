package migration

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vestforge/escrow-migrator/internal/ledger"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// AccountReconciler builds one AccountSnapshot per candidate account by
// querying both ledgers
type AccountReconciler struct {
	source ledger.SourceLedger
	target ledger.TargetLedger
	logger *logrus.Entry

	warningCount int
}

// NewAccountReconciler creates a new account reconciler
func NewAccountReconciler(source ledger.SourceLedger, target ledger.TargetLedger) *AccountReconciler {
	return &AccountReconciler{
		source: source,
		target: target,
		logger: utils.ComponentLogger("reconciler"),
	}
}

// Reconcile builds snapshots for every account in input order. Accounts are
// processed one at a time to bound load on the ledger client; the three
// independent source reads of each account run concurrently.
func (r *AccountReconciler) Reconcile(ctx context.Context, accounts []common.Address) ([]AccountSnapshot, error) {
	r.warningCount = 0
	snapshots := make([]AccountSnapshot, 0, len(accounts))

	for _, account := range accounts {
		snapshot, err := r.reconcileAccount(ctx, account)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	r.logger.WithFields(logrus.Fields{
		"accounts": len(snapshots),
		"warnings": r.warningCount,
	}).Info("Reconciliation complete")

	return snapshots, nil
}

// WarningCount returns the number of data-quality warnings flagged during
// the last Reconcile call
func (r *AccountReconciler) WarningCount() int {
	return r.warningCount
}

// reconcileAccount assembles one snapshot from both ledgers
func (r *AccountReconciler) reconcileAccount(ctx context.Context, account common.Address) (AccountSnapshot, error) {
	snapshot := AccountSnapshot{Address: account}

	pending, err := r.target.PendingMigrationAmount(ctx, account)
	if err != nil {
		return snapshot, err
	}
	escrowed, err := r.target.EscrowedBalance(ctx, account)
	if err != nil {
		return snapshot, err
	}
	numEntries, err := r.target.NumVestingEntries(ctx, account)
	if err != nil {
		return snapshot, err
	}

	snapshot.Pending = pending.Sign() > 0
	snapshot.HasEscrowBalance = escrowed.Sign() > 0
	snapshot.NumVestingEntries = numEntries

	var (
		wg       sync.WaitGroup
		balance  *big.Int
		vested   *big.Int
		schedule []*big.Int

		balanceErr, vestedErr, scheduleErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		balance, balanceErr = r.source.EscrowedBalance(ctx, account)
	}()
	go func() {
		defer wg.Done()
		vested, vestedErr = r.source.VestedBalance(ctx, account)
	}()
	go func() {
		defer wg.Done()
		schedule, scheduleErr = r.source.Schedule(ctx, account)
	}()
	wg.Wait()

	for _, err := range []error{balanceErr, vestedErr, scheduleErr} {
		if err != nil {
			return snapshot, err
		}
	}

	snapshot.Balance = balance
	snapshot.Vested = vested
	snapshot.Schedule = r.flattenSchedule(account, schedule)

	r.logger.WithFields(logrus.Fields{
		"account":   account.Hex(),
		"balance":   balance.String(),
		"vested":    vested.String(),
		"entries":   len(snapshot.Schedule),
		"pending":   snapshot.Pending,
		"escrowed":  snapshot.HasEscrowBalance,
	}).Debug("Account reconciled")

	return snapshot, nil
}

// flattenSchedule walks the raw flat sequence in consecutive
// (timestamp, amount) pairs. A (0,0) pair is a padding slot and is dropped.
// A pair with exactly one zero field is anomalous: flagged as a data-quality
// warning but kept as-is. Order is preserved.
func (r *AccountReconciler) flattenSchedule(account common.Address, raw []*big.Int) []ScheduleEntry {
	var entries []ScheduleEntry

	for i := 0; i+1 < len(raw); i += 2 {
		timestamp, amount := raw[i], raw[i+1]

		tsZero := timestamp.Sign() == 0
		amtZero := amount.Sign() == 0

		if tsZero && amtZero {
			continue
		}

		if tsZero || amtZero {
			r.warningCount++
			r.logger.WithFields(logrus.Fields{
				"account":   account.Hex(),
				"timestamp": timestamp.String(),
				"amount":    amount.String(),
			}).Warn("Anomalous vesting entry with a single zero field, keeping as-is")
		}

		entries = append(entries, ScheduleEntry{Timestamp: timestamp, Amount: amount})
	}

	if len(raw)%2 != 0 {
		r.warningCount++
		r.logger.WithFields(logrus.Fields{
			"account":  account.Hex(),
			"trailing": raw[len(raw)-1].String(),
		}).Warn("Flat schedule has an odd trailing value, dropping it")
	}

	return entries
}
