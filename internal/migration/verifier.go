package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vestforge/escrow-migrator/internal/ledger"
	"github.com/vestforge/escrow-migrator/internal/metrics"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// Verifier re-reads the target ledger after execution and reports accounts
// whose post-state does not match the expected final state. Mismatches are
// collected and logged, never raised.
type Verifier struct {
	target         ledger.TargetLedger
	metricsManager *metrics.Manager
	logger         *logrus.Entry
}

// NewVerifier creates a new verifier
func NewVerifier(target ledger.TargetLedger) *Verifier {
	return &Verifier{
		target: target,
		logger: utils.ComponentLogger("verifier"),
	}
}

// SetMetricsManager wires prometheus metrics into the verifier
func (v *Verifier) SetMetricsManager(manager *metrics.Manager) {
	v.metricsManager = manager
}

// Verify checks every original snapshot against current target state.
// A nonzero pending amount means the balance migration is incomplete; an
// entry count different from the processed schedule length means the import
// is incomplete or entries were lost. Read failures abort: they are
// connectivity errors, not mismatches.
func (v *Verifier) Verify(ctx context.Context, snapshots []AccountSnapshot) ([]VerificationIssue, error) {
	var issues []VerificationIssue

	for _, snapshot := range snapshots {
		start := time.Now()
		pending, err := v.target.PendingMigrationAmount(ctx, snapshot.Address)
		v.recordRead("pendingMigrationAmount", start, err)
		if err != nil {
			return issues, err
		}

		start = time.Now()
		numEntries, err := v.target.NumVestingEntries(ctx, snapshot.Address)
		v.recordRead("numVestingEntries", start, err)
		if err != nil {
			return issues, err
		}

		if pending.Sign() != 0 {
			issues = append(issues, v.report(snapshot, IssuePendingNotConsumed,
				fmt.Sprintf("pending migration amount is %s, expected 0", pending.String())))
		}

		if numEntries != uint64(len(snapshot.Schedule)) {
			issues = append(issues, v.report(snapshot, IssueEntryCountMismatch,
				fmt.Sprintf("target holds %d vesting entries, expected %d",
					numEntries, len(snapshot.Schedule))))
		}
	}

	v.logger.WithFields(logrus.Fields{
		"accounts": len(snapshots),
		"issues":   len(issues),
	}).Info("Verification complete")

	return issues, nil
}

// recordRead observes one target read in the ledger metrics
func (v *Verifier) recordRead(method string, start time.Time, err error) {
	if v.metricsManager != nil {
		v.metricsManager.GetPrometheusMetrics().RecordLedgerRead("target", method, time.Since(start), err)
	}
}

// report logs and records one mismatch
func (v *Verifier) report(snapshot AccountSnapshot, kind, detail string) VerificationIssue {
	v.logger.WithFields(logrus.Fields{
		"account": snapshot.Address.Hex(),
		"kind":    kind,
		"detail":  detail,
	}).Warn("Verification mismatch")

	if v.metricsManager != nil {
		v.metricsManager.GetPrometheusMetrics().RecordVerificationMismatch(kind)
	}

	return VerificationIssue{
		Address: snapshot.Address,
		Kind:    kind,
		Detail:  detail,
	}
}
