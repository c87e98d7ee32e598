package migration

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vestforge/escrow-migrator/internal/journal"
	"github.com/vestforge/escrow-migrator/internal/ledger"
	"github.com/vestforge/escrow-migrator/internal/metrics"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// Options configures one migration run
type Options struct {
	DryRun          bool
	BalancePageSize int
	ImportPageSize  int
	EventName       string
}

// Runner drives one complete migration run:
// collect -> reconcile -> plan -> execute balances -> execute schedules -> verify.
// Strictly sequential; no component loops back within a run. Re-running is
// safe: pending and escrowed flags are recomputed from target state each run,
// so already-migrated accounts are naturally skipped.
type Runner struct {
	source         ledger.SourceLedger
	target         ledger.TargetLedger
	journal        journal.Journal
	metricsManager *metrics.Manager
	options        Options
	logger         *logrus.Entry
}

// NewRunner creates a migration runner
func NewRunner(source ledger.SourceLedger, target ledger.TargetLedger, options Options) *Runner {
	if options.EventName == "" {
		options.EventName = "VestingEntryCreated"
	}

	return &Runner{
		source:  source,
		target:  target,
		options: options,
		logger:  utils.ComponentLogger("runner"),
	}
}

// SetJournal wires the audit journal into the runner
func (r *Runner) SetJournal(j journal.Journal) {
	r.journal = j
}

// SetMetricsManager wires prometheus metrics into the runner
func (r *Runner) SetMetricsManager(manager *metrics.Manager) {
	r.metricsManager = manager
}

// Run executes one migration run and returns its summary. Connectivity and
// write failures abort the run; data-quality warnings and verification
// mismatches degrade to reporting.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	runID, err := utils.GenerateID()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeInternal, "Failed to generate run ID", err.Error())
	}

	summary := &Summary{
		RunID:  runID,
		DryRun: r.options.DryRun,
	}

	r.logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"dry_run": r.options.DryRun,
	}).Info("Starting migration run")

	// Discover participating accounts from historical events
	collector := NewEventCollector(r.source, r.options.EventName)
	accounts, err := collector.CollectAccounts(ctx)
	if err != nil {
		return nil, r.fail(ctx, summary, start, err)
	}
	summary.AccountsDiscovered = len(accounts)

	if r.metricsManager != nil {
		r.metricsManager.GetPrometheusMetrics().AccountsDiscovered.Set(float64(len(accounts)))
	}

	r.journalStart(ctx, summary, start)

	// Reconcile per-account state across both ledgers
	reconciler := NewAccountReconciler(r.source, r.target)
	snapshots, err := reconciler.Reconcile(ctx, accounts)
	if err != nil {
		return nil, r.fail(ctx, summary, start, err)
	}
	summary.DataQualityWarnings = reconciler.WarningCount()

	if r.metricsManager != nil {
		pm := r.metricsManager.GetPrometheusMetrics()
		pm.SnapshotsReconciled.Add(float64(len(snapshots)))
		pm.DataQualityWarnings.Add(float64(summary.DataQualityWarnings))
	}

	// Classify into the two work queues
	planner := NewMigrationPlanner()
	plan := planner.BuildPlan(snapshots)

	// Execute: all balance pages must commit before any import page.
	// The import queue was planned from pending flags captured at
	// reconciliation time; accounts migrated this run become pending on
	// chain only now, so their entries are imported by the next run.
	executor := NewBatchExecutor(r.target, r.options.DryRun, r.options.BalancePageSize, r.options.ImportPageSize)
	executor.SetMetricsManager(r.metricsManager)
	executor.SetPageObserver(func(phase string, page int, addresses []common.Address) {
		r.journalPage(ctx, runID, phase, page, addresses)
	})

	migrated, err := executor.ExecuteBalanceMigrations(ctx, plan.BalanceMigrations)
	summary.MigratedAccountCount = migrated
	if err != nil {
		return nil, r.fail(ctx, summary, start, err)
	}

	imported, err := executor.ExecuteScheduleImports(ctx, plan.ScheduleImports)
	summary.ImportedEntryCount = imported
	if err != nil {
		return nil, r.fail(ctx, summary, start, err)
	}

	// Verify post-conditions against live target state. In dry-run nothing
	// was written, so candidates still reporting unmigrated is expected.
	verifier := NewVerifier(r.target)
	verifier.SetMetricsManager(r.metricsManager)
	issues, err := verifier.Verify(ctx, snapshots)
	summary.VerificationIssues = issues
	if err != nil {
		return nil, r.fail(ctx, summary, start, err)
	}

	summary.Duration = time.Since(start)
	r.journalComplete(ctx, summary, start, journal.RunStatusCompleted, nil)

	if r.metricsManager != nil {
		r.metricsManager.GetPrometheusMetrics().RecordRun("completed", summary.Duration)
	}

	r.logger.WithFields(logrus.Fields{
		"run_id":              summary.RunID,
		"accounts_discovered": summary.AccountsDiscovered,
		"migrated_accounts":   summary.MigratedAccountCount,
		"imported_entries":    summary.ImportedEntryCount,
		"warnings":            summary.DataQualityWarnings,
		"verification_issues": len(summary.VerificationIssues),
		"duration":            summary.Duration.String(),
	}).Info("Migration run complete")

	return summary, nil
}

// fail finalizes the journal and metrics for an aborted run
func (r *Runner) fail(ctx context.Context, summary *Summary, start time.Time, err error) error {
	summary.Duration = time.Since(start)
	r.journalComplete(ctx, summary, start, journal.RunStatusFailed, err)

	if r.metricsManager != nil {
		r.metricsManager.GetPrometheusMetrics().RecordRun("failed", summary.Duration)
	}

	r.logger.WithError(err).WithField("run_id", summary.RunID).Error("Migration run failed")
	return err
}

// journalStart records the run start; journal failures are logged, never fatal
func (r *Runner) journalStart(ctx context.Context, summary *Summary, start time.Time) {
	if r.journal == nil {
		return
	}

	record := &journal.RunRecord{
		ID:                 summary.RunID,
		StartedAt:          start,
		DryRun:             summary.DryRun,
		Status:             journal.RunStatusRunning,
		AccountsDiscovered: summary.AccountsDiscovered,
	}
	if err := r.journal.StartRun(ctx, record); err != nil {
		r.logger.WithError(err).Warn("Failed to journal run start")
	}
}

// journalPage records one finished page
func (r *Runner) journalPage(ctx context.Context, runID, phase string, page int, addresses []common.Address) {
	if r.journal == nil {
		return
	}

	addrs := make([]string, len(addresses))
	for i, a := range addresses {
		addrs[i] = a.Hex()
	}

	record := &journal.PageRecord{
		RunID:       runID,
		Phase:       phase,
		PageIndex:   page,
		Size:        len(addresses),
		Addresses:   addrs,
		DryRun:      r.options.DryRun,
		CommittedAt: time.Now(),
	}
	if err := r.journal.RecordPage(ctx, record); err != nil {
		r.logger.WithError(err).Warn("Failed to journal page")
	}
}

// journalComplete records the run result and any verification issues
func (r *Runner) journalComplete(ctx context.Context, summary *Summary, start time.Time, status string, runErr error) {
	if r.journal == nil {
		return
	}

	now := time.Now()
	record := &journal.RunRecord{
		ID:                 summary.RunID,
		StartedAt:          start,
		CompletedAt:        &now,
		DryRun:             summary.DryRun,
		Status:             status,
		AccountsDiscovered: summary.AccountsDiscovered,
		MigratedAccounts:   summary.MigratedAccountCount,
		ImportedEntries:    summary.ImportedEntryCount,
		VerificationIssues: len(summary.VerificationIssues),
	}
	if runErr != nil {
		msg := runErr.Error()
		record.Error = &msg
	}
	if err := r.journal.CompleteRun(ctx, record); err != nil {
		r.logger.WithError(err).Warn("Failed to journal run completion")
	}

	for _, issue := range summary.VerificationIssues {
		record := &journal.IssueRecord{
			RunID:      summary.RunID,
			Address:    issue.Address.Hex(),
			Kind:       issue.Kind,
			Detail:     issue.Detail,
			RecordedAt: now,
		}
		if err := r.journal.RecordIssue(ctx, record); err != nil {
			r.logger.WithError(err).Warn("Failed to journal verification issue")
		}
	}
}
