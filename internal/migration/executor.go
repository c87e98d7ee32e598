package migration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vestforge/escrow-migrator/internal/ledger"
	"github.com/vestforge/escrow-migrator/internal/metrics"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// Execution phases
const (
	PhaseBalance  = "balance"
	PhaseSchedule = "schedule"
)

// WriteError reports a failed page write. Pages committed before the failure
// remain committed; no rollback is attempted or possible.
type WriteError struct {
	Phase     string
	Page      int
	Addresses []common.Address
	Err       error
}

func (e *WriteError) Error() string {
	addrs := make([]string, len(e.Addresses))
	for i, a := range e.Addresses {
		addrs[i] = a.Hex()
	}
	return fmt.Sprintf("%s: %s page %d failed for [%s]: %v",
		utils.ErrCodeWrite, e.Phase, e.Page, strings.Join(addrs, ", "), e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// PageObserver is notified of every page the executor finishes, committed
// or dry-run logged. Used for journaling.
type PageObserver func(phase string, page int, addresses []common.Address)

// BatchExecutor pages the work queues and issues one target-ledger write per
// page. Fail-fast: the first failed page aborts the remaining pages of its
// phase.
type BatchExecutor struct {
	target          ledger.TargetLedger
	dryRun          bool
	balancePageSize int
	importPageSize  int
	observer        PageObserver
	metricsManager  *metrics.Manager
	logger          *logrus.Entry
}

// NewBatchExecutor creates a new batch executor
func NewBatchExecutor(target ledger.TargetLedger, dryRun bool, balancePageSize, importPageSize int) *BatchExecutor {
	if balancePageSize <= 0 {
		balancePageSize = 50
	}
	if importPageSize <= 0 {
		importPageSize = 25
	}

	return &BatchExecutor{
		target:          target,
		dryRun:          dryRun,
		balancePageSize: balancePageSize,
		importPageSize:  importPageSize,
		logger:          utils.ComponentLogger("executor"),
	}
}

// SetPageObserver registers a callback invoked after every finished page
func (e *BatchExecutor) SetPageObserver(observer PageObserver) {
	e.observer = observer
}

// SetMetricsManager wires prometheus metrics into the executor
func (e *BatchExecutor) SetMetricsManager(manager *metrics.Manager) {
	e.metricsManager = manager
}

// ExecuteBalanceMigrations pages the balance queue and commits each page.
// Returns the number of accounts whose write call succeeded.
func (e *BatchExecutor) ExecuteBalanceMigrations(ctx context.Context, rows []BalanceMigration) (int, error) {
	pages := paginateBalances(rows, e.balancePageSize)
	committed := 0

	for i, page := range pages {
		e.logger.WithFields(logrus.Fields{
			"page":     i,
			"pages":    len(pages),
			"accounts": len(page.Addresses),
			"dry_run":  e.dryRun,
		}).Info("Executing balance migration page")

		if e.dryRun {
			e.logDryRunBalances(i, page)
		} else {
			start := time.Now()
			err := e.target.MigrateBalances(ctx, page.Addresses, page.Balances, page.Vested)
			if e.metricsManager != nil {
				e.metricsManager.GetPrometheusMetrics().RecordLedgerWrite("migrateBalances", time.Since(start), err)
			}
			if err != nil {
				return committed, &WriteError{Phase: PhaseBalance, Page: i, Addresses: page.Addresses, Err: err}
			}
			if e.metricsManager != nil {
				e.metricsManager.GetPrometheusMetrics().RecordPageCommitted(PhaseBalance, len(page.Addresses))
			}
		}

		committed += len(page.Addresses)
		if e.observer != nil {
			e.observer(PhaseBalance, i, page.Addresses)
		}
	}

	return committed, nil
}

// ExecuteScheduleImports pages the import queue and commits each page.
// Returns the number of entries whose write call succeeded.
func (e *BatchExecutor) ExecuteScheduleImports(ctx context.Context, rows []ImportRow) (int, error) {
	pages := paginateImports(rows, e.importPageSize)
	committed := 0

	for i, page := range pages {
		e.logger.WithFields(logrus.Fields{
			"page":    i,
			"pages":   len(pages),
			"entries": len(page.Addresses),
			"dry_run": e.dryRun,
		}).Info("Executing schedule import page")

		if e.dryRun {
			e.logDryRunImports(i, page)
		} else {
			start := time.Now()
			err := e.target.ImportSchedule(ctx, page.Addresses, page.Timestamps, page.Entries)
			if e.metricsManager != nil {
				e.metricsManager.GetPrometheusMetrics().RecordLedgerWrite("importSchedule", time.Since(start), err)
			}
			if err != nil {
				return committed, &WriteError{Phase: PhaseSchedule, Page: i, Addresses: page.Addresses, Err: err}
			}
			if e.metricsManager != nil {
				e.metricsManager.GetPrometheusMetrics().RecordPageCommitted(PhaseSchedule, len(page.Addresses))
			}
		}

		committed += len(page.Addresses)
		if e.observer != nil {
			e.observer(PhaseSchedule, i, page.Addresses)
		}
	}

	return committed, nil
}

// paginateBalances splits the balance queue into ceil(N/P) index-aligned pages
func paginateBalances(rows []BalanceMigration, pageSize int) []MigrationBatch {
	var pages []MigrationBatch
	for start := 0; start < len(rows); start += pageSize {
		end := start + pageSize
		if end > len(rows) {
			end = len(rows)
		}

		page := MigrationBatch{}
		for _, row := range rows[start:end] {
			page.Addresses = append(page.Addresses, row.Address)
			page.Balances = append(page.Balances, row.Balance)
			page.Vested = append(page.Vested, row.Vested)
		}
		pages = append(pages, page)
	}
	return pages
}

// paginateImports splits the import queue into ceil(N/P) index-aligned pages
func paginateImports(rows []ImportRow, pageSize int) []ImportBatch {
	var pages []ImportBatch
	for start := 0; start < len(rows); start += pageSize {
		end := start + pageSize
		if end > len(rows) {
			end = len(rows)
		}

		page := ImportBatch{}
		for _, row := range rows[start:end] {
			page.Addresses = append(page.Addresses, row.Address)
			page.Timestamps = append(page.Timestamps, row.Timestamp)
			page.Entries = append(page.Entries, row.Entry)
		}
		pages = append(pages, page)
	}
	return pages
}

// logDryRunBalances emits the exact page contents without writing
func (e *BatchExecutor) logDryRunBalances(index int, page MigrationBatch) {
	for i := range page.Addresses {
		e.logger.WithFields(logrus.Fields{
			"page":    index,
			"account": page.Addresses[i].Hex(),
			"balance": page.Balances[i].String(),
			"vested":  page.Vested[i].String(),
		}).Info("[dry-run] would migrate balance")
	}
}

// logDryRunImports emits the exact page contents without writing
func (e *BatchExecutor) logDryRunImports(index int, page ImportBatch) {
	for i := range page.Addresses {
		e.logger.WithFields(logrus.Fields{
			"page":      index,
			"account":   page.Addresses[i].Hex(),
			"timestamp": page.Timestamps[i].String(),
			"entry":     page.Entries[i].String(),
		}).Info("[dry-run] would import vesting entry")
	}
}
