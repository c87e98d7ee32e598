package migration

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ScheduleEntry is one vesting commitment: an amount releasable at a timestamp
type ScheduleEntry struct {
	Timestamp *big.Int `json:"timestamp"`
	Amount    *big.Int `json:"amount"`
}

// AccountSnapshot is the reconciled per-account state across both ledgers
type AccountSnapshot struct {
	Address common.Address `json:"address"`

	// Source ledger state
	Balance  *big.Int        `json:"balance"`
	Vested   *big.Int        `json:"vested"`
	Schedule []ScheduleEntry `json:"schedule"`

	// Target ledger state at reconciliation time
	Pending           bool   `json:"pending"`
	HasEscrowBalance  bool   `json:"has_escrow_balance"`
	NumVestingEntries uint64 `json:"num_vesting_entries"`
}

// BalanceMigration is one account's balance-migration work item
type BalanceMigration struct {
	Address common.Address `json:"address"`
	Balance *big.Int       `json:"balance"`
	Vested  *big.Int       `json:"vested"`
}

// ImportRow is one schedule-entry import work item
type ImportRow struct {
	Address   common.Address `json:"address"`
	Timestamp *big.Int       `json:"timestamp"`
	Entry     *big.Int       `json:"entry"`
}

// Plan holds the two work queues built by the planner
type Plan struct {
	BalanceMigrations []BalanceMigration `json:"balance_migrations"`
	ScheduleImports   []ImportRow        `json:"schedule_imports"`
}

// MigrationBatch is one balance-migration page: three index-aligned slices
// submitted as a single write call
type MigrationBatch struct {
	Addresses []common.Address `json:"addresses"`
	Balances  []*big.Int       `json:"balances"`
	Vested    []*big.Int       `json:"vested"`
}

// ImportBatch is one schedule-import page: three index-aligned slices
// submitted as a single write call
type ImportBatch struct {
	Addresses  []common.Address `json:"addresses"`
	Timestamps []*big.Int       `json:"timestamps"`
	Entries    []*big.Int       `json:"entries"`
}

// Verification issue kinds
const (
	IssuePendingNotConsumed = "pending_not_consumed"
	IssueEntryCountMismatch = "entry_count_mismatch"
)

// VerificationIssue is one post-run state inconsistency
type VerificationIssue struct {
	Address common.Address `json:"address"`
	Kind    string         `json:"kind"`
	Detail  string         `json:"detail"`
}

// Summary is the result of one migration run
type Summary struct {
	RunID                string              `json:"run_id"`
	DryRun               bool                `json:"dry_run"`
	AccountsDiscovered   int                 `json:"accounts_discovered"`
	MigratedAccountCount int                 `json:"migrated_account_count"`
	ImportedEntryCount   int                 `json:"imported_entry_count"`
	DataQualityWarnings  int                 `json:"data_quality_warnings"`
	VerificationIssues   []VerificationIssue `json:"verification_issues"`
	Duration             time.Duration       `json:"duration"`
}
