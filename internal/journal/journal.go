package journal

import (
	"context"
	"strings"
	"time"

	"github.com/vestforge/escrow-migrator/internal/config"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// Journal records the audit trail of migration runs. It is observational
// only: planning never consults it, idempotence derives from target-ledger
// state alone.
type Journal interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Run lifecycle
	StartRun(ctx context.Context, run *RunRecord) error
	CompleteRun(ctx context.Context, run *RunRecord) error

	// Per-run detail
	RecordPage(ctx context.Context, page *PageRecord) error
	RecordIssue(ctx context.Context, issue *IssueRecord) error

	// Queries
	GetRuns(ctx context.Context, limit int) ([]*RunRecord, error)
	GetPages(ctx context.Context, runID string) ([]*PageRecord, error)
	GetIssues(ctx context.Context, runID string) ([]*IssueRecord, error)
}

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunRecord is one migration run
type RunRecord struct {
	ID                 string     `json:"id"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	DryRun             bool       `json:"dry_run"`
	Status             string     `json:"status"`
	AccountsDiscovered int        `json:"accounts_discovered"`
	MigratedAccounts   int        `json:"migrated_accounts"`
	ImportedEntries    int        `json:"imported_entries"`
	VerificationIssues int        `json:"verification_issues"`
	Error              *string    `json:"error,omitempty"`
}

// PageRecord is one committed (or dry-run logged) write page
type PageRecord struct {
	RunID       string    `json:"run_id"`
	Phase       string    `json:"phase"` // balance, schedule
	PageIndex   int       `json:"page_index"`
	Size        int       `json:"size"`
	Addresses   []string  `json:"addresses"`
	DryRun      bool      `json:"dry_run"`
	CommittedAt time.Time `json:"committed_at"`
}

// IssueRecord is one verification mismatch reported after execution
type IssueRecord struct {
	RunID      string    `json:"run_id"`
	Address    string    `json:"address"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewJournal creates a journal instance based on configuration
func NewJournal(cfg *config.JournalConfig) (Journal, error) {
	switch strings.ToLower(cfg.Type) {
	case "sqlite":
		return NewSQLiteJournal(cfg), nil
	case "postgres", "postgresql":
		return NewPostgresJournal(cfg), nil
	default:
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported journal type", cfg.Type)
	}
}
