package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/vestforge/escrow-migrator/internal/config"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// SQLiteJournal implements Journal using SQLite
type SQLiteJournal struct {
	db         *sql.DB
	config     *config.JournalConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewSQLiteJournal creates a new SQLite journal instance
func NewSQLiteJournal(cfg *config.JournalConfig) *SQLiteJournal {
	return &SQLiteJournal{
		config:     cfg,
		logger:     utils.GetLogger(),
		migrations: GetSQLiteMigrations(),
	}
}

// Connect establishes the database connection
func (j *SQLiteJournal) Connect() error {
	dir := filepath.Dir(j.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create journal directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", j.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite journal", err.Error())
	}

	db.SetMaxOpenConns(j.config.MaxConnections)
	db.SetMaxIdleConns(j.config.MaxConnections / 2)
	db.SetConnMaxLifetime(j.config.MaxIdleTime)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable foreign keys", err.Error())
	}

	j.db = db
	j.logger.WithField("path", j.config.ConnectionString).Info("SQLite journal connected")

	return nil
}

// Close closes the database connection
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		err := j.db.Close()
		j.db = nil
		j.logger.Info("SQLite journal closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (j *SQLiteJournal) Ping() error {
	if j.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Journal not connected", "")
	}
	return j.db.Ping()
}

// Migrate runs schema migrations
func (j *SQLiteJournal) Migrate() error {
	if j.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Journal not connected", "")
	}

	for _, migration := range j.migrations {
		j.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Debug("Applying journal migration")

		if _, err := j.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Journal migration %s failed", migration.Version),
				err.Error())
		}
	}

	return nil
}

// StartRun records the start of a migration run
func (j *SQLiteJournal) StartRun(ctx context.Context, run *RunRecord) error {
	query := `
		INSERT INTO runs (id, started_at, dry_run, status, accounts_discovered)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, query,
		run.ID, run.StartedAt, run.DryRun, run.Status, run.AccountsDiscovered)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to record run start", err.Error())
	}
	return nil
}

// CompleteRun records the final state of a migration run
func (j *SQLiteJournal) CompleteRun(ctx context.Context, run *RunRecord) error {
	query := `
		UPDATE runs
		SET completed_at = ?, status = ?, accounts_discovered = ?,
		    migrated_accounts = ?, imported_entries = ?, verification_issues = ?, error = ?
		WHERE id = ?
	`
	_, err := j.db.ExecContext(ctx, query,
		run.CompletedAt, run.Status, run.AccountsDiscovered,
		run.MigratedAccounts, run.ImportedEntries, run.VerificationIssues, run.Error,
		run.ID)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to record run completion", err.Error())
	}
	return nil
}

// RecordPage records one write page
func (j *SQLiteJournal) RecordPage(ctx context.Context, page *PageRecord) error {
	addresses, err := json.Marshal(page.Addresses)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal page addresses", err.Error())
	}

	query := `
		INSERT OR REPLACE INTO run_pages
		(run_id, phase, page_index, size, addresses, dry_run, committed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = j.db.ExecContext(ctx, query,
		page.RunID, page.Phase, page.PageIndex, page.Size,
		string(addresses), page.DryRun, page.CommittedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to record page", err.Error())
	}
	return nil
}

// RecordIssue records one verification issue
func (j *SQLiteJournal) RecordIssue(ctx context.Context, issue *IssueRecord) error {
	query := `
		INSERT INTO run_issues (run_id, address, kind, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, query,
		issue.RunID, issue.Address, issue.Kind, issue.Detail, issue.RecordedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to record issue", err.Error())
	}
	return nil
}

// GetRuns returns the most recent runs, newest first
func (j *SQLiteJournal) GetRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, started_at, completed_at, dry_run, status,
		       accounts_discovered, migrated_accounts, imported_entries,
		       verification_issues, error
		FROM runs ORDER BY started_at DESC LIMIT ?
	`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query runs", err.Error())
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run := &RunRecord{}
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &run.DryRun,
			&run.Status, &run.AccountsDiscovered, &run.MigratedAccounts,
			&run.ImportedEntries, &run.VerificationIssues, &run.Error); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan run", err.Error())
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetPages returns all pages of a run in commit order
func (j *SQLiteJournal) GetPages(ctx context.Context, runID string) ([]*PageRecord, error) {
	query := `
		SELECT run_id, phase, page_index, size, addresses, dry_run, committed_at
		FROM run_pages WHERE run_id = ? ORDER BY committed_at, phase, page_index
	`
	rows, err := j.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query pages", err.Error())
	}
	defer rows.Close()

	var pages []*PageRecord
	for rows.Next() {
		page := &PageRecord{}
		var addresses string
		if err := rows.Scan(&page.RunID, &page.Phase, &page.PageIndex, &page.Size,
			&addresses, &page.DryRun, &page.CommittedAt); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan page", err.Error())
		}
		if err := json.Unmarshal([]byte(addresses), &page.Addresses); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to unmarshal page addresses", err.Error())
		}
		pages = append(pages, page)
	}

	return pages, rows.Err()
}

// GetIssues returns all verification issues of a run
func (j *SQLiteJournal) GetIssues(ctx context.Context, runID string) ([]*IssueRecord, error) {
	query := `
		SELECT run_id, address, kind, detail, recorded_at
		FROM run_issues WHERE run_id = ? ORDER BY id
	`
	rows, err := j.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query issues", err.Error())
	}
	defer rows.Close()

	var issues []*IssueRecord
	for rows.Next() {
		issue := &IssueRecord{}
		if err := rows.Scan(&issue.RunID, &issue.Address, &issue.Kind,
			&issue.Detail, &issue.RecordedAt); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan issue", err.Error())
		}
		issues = append(issues, issue)
	}

	return issues, rows.Err()
}
