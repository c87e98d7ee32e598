package journal

// Migration represents one versioned schema change
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// GetSQLiteMigrations returns the SQLite schema migrations
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create runs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					started_at TIMESTAMP NOT NULL,
					completed_at TIMESTAMP,
					dry_run BOOLEAN NOT NULL DEFAULT 0,
					status TEXT NOT NULL,
					accounts_discovered INTEGER NOT NULL DEFAULT 0,
					migrated_accounts INTEGER NOT NULL DEFAULT 0,
					imported_entries INTEGER NOT NULL DEFAULT 0,
					verification_issues INTEGER NOT NULL DEFAULT 0,
					error TEXT
				);
				CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
			`,
		},
		{
			Version:     "002",
			Description: "Create run_pages table",
			SQL: `
				CREATE TABLE IF NOT EXISTS run_pages (
					run_id TEXT NOT NULL,
					phase TEXT NOT NULL,
					page_index INTEGER NOT NULL,
					size INTEGER NOT NULL,
					addresses TEXT NOT NULL,
					dry_run BOOLEAN NOT NULL DEFAULT 0,
					committed_at TIMESTAMP NOT NULL,
					PRIMARY KEY (run_id, phase, page_index),
					FOREIGN KEY (run_id) REFERENCES runs(id)
				);
			`,
		},
		{
			Version:     "003",
			Description: "Create run_issues table",
			SQL: `
				CREATE TABLE IF NOT EXISTS run_issues (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					address TEXT NOT NULL,
					kind TEXT NOT NULL,
					detail TEXT NOT NULL,
					recorded_at TIMESTAMP NOT NULL,
					FOREIGN KEY (run_id) REFERENCES runs(id)
				);
				CREATE INDEX IF NOT EXISTS idx_run_issues_run_id ON run_issues(run_id);
			`,
		},
	}
}

// GetPostgresMigrations returns the PostgreSQL schema migrations
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create runs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					started_at TIMESTAMPTZ NOT NULL,
					completed_at TIMESTAMPTZ,
					dry_run BOOLEAN NOT NULL DEFAULT FALSE,
					status TEXT NOT NULL,
					accounts_discovered INTEGER NOT NULL DEFAULT 0,
					migrated_accounts INTEGER NOT NULL DEFAULT 0,
					imported_entries INTEGER NOT NULL DEFAULT 0,
					verification_issues INTEGER NOT NULL DEFAULT 0,
					error TEXT
				);
				CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
			`,
		},
		{
			Version:     "002",
			Description: "Create run_pages table",
			SQL: `
				CREATE TABLE IF NOT EXISTS run_pages (
					run_id TEXT NOT NULL,
					phase TEXT NOT NULL,
					page_index INTEGER NOT NULL,
					size INTEGER NOT NULL,
					addresses TEXT NOT NULL,
					dry_run BOOLEAN NOT NULL DEFAULT FALSE,
					committed_at TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (run_id, phase, page_index),
					FOREIGN KEY (run_id) REFERENCES runs(id)
				);
			`,
		},
		{
			Version:     "003",
			Description: "Create run_issues table",
			SQL: `
				CREATE TABLE IF NOT EXISTS run_issues (
					id BIGSERIAL PRIMARY KEY,
					run_id TEXT NOT NULL,
					address TEXT NOT NULL,
					kind TEXT NOT NULL,
					detail TEXT NOT NULL,
					recorded_at TIMESTAMPTZ NOT NULL,
					FOREIGN KEY (run_id) REFERENCES runs(id)
				);
				CREATE INDEX IF NOT EXISTS idx_run_issues_run_id ON run_issues(run_id);
			`,
		},
	}
}
