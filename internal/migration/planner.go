package migration

import (
	"github.com/sirupsen/logrus"

	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// MigrationPlanner classifies reconciled snapshots into the two work queues.
// Pure classification: no I/O, no retries, deterministic over its input.
type MigrationPlanner struct {
	logger *logrus.Entry
}

// NewMigrationPlanner creates a new migration planner
func NewMigrationPlanner() *MigrationPlanner {
	return &MigrationPlanner{
		logger: utils.ComponentLogger("planner"),
	}
}

// BuildPlan partitions the snapshots.
//
// Balance migration: only accounts neither pending nor already holding an
// escrowed balance on the target; either flag means the balance was (or is
// being) credited through another path and migrating again would double it.
//
// Schedule import: only accounts currently pending; their processed entries
// become one import row each. Accounts no longer pending were completed by
// a prior run and are skipped with a log line, not an error.
func (p *MigrationPlanner) BuildPlan(snapshots []AccountSnapshot) *Plan {
	plan := &Plan{}

	for _, snapshot := range snapshots {
		if snapshot.Pending {
			for _, entry := range snapshot.Schedule {
				plan.ScheduleImports = append(plan.ScheduleImports, ImportRow{
					Address:   snapshot.Address,
					Timestamp: entry.Timestamp,
					Entry:     entry.Amount,
				})
			}
			continue
		}

		if snapshot.HasEscrowBalance {
			p.logger.WithField("account", snapshot.Address.Hex()).
				Info("Account already holds escrowed balance on target, skipping")
			continue
		}

		plan.BalanceMigrations = append(plan.BalanceMigrations, BalanceMigration{
			Address: snapshot.Address,
			Balance: snapshot.Balance,
			Vested:  snapshot.Vested,
		})

		if len(snapshot.Schedule) > 0 {
			p.logger.WithField("account", snapshot.Address.Hex()).
				Debug("Account not yet pending, schedule import deferred to a later run")
		}
	}

	p.logger.WithFields(logrus.Fields{
		"balance_migrations": len(plan.BalanceMigrations),
		"schedule_imports":   len(plan.ScheduleImports),
	}).Info("Migration plan built")

	return plan
}
