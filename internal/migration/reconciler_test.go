package migration

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vestforge/escrow-migrator/pkg/utils"
)

func TestReconcileBuildsSnapshots(t *testing.T) {
	source := newFakeSourceLedger()
	source.addAccount(addrA, 100, 50, 10, 5, 20, 7)
	source.addAccount(addrB, 0, 0)

	target := newFakeTargetLedger()
	target.setPending(addrB, 30)
	target.numEntries[addrB] = 2

	reconciler := NewAccountReconciler(source, target)
	snapshots, err := reconciler.Reconcile(context.Background(), []common.Address{addrA, addrB})
	if err != nil {
		t.Fatalf("Failed to reconcile: %v", err)
	}

	if len(snapshots) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snapshots))
	}

	a := snapshots[0]
	if a.Address != addrA {
		t.Errorf("Snapshot order not preserved: expected %s first, got %s", addrA.Hex(), a.Address.Hex())
	}
	if a.Balance.Cmp(big.NewInt(100)) != 0 || a.Vested.Cmp(big.NewInt(50)) != 0 {
		t.Errorf("Unexpected amounts: balance=%s vested=%s", a.Balance, a.Vested)
	}
	if len(a.Schedule) != 2 {
		t.Errorf("Expected 2 schedule entries, got %d", len(a.Schedule))
	}
	if a.Pending || a.HasEscrowBalance {
		t.Error("Account A should be neither pending nor escrowed on target")
	}

	b := snapshots[1]
	if !b.Pending {
		t.Error("Account B should be pending")
	}
	if b.NumVestingEntries != 2 {
		t.Errorf("Expected 2 target entries for B, got %d", b.NumVestingEntries)
	}
	t.Logf("✓ Snapshots assembled in input order")
}

func TestFlattenScheduleDropsPaddingPairs(t *testing.T) {
	source := newFakeSourceLedger()
	source.addAccount(addrA, 10, 0, 0, 0, 10, 5, 0, 0)

	target := newFakeTargetLedger()
	reconciler := NewAccountReconciler(source, target)

	snapshots, err := reconciler.Reconcile(context.Background(), []common.Address{addrA})
	if err != nil {
		t.Fatalf("Failed to reconcile: %v", err)
	}

	schedule := snapshots[0].Schedule
	if len(schedule) != 1 {
		t.Fatalf("Expected 1 entry after dropping padding, got %d", len(schedule))
	}
	if schedule[0].Timestamp.Cmp(big.NewInt(10)) != 0 || schedule[0].Amount.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("Unexpected entry: (%s, %s)", schedule[0].Timestamp, schedule[0].Amount)
	}
	if reconciler.WarningCount() != 0 {
		t.Errorf("Padding pairs must not warn, got %d warnings", reconciler.WarningCount())
	}
	t.Logf("✓ (0,0) padding pairs dropped silently")
}

func TestFlattenScheduleFlagsSingleZeroPairs(t *testing.T) {
	source := newFakeSourceLedger()
	// (0,20): zero timestamp; (20,0): zero amount; both kept, both flagged
	source.addAccount(addrC, 20, 0, 0, 20, 20, 0)

	target := newFakeTargetLedger()
	reconciler := NewAccountReconciler(source, target)

	snapshots, err := reconciler.Reconcile(context.Background(), []common.Address{addrC})
	if err != nil {
		t.Fatalf("Failed to reconcile: %v", err)
	}

	schedule := snapshots[0].Schedule
	if len(schedule) != 2 {
		t.Fatalf("Expected both anomalous entries retained, got %d", len(schedule))
	}
	if schedule[0].Timestamp.Sign() != 0 || schedule[0].Amount.Cmp(big.NewInt(20)) != 0 {
		t.Errorf("Entry order not preserved: first entry (%s, %s)", schedule[0].Timestamp, schedule[0].Amount)
	}
	if got := reconciler.WarningCount(); got != 2 {
		t.Errorf("Expected exactly one warning per anomalous pair (2 total), got %d", got)
	}
	t.Logf("✓ Single-zero pairs retained and flagged")
}

func TestFlattenScheduleOddTrailingValue(t *testing.T) {
	source := newFakeSourceLedger()
	source.addAccount(addrA, 10, 0, 10, 5, 99)

	target := newFakeTargetLedger()
	reconciler := NewAccountReconciler(source, target)

	snapshots, err := reconciler.Reconcile(context.Background(), []common.Address{addrA})
	if err != nil {
		t.Fatalf("Failed to reconcile: %v", err)
	}

	if len(snapshots[0].Schedule) != 1 {
		t.Fatalf("Expected trailing value dropped, got %d entries", len(snapshots[0].Schedule))
	}
	if reconciler.WarningCount() != 1 {
		t.Errorf("Expected 1 warning for the trailing value, got %d", reconciler.WarningCount())
	}
}

func TestReconcilePropagatesReadErrors(t *testing.T) {
	source := newFakeSourceLedger()
	source.addAccount(addrA, 1, 0)
	source.readErr = utils.NewAppError(utils.ErrCodeConnectivity, "Source ledger read failed", "timeout")

	target := newFakeTargetLedger()
	reconciler := NewAccountReconciler(source, target)

	_, err := reconciler.Reconcile(context.Background(), []common.Address{addrA})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !utils.IsCode(err, utils.ErrCodeConnectivity) {
		t.Errorf("Expected connectivity error, got %v", err)
	}
}
