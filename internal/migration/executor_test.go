package migration

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vestforge/escrow-migrator/pkg/utils"
)

func balanceRows(addrs ...common.Address) []BalanceMigration {
	rows := make([]BalanceMigration, len(addrs))
	for i, addr := range addrs {
		rows[i] = BalanceMigration{
			Address: addr,
			Balance: big.NewInt(int64(100 + i)),
			Vested:  big.NewInt(int64(i)),
		}
	}
	return rows
}

func TestExecutorPagination(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		pageSize  int
		wantPages int
	}{
		{"exact multiple", 4, 2, 2},
		{"with remainder", 5, 2, 3},
		{"single page", 3, 50, 1},
		{"page size one", 3, 1, 3},
		{"empty queue", 0, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addrs := make([]common.Address, tt.rows)
			for i := range addrs {
				addrs[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
			}

			target := newFakeTargetLedger()
			executor := NewBatchExecutor(target, false, tt.pageSize, tt.pageSize)

			committed, err := executor.ExecuteBalanceMigrations(context.Background(), balanceRows(addrs...))
			if err != nil {
				t.Fatalf("Execution failed: %v", err)
			}
			if committed != tt.rows {
				t.Errorf("Expected %d committed rows, got %d", tt.rows, committed)
			}
			if len(target.balanceWrites) != tt.wantPages {
				t.Fatalf("Expected %d pages, got %d", tt.wantPages, len(target.balanceWrites))
			}

			// Every candidate exactly once, original order, pages ≤ P
			var seen []common.Address
			for _, write := range target.balanceWrites {
				if len(write.Addresses) > tt.pageSize {
					t.Errorf("Page exceeds size limit: %d > %d", len(write.Addresses), tt.pageSize)
				}
				if len(write.Addresses) != len(write.Balances) || len(write.Addresses) != len(write.Vested) {
					t.Error("Page slices are not index-aligned")
				}
				seen = append(seen, write.Addresses...)
			}
			if len(seen) != tt.rows {
				t.Fatalf("Expected %d rows across pages, got %d", tt.rows, len(seen))
			}
			for i, addr := range addrs {
				if seen[i] != addr {
					t.Errorf("Row %d out of order: expected %s, got %s", i, addr.Hex(), seen[i].Hex())
				}
			}
		})
	}
}

func TestExecutorFailFast(t *testing.T) {
	addrs := make([]common.Address, 6)
	for i := range addrs {
		addrs[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
	}

	target := newFakeTargetLedger()
	target.failBalanceWriteAt = 1 // second page fails

	executor := NewBatchExecutor(target, false, 2, 2)
	committed, err := executor.ExecuteBalanceMigrations(context.Background(), balanceRows(addrs...))
	if err == nil {
		t.Fatal("Expected write error, got nil")
	}

	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Expected *WriteError, got %T", err)
	}
	if writeErr.Phase != PhaseBalance {
		t.Errorf("Expected balance phase, got %s", writeErr.Phase)
	}
	if writeErr.Page != 1 {
		t.Errorf("Expected failing page index 1, got %d", writeErr.Page)
	}
	if len(writeErr.Addresses) != 2 {
		t.Errorf("Expected 2 addresses in write error, got %d", len(writeErr.Addresses))
	}
	if !strings.Contains(writeErr.Error(), utils.ErrCodeWrite) {
		t.Errorf("Write error should carry the %s code, got %q", utils.ErrCodeWrite, writeErr.Error())
	}

	// First page stays committed, no later page attempted
	if len(target.balanceWrites) != 1 {
		t.Errorf("Expected exactly 1 committed page before failure, got %d", len(target.balanceWrites))
	}
	if committed != 2 {
		t.Errorf("Expected 2 committed rows before failure, got %d", committed)
	}
	t.Logf("✓ Fail-fast after page %d, committed pages preserved", writeErr.Page)
}

func TestExecutorDryRunWritesNothing(t *testing.T) {
	target := newFakeTargetLedger()
	executor := NewBatchExecutor(target, true, 2, 2)

	committed, err := executor.ExecuteBalanceMigrations(context.Background(), balanceRows(addrA, addrB, addrC))
	if err != nil {
		t.Fatalf("Dry run failed: %v", err)
	}
	if committed != 3 {
		t.Errorf("Dry run should report all rows processed, got %d", committed)
	}
	if len(target.balanceWrites) != 0 {
		t.Errorf("Dry run must not write, got %d writes", len(target.balanceWrites))
	}

	imports := []ImportRow{
		{Address: addrA, Timestamp: big.NewInt(10), Entry: big.NewInt(5)},
	}
	if _, err := executor.ExecuteScheduleImports(context.Background(), imports); err != nil {
		t.Fatalf("Dry run import failed: %v", err)
	}
	if len(target.importWrites) != 0 {
		t.Errorf("Dry run must not write imports, got %d writes", len(target.importWrites))
	}
	t.Logf("✓ Dry run never invokes target writes")
}

func TestExecutorImportPages(t *testing.T) {
	rows := []ImportRow{
		{Address: addrA, Timestamp: big.NewInt(10), Entry: big.NewInt(5)},
		{Address: addrC, Timestamp: big.NewInt(0), Entry: big.NewInt(20)},
		{Address: addrC, Timestamp: big.NewInt(20), Entry: big.NewInt(0)},
	}

	target := newFakeTargetLedger()
	executor := NewBatchExecutor(target, false, 50, 2)

	committed, err := executor.ExecuteScheduleImports(context.Background(), rows)
	if err != nil {
		t.Fatalf("Import execution failed: %v", err)
	}
	if committed != 3 {
		t.Errorf("Expected 3 committed entries, got %d", committed)
	}
	if len(target.importWrites) != 2 {
		t.Fatalf("Expected 2 import pages, got %d", len(target.importWrites))
	}
	if target.numEntries[addrC] != 2 {
		t.Errorf("Expected 2 entries applied for C, got %d", target.numEntries[addrC])
	}
}

func TestExecutorPageObserver(t *testing.T) {
	target := newFakeTargetLedger()
	executor := NewBatchExecutor(target, false, 2, 2)

	var observed []int
	executor.SetPageObserver(func(phase string, page int, addresses []common.Address) {
		if phase != PhaseBalance {
			t.Errorf("Unexpected phase %s", phase)
		}
		observed = append(observed, page)
	})

	if _, err := executor.ExecuteBalanceMigrations(context.Background(), balanceRows(addrA, addrB, addrC)); err != nil {
		t.Fatalf("Execution failed: %v", err)
	}
	if len(observed) != 2 || observed[0] != 0 || observed[1] != 1 {
		t.Errorf("Expected observer calls for pages [0 1], got %v", observed)
	}
}
