package migration

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vestforge/escrow-migrator/internal/ledger"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

func TestCollectAccountsDeduplicates(t *testing.T) {
	source := newFakeSourceLedger()
	// Accounts can appear in many events; order of first appearance wins
	source.events = []ledger.VestingEvent{
		{Address: addrB},
		{Address: addrA},
		{Address: addrB},
		{Address: addrC},
		{Address: addrA},
	}

	collector := NewEventCollector(source, "VestingEntryCreated")
	accounts, err := collector.CollectAccounts(context.Background())
	if err != nil {
		t.Fatalf("Failed to collect accounts: %v", err)
	}

	expected := []common.Address{addrB, addrA, addrC}
	if len(accounts) != len(expected) {
		t.Fatalf("Expected %d accounts, got %d", len(expected), len(accounts))
	}
	for i, addr := range expected {
		if accounts[i] != addr {
			t.Errorf("Account %d: expected %s, got %s", i, addr.Hex(), accounts[i].Hex())
		}
	}
	t.Logf("✓ Collected %d unique accounts in first-appearance order", len(accounts))
}

func TestCollectAccountsEmpty(t *testing.T) {
	source := newFakeSourceLedger()

	collector := NewEventCollector(source, "VestingEntryCreated")
	accounts, err := collector.CollectAccounts(context.Background())
	if err != nil {
		t.Fatalf("Failed to collect accounts: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("Expected no accounts, got %d", len(accounts))
	}
}

func TestCollectAccountsPropagatesConnectivityError(t *testing.T) {
	source := newFakeSourceLedger()
	source.eventsErr = utils.NewAppError(utils.ErrCodeConnectivity, "Event query failed", "node unreachable")

	collector := NewEventCollector(source, "VestingEntryCreated")
	_, err := collector.CollectAccounts(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !utils.IsCode(err, utils.ErrCodeConnectivity) {
		t.Errorf("Expected connectivity error, got %v", err)
	}
	t.Logf("✓ Connectivity error propagated unretried")
}
