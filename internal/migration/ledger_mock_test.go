package migration

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vestforge/escrow-migrator/internal/ledger"
)

// fakeSourceLedger is an in-memory SourceLedger for tests
type fakeSourceLedger struct {
	events    []ledger.VestingEvent
	balances  map[common.Address]*big.Int
	vested    map[common.Address]*big.Int
	schedules map[common.Address][]*big.Int

	eventsErr error
	readErr   error
}

func newFakeSourceLedger() *fakeSourceLedger {
	return &fakeSourceLedger{
		balances:  make(map[common.Address]*big.Int),
		vested:    make(map[common.Address]*big.Int),
		schedules: make(map[common.Address][]*big.Int),
	}
}

func (f *fakeSourceLedger) addAccount(addr common.Address, balance, vested int64, flatSchedule ...int64) {
	f.events = append(f.events, ledger.VestingEvent{Address: addr})
	f.balances[addr] = big.NewInt(balance)
	f.vested[addr] = big.NewInt(vested)
	schedule := make([]*big.Int, len(flatSchedule))
	for i, v := range flatSchedule {
		schedule[i] = big.NewInt(v)
	}
	f.schedules[addr] = schedule
}

func (f *fakeSourceLedger) EscrowedBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if b, ok := f.balances[account]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeSourceLedger) VestedBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if v, ok := f.vested[account]; ok {
		return v, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeSourceLedger) Schedule(ctx context.Context, account common.Address) ([]*big.Int, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.schedules[account], nil
}

func (f *fakeSourceLedger) VestingEvents(ctx context.Context, eventName string) ([]ledger.VestingEvent, error) {
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

// balanceWrite records one MigrateBalances call
type balanceWrite struct {
	Addresses []common.Address
	Balances  []*big.Int
	Vested    []*big.Int
}

// importWrite records one ImportSchedule call
type importWrite struct {
	Addresses  []common.Address
	Timestamps []*big.Int
	Entries    []*big.Int
}

// fakeTargetLedger is an in-memory TargetLedger for tests. Writes are
// recorded and applied: migrating balances marks accounts pending, importing
// entries bumps their entry count.
type fakeTargetLedger struct {
	pending    map[common.Address]*big.Int
	escrowed   map[common.Address]*big.Int
	numEntries map[common.Address]uint64

	balanceWrites []balanceWrite
	importWrites  []importWrite

	failBalanceWriteAt int // page index to fail at, -1 to never fail
	failImportWriteAt  int
	readErr            error
}

func newFakeTargetLedger() *fakeTargetLedger {
	return &fakeTargetLedger{
		pending:            make(map[common.Address]*big.Int),
		escrowed:           make(map[common.Address]*big.Int),
		numEntries:         make(map[common.Address]uint64),
		failBalanceWriteAt: -1,
		failImportWriteAt:  -1,
	}
}

func (f *fakeTargetLedger) setPending(addr common.Address, amount int64) {
	f.pending[addr] = big.NewInt(amount)
}

func (f *fakeTargetLedger) setEscrowed(addr common.Address, amount int64) {
	f.escrowed[addr] = big.NewInt(amount)
}

func (f *fakeTargetLedger) PendingMigrationAmount(ctx context.Context, account common.Address) (*big.Int, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if p, ok := f.pending[account]; ok {
		return p, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeTargetLedger) EscrowedBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if e, ok := f.escrowed[account]; ok {
		return e, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeTargetLedger) NumVestingEntries(ctx context.Context, account common.Address) (uint64, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.numEntries[account], nil
}

func (f *fakeTargetLedger) MigrateBalances(ctx context.Context, accounts []common.Address, balances, vested []*big.Int) error {
	if f.failBalanceWriteAt >= 0 && len(f.balanceWrites) == f.failBalanceWriteAt {
		return fmt.Errorf("simulated balance write failure")
	}
	f.balanceWrites = append(f.balanceWrites, balanceWrite{accounts, balances, vested})
	for i, addr := range accounts {
		f.pending[addr] = new(big.Int).Set(balances[i])
	}
	return nil
}

func (f *fakeTargetLedger) ImportSchedule(ctx context.Context, accounts []common.Address, timestamps, entries []*big.Int) error {
	if f.failImportWriteAt >= 0 && len(f.importWrites) == f.failImportWriteAt {
		return fmt.Errorf("simulated import write failure")
	}
	f.importWrites = append(f.importWrites, importWrite{accounts, timestamps, entries})
	for _, addr := range accounts {
		f.numEntries[addr]++
	}
	return nil
}

// test addresses
var (
	addrA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	addrC = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	addrD = common.HexToAddress("0x00000000000000000000000000000000000000dd")
)
