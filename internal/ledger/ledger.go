package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// VestingEvent is one historical vesting-entry creation record
type VestingEvent struct {
	Address     common.Address `json:"address"`
	BlockNumber uint64         `json:"block_number"`
	TxHash      common.Hash    `json:"tx_hash"`
}

// SourceLedger is the read-only legacy escrow ledger
type SourceLedger interface {
	// EscrowedBalance returns the total amount still locked for an account
	EscrowedBalance(ctx context.Context, account common.Address) (*big.Int, error)

	// VestedBalance returns the amount already vested for an account
	VestedBalance(ctx context.Context, account common.Address) (*big.Int, error)

	// Schedule returns the raw flat vesting schedule for an account,
	// alternating timestamp and amount values
	Schedule(ctx context.Context, account common.Address) ([]*big.Int, error)

	// VestingEvents returns every historical event of the named type,
	// in chain order
	VestingEvents(ctx context.Context, eventName string) ([]VestingEvent, error)
}

// TargetLedger is the read-write successor escrow ledger
type TargetLedger interface {
	// PendingMigrationAmount returns the unconsumed balance-migration
	// amount recorded for an account
	PendingMigrationAmount(ctx context.Context, account common.Address) (*big.Int, error)

	// EscrowedBalance returns the escrowed balance already held for an account
	EscrowedBalance(ctx context.Context, account common.Address) (*big.Int, error)

	// NumVestingEntries returns the number of vesting entries imported
	// for an account
	NumVestingEntries(ctx context.Context, account common.Address) (uint64, error)

	// MigrateBalances commits one page of balance migrations. The three
	// slices are index-aligned and equal length.
	MigrateBalances(ctx context.Context, accounts []common.Address, balances, vested []*big.Int) error

	// ImportSchedule commits one page of vesting-entry imports. The three
	// slices are index-aligned and equal length.
	ImportSchedule(ctx context.Context, accounts []common.Address, timestamps, entries []*big.Int) error
}
