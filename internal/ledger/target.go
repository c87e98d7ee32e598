package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/vestforge/escrow-migrator/internal/connection"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// EthTargetLedger implements TargetLedger against the successor escrow contract
type EthTargetLedger struct {
	manager connection.Manager
	address common.Address
	abi     abi.ABI
	logger  *logrus.Entry
}

// NewEthTargetLedger creates a target ledger bound to a contract address
func NewEthTargetLedger(manager connection.Manager, address common.Address) (*EthTargetLedger, error) {
	parsed, err := abi.JSON(strings.NewReader(TargetLedgerABI))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Failed to parse target ledger ABI", err.Error())
	}

	return &EthTargetLedger{
		manager: manager,
		address: address,
		abi:     parsed,
		logger:  utils.ComponentLogger("target_ledger"),
	}, nil
}

// PendingMigrationAmount returns the unconsumed balance-migration amount
func (t *EthTargetLedger) PendingMigrationAmount(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.callUint(ctx, "pendingMigrationAmount", account)
}

// EscrowedBalance returns the escrowed balance already held on the target
func (t *EthTargetLedger) EscrowedBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.callUint(ctx, "escrowedBalance", account)
}

// NumVestingEntries returns the number of vesting entries imported for an account
func (t *EthTargetLedger) NumVestingEntries(ctx context.Context, account common.Address) (uint64, error) {
	n, err := t.callUint(ctx, "numVestingEntries", account)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// MigrateBalances commits one page of balance migrations
func (t *EthTargetLedger) MigrateBalances(ctx context.Context, accounts []common.Address, balances, vested []*big.Int) error {
	return t.transact(ctx, "migrateBalances", accounts, balances, vested)
}

// ImportSchedule commits one page of vesting-entry imports
func (t *EthTargetLedger) ImportSchedule(ctx context.Context, accounts []common.Address, timestamps, entries []*big.Int) error {
	return t.transact(ctx, "importSchedule", accounts, timestamps, entries)
}

// callUint issues a view call returning a single uint256
func (t *EthTargetLedger) callUint(ctx context.Context, method string, account common.Address) (*big.Int, error) {
	client, err := t.manager.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(t.address, t.abi, client, client, client)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, account); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeConnectivity,
			"Target ledger read failed", method+": "+err.Error())
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// transact submits a state-changing call and waits for its receipt
func (t *EthTargetLedger) transact(ctx context.Context, method string, args ...interface{}) error {
	client, err := t.manager.GetClient(ctx)
	if err != nil {
		return err
	}

	opts, err := t.manager.NewTransactor(ctx)
	if err != nil {
		return err
	}

	contract := bind.NewBoundContract(t.address, t.abi, client, client, client)

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return fmt.Errorf("%s transaction failed: %w", method, err)
	}

	t.logger.WithFields(logrus.Fields{
		"method": method,
		"tx":     tx.Hash().Hex(),
	}).Info("Transaction submitted, waiting for receipt")

	receipt, err := bind.WaitMined(ctx, client, tx)
	if err != nil {
		return fmt.Errorf("%s receipt wait failed: %w", method, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s transaction %s reverted", method, tx.Hash().Hex())
	}

	t.logger.WithFields(logrus.Fields{
		"method":   method,
		"tx":       tx.Hash().Hex(),
		"block":    receipt.BlockNumber.Uint64(),
		"gas_used": receipt.GasUsed,
	}).Info("Transaction mined")

	return nil
}
