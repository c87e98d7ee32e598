package ledger

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vestforge/escrow-migrator/internal/connection"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// EthSourceLedger implements SourceLedger against a deployed escrow contract
type EthSourceLedger struct {
	manager       connection.Manager
	address       common.Address
	abi           abi.ABI
	startBlock    uint64
	maxBlockRange uint64
	logger        *logrus.Entry
}

// NewEthSourceLedger creates a source ledger bound to a contract address
func NewEthSourceLedger(manager connection.Manager, address common.Address, startBlock, maxBlockRange uint64) (*EthSourceLedger, error) {
	parsed, err := abi.JSON(strings.NewReader(SourceLedgerABI))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Failed to parse source ledger ABI", err.Error())
	}

	if maxBlockRange == 0 {
		maxBlockRange = 5000
	}

	return &EthSourceLedger{
		manager:       manager,
		address:       address,
		abi:           parsed,
		startBlock:    startBlock,
		maxBlockRange: maxBlockRange,
		logger:        utils.ComponentLogger("source_ledger"),
	}, nil
}

// EscrowedBalance returns the locked balance held for an account
func (s *EthSourceLedger) EscrowedBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.callUint(ctx, "escrowedBalance", account)
}

// VestedBalance returns the already-vested balance for an account
func (s *EthSourceLedger) VestedBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.callUint(ctx, "vestedBalance", account)
}

// Schedule returns the raw flat schedule, alternating timestamp and amount
func (s *EthSourceLedger) Schedule(ctx context.Context, account common.Address) ([]*big.Int, error) {
	var out []interface{}
	if err := s.call(ctx, &out, "schedule", account); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

// VestingEvents returns every historical event of the named type in chain
// order, paging the log filter over bounded block ranges
func (s *EthSourceLedger) VestingEvents(ctx context.Context, eventName string) ([]VestingEvent, error) {
	event, ok := s.abi.Events[eventName]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Unknown event", eventName)
	}

	client, err := s.manager.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	latest, err := s.manager.GetLatestBlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	var events []VestingEvent
	for from := s.startBlock; from <= latest; from += s.maxBlockRange {
		to := from + s.maxBlockRange - 1
		if to > latest {
			to = latest
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{s.address},
			Topics:    [][]common.Hash{{event.ID}},
		}

		logs, err := client.FilterLogs(ctx, query)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeConnectivity, "Event query failed", err.Error())
		}

		for _, log := range logs {
			if len(log.Topics) < 2 {
				s.logger.WithField("tx", log.TxHash.Hex()).Warn("Event log missing account topic, skipping")
				continue
			}
			events = append(events, VestingEvent{
				Address:     common.BytesToAddress(log.Topics[1].Bytes()),
				BlockNumber: log.BlockNumber,
				TxHash:      log.TxHash,
			})
		}

		s.logger.WithFields(logrus.Fields{
			"from_block": from,
			"to_block":   to,
			"events":     len(logs),
		}).Debug("Scanned block range")
	}

	return events, nil
}

// callUint issues a view call returning a single uint256
func (s *EthSourceLedger) callUint(ctx context.Context, method string, account common.Address) (*big.Int, error) {
	var out []interface{}
	if err := s.call(ctx, &out, method, account); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// call issues a contract view call through the managed client
func (s *EthSourceLedger) call(ctx context.Context, out *[]interface{}, method string, args ...interface{}) error {
	client, err := s.manager.GetClient(ctx)
	if err != nil {
		return err
	}

	contract := bind.NewBoundContract(s.address, s.abi, client, client, client)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, out, method, args...); err != nil {
		return utils.NewAppError(utils.ErrCodeConnectivity,
			"Source ledger read failed", method+": "+err.Error())
	}
	return nil
}
