package migration

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vestforge/escrow-migrator/internal/ledger"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// EventCollector discovers the set of accounts that ever received a vesting
// entry on the source ledger
type EventCollector struct {
	source    ledger.SourceLedger
	eventName string
	logger    *logrus.Entry
}

// NewEventCollector creates a new event collector
func NewEventCollector(source ledger.SourceLedger, eventName string) *EventCollector {
	return &EventCollector{
		source:    source,
		eventName: eventName,
		logger:    utils.ComponentLogger("collector"),
	}
}

// CollectAccounts returns the distinct participating addresses, ordered by
// first appearance in the historical event stream. Connectivity failures
// propagate unretried; retry policy lives in the ledger client.
func (c *EventCollector) CollectAccounts(ctx context.Context) ([]common.Address, error) {
	events, err := c.source.VestingEvents(ctx, c.eventName)
	if err != nil {
		return nil, err
	}

	seen := make(map[common.Address]bool, len(events))
	var accounts []common.Address
	for _, event := range events {
		if seen[event.Address] {
			continue
		}
		seen[event.Address] = true
		accounts = append(accounts, event.Address)
	}

	c.logger.WithFields(logrus.Fields{
		"events":   len(events),
		"accounts": len(accounts),
	}).Info("Collected participating accounts")

	return accounts, nil
}
