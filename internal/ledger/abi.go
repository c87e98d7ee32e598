package ledger

// Contract ABIs for the two escrow ledgers. Only the members the migrator
// touches are declared.

const SourceLedgerABI = `[
	{"type":"event","name":"VestingEntryCreated","inputs":[
		{"name":"account","type":"address","indexed":true},
		{"name":"time","type":"uint256","indexed":false},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"function","name":"escrowedBalance","stateMutability":"view",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"vestedBalance","stateMutability":"view",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"schedule","stateMutability":"view",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256[]"}]}
]`

const TargetLedgerABI = `[
	{"type":"function","name":"pendingMigrationAmount","stateMutability":"view",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"escrowedBalance","stateMutability":"view",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"numVestingEntries","stateMutability":"view",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"migrateBalances","stateMutability":"nonpayable",
		"inputs":[
			{"name":"accounts","type":"address[]"},
			{"name":"balances","type":"uint256[]"},
			{"name":"vestedAmounts","type":"uint256[]"}],
		"outputs":[]},
	{"type":"function","name":"importSchedule","stateMutability":"nonpayable",
		"inputs":[
			{"name":"accounts","type":"address[]"},
			{"name":"timestamps","type":"uint256[]"},
			{"name":"entries","type":"uint256[]"}],
		"outputs":[]}
]`
