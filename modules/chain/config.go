package chain

import "ballot-node/modules/config"

type ChainConfig struct {
	RpcURL string
	// Network label surfaced by the blockchain status endpoint.
	Network string
	// Hex encoded deployment bytecode for the voting contract.
	Bytecode string
	// Seconds to wait for a transaction to be mined before giving up.
	MineTimeoutSeconds int
}

func NewChainConfig() *config.Config[ChainConfig] {
	return config.New(ChainConfig{
		RpcURL:             "http://localhost:8545",
		Network:            "localhost",
		MineTimeoutSeconds: 120,
	})
}
