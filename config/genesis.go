package config

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/params"
)

// GenesisKind selects how a Genesis resolves its chain configuration.
type GenesisKind uint8

const (
	// GenesisMainnet uses go-ethereum's built-in mainnet chain config and
	// genesis allocation.
	GenesisMainnet GenesisKind = iota
	// GenesisCustom parses a user-supplied genesis.json file, as produced
	// by `geth init`-style tooling.
	GenesisCustom
)

// Genesis is an immutable description of which chain configuration and
// genesis allocation a block was executed under. It is created once at
// startup, either from the built-in mainnet spec or from a user-supplied
// genesis file, and is carried unchanged in every ClientExecutorInput so the
// guest can validate the block without any external state.
type Genesis struct {
	Kind GenesisKind
	// JSON holds the raw contents of a genesis.json file when Kind is
	// GenesisCustom. It is kept as JSON (rather than a parsed struct) so it
	// can be embedded byte-for-byte in the client input and re-parsed
	// identically on every host.
	JSON []byte
}

// NewMainnetGenesis returns the built-in Ethereum mainnet genesis.
func NewMainnetGenesis() Genesis {
	return Genesis{Kind: GenesisMainnet}
}

// NewCustomGenesis wraps a raw genesis.json payload.
func NewCustomGenesis(raw []byte) Genesis {
	return Genesis{Kind: GenesisCustom, JSON: raw}
}

// ChainConfig resolves the genesis into a go-ethereum fork-schedule
// descriptor (the "ChainSpec" of [SPEC 3]).
func (g Genesis) ChainConfig() (*params.ChainConfig, error) {
	switch g.Kind {
	case GenesisMainnet:
		return params.MainnetChainConfig, nil
	case GenesisCustom:
		var genesis core.Genesis
		if err := json.Unmarshal(g.JSON, &genesis); err != nil {
			return nil, fmt.Errorf("parse genesis json: %w", err)
		}
		return genesis.Config, nil
	default:
		return nil, fmt.Errorf("unknown genesis kind %d", g.Kind)
	}
}

// ChainID returns the numeric chain identifier implied by this genesis.
func (g Genesis) ChainID() (uint64, error) {
	cfg, err := g.ChainConfig()
	if err != nil {
		return 0, err
	}
	if cfg.ChainID == nil {
		return 0, fmt.Errorf("genesis chain config has no chain id")
	}
	return cfg.ChainID.Uint64(), nil
}

// IsGoatTestnet reports whether chainID requires the vendor-specific
// `debug_executionWitness` response shape used by the Goat testnet (see
// [SPEC 6.1]): a decoded `headers` field and an optional `keys` field.
func IsGoatTestnet(chainID uint64) bool {
	return chainID == 48816
}

// GenesisFromChainID resolves a well-known chain ID to its built-in
// Genesis. Only mainnet is built in; any other chain ID requires an
// explicit --genesis-path.
func GenesisFromChainID(chainID uint64) (Genesis, error) {
	if chainID == params.MainnetChainConfig.ChainID.Uint64() {
		return NewMainnetGenesis(), nil
	}
	return Genesis{}, fmt.Errorf("no built-in genesis for chain id %d, pass --genesis-path", chainID)
}
