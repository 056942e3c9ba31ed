package config

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/params"
)

func TestMainnetGenesisChainID(t *testing.T) {
	g := NewMainnetGenesis()
	id, err := g.ChainID()
	if err != nil {
		t.Fatalf("ChainID: %v", err)
	}
	if id != params.MainnetChainConfig.ChainID.Uint64() {
		t.Fatalf("chain id = %d, want %d", id, params.MainnetChainConfig.ChainID.Uint64())
	}
}

func TestCustomGenesisRoundTripsChainID(t *testing.T) {
	raw, err := json.Marshal(map[string]interface{}{
		"config": map[string]interface{}{
			"chainId": 11155111,
		},
		"alloc": map[string]interface{}{},
	})
	if err != nil {
		t.Fatal(err)
	}

	g := NewCustomGenesis(raw)
	id, err := g.ChainID()
	if err != nil {
		t.Fatalf("ChainID: %v", err)
	}
	if id != 11155111 {
		t.Fatalf("chain id = %d, want 11155111", id)
	}
}

func TestGenesisFromChainIDRejectsUnknown(t *testing.T) {
	if _, err := GenesisFromChainID(999999); err == nil {
		t.Fatal("expected error for unknown chain id")
	}
}

func TestIsGoatTestnet(t *testing.T) {
	if !IsGoatTestnet(48816) {
		t.Fatal("expected chain id 48816 to be detected as goat testnet")
	}
	if IsGoatTestnet(1) {
		t.Fatal("mainnet must not be detected as goat testnet")
	}
}
