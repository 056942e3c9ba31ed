package hostexecutor

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"

	"github.com/ProjectZKM/reth-processor/config"
	"github.com/ProjectZKM/reth-processor/herrors"
	"github.com/ProjectZKM/reth-processor/provider"
	"github.com/ProjectZKM/reth-processor/witness"
)

// buildSingleAccountWitness mirrors the witness package's own test helper;
// duplicated here (rather than exported from witness) to keep the witness
// node-set construction local to each package's tests.
func buildSingleAccountWitness(t *testing.T, addr common.Address, account *types.StateAccount) ([][]byte, common.Hash) {
	t.Helper()

	memdb := rawdb.NewMemoryDatabase()
	tdb := triedb.NewDatabase(memdb, triedb.HashDefaults)
	tr, err := trie.NewStateTrie(trie.StateTrieID(types.EmptyRootHash), tdb)
	if err != nil {
		t.Fatalf("NewStateTrie: %v", err)
	}
	if err := tr.UpdateAccount(addr, account, 0); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	root, nodes, err := tr.Commit(false)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	var rawNodes [][]byte
	if nodes != nil {
		for _, n := range nodes.Nodes {
			for _, blob := range n {
				rawNodes = append(rawNodes, blob.Blob)
			}
		}
	}
	return rawNodes, root
}

type fakeProvider struct {
	current, previous *types.Block
	witness           *witness.ExecutionWitness
}

func (p *fakeProvider) BlockByNumber(_ context.Context, n uint64) (*types.Block, error) {
	switch n {
	case p.current.NumberU64():
		return p.current, nil
	case p.previous.NumberU64():
		return p.previous, nil
	default:
		return nil, nil
	}
}

func (p *fakeProvider) ChainID(context.Context) (uint64, error) { return 1, nil }

func (p *fakeProvider) ExecutionWitness(context.Context, uint64) (*witness.ExecutionWitness, error) {
	return p.witness, nil
}

func (p *fakeProvider) SubscribeNewHeads(context.Context, chan<- *types.Header) (provider.Subscription, error) {
	return nil, nil
}

func TestHostExecutor_Execute_AssemblesInput(t *testing.T) {
	addr := common.HexToAddress("0x000000000000000000000000000000000000aa")
	account := &types.StateAccount{
		Nonce:    1,
		Balance:  big.NewInt(10),
		Root:     types.EmptyRootHash,
		CodeHash: types.EmptyCodeHash.Bytes(),
	}
	nodes, parentRoot := buildSingleAccountWitness(t, addr, account)

	previous := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(99), Root: parentRoot})
	current := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(100), ParentHash: previous.Hash()})

	p := &fakeProvider{
		current:  current,
		previous: previous,
		witness:  &witness.ExecutionWitness{State: nodes, Codes: nil},
	}

	h := New(params.MainnetChainConfig, config.NewMainnetGenesis(), false)

	input, err := h.Execute(context.Background(), p, 100, nil, true, false, nil, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if input.CurrentBlock.NumberU64() != 100 {
		t.Errorf("current block number = %d, want 100", input.CurrentBlock.NumberU64())
	}
	if !input.OpcodeTracking {
		t.Error("expected OpcodeTracking to be set from argument")
	}
	if input.PrecompileTracking {
		t.Error("expected PrecompileTracking to be false")
	}
	if len(input.ParentStateNodes) != len(nodes) {
		t.Errorf("parent state nodes = %d, want %d", len(input.ParentStateNodes), len(nodes))
	}
	if len(input.GenesisJSON) == 0 {
		t.Error("expected non-empty genesis JSON")
	}
}

func TestHostExecutor_Execute_MissingCurrentBlockIsExpectedBlockError(t *testing.T) {
	previous := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(99)})
	current := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(100)})
	p := &fakeProvider{current: current, previous: previous}

	h := New(params.MainnetChainConfig, config.NewMainnetGenesis(), false)

	_, err := h.Execute(context.Background(), p, 101, nil, false, false, nil, false)
	if err == nil {
		t.Fatal("expected an error for a block the provider doesn't have")
	}
	var expected *herrors.ExpectedBlockError
	if !errors.As(err, &expected) {
		t.Fatalf("error = %v, want an ExpectedBlockError", err)
	}
}

// tolerateIndexPolicy tolerates exactly one transaction index, mirroring
// how executor.OpComponents tolerates an Optimism deposit transaction's
// index without needing to import the executor package here.
type tolerateIndexPolicy struct{ index int }

func (p tolerateIndexPolicy) TolerateRecoveryFailure(_ context.Context, txIndex int) bool {
	return txIndex == p.index
}

// unsignedLegacyTx builds a legacy transaction with an all-zero signature,
// which types.Sender always fails to recover ([SPEC_FULL.md] 4.9 test
// double for an Optimism deposit transaction's lack of an ECDSA signature).
func unsignedLegacyTx(t *testing.T, to common.Address) *types.Transaction {
	t.Helper()
	return types.NewTx(&types.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(0),
		V:        big.NewInt(0),
		R:        big.NewInt(0),
		S:        big.NewInt(0),
	})
}

func TestHostExecutor_Execute_TolerantPolicyAllowsUnrecoverableSender(t *testing.T) {
	to := common.HexToAddress("0x000000000000000000000000000000000000bb")
	tx := unsignedLegacyTx(t, to)

	previous := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(99), Root: types.EmptyRootHash})
	header := &types.Header{Number: big.NewInt(100), ParentHash: previous.Hash()}
	current := types.NewBlock(header, &types.Body{Transactions: []*types.Transaction{tx}}, nil, trie.NewStackTrie(nil))

	p := &fakeProvider{
		current:  current,
		previous: previous,
		witness:  &witness.ExecutionWitness{},
	}

	h := New(params.MainnetChainConfig, config.NewMainnetGenesis(), false)

	if _, err := h.Execute(context.Background(), p, 100, nil, false, false, tolerateIndexPolicy{index: 0}, false); err != nil {
		t.Fatalf("Execute with a tolerant policy: %v", err)
	}
}

func TestHostExecutor_Execute_DefaultPolicyFailsOnUnrecoverableSender(t *testing.T) {
	to := common.HexToAddress("0x000000000000000000000000000000000000bb")
	tx := unsignedLegacyTx(t, to)

	previous := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(99), Root: types.EmptyRootHash})
	header := &types.Header{Number: big.NewInt(100), ParentHash: previous.Hash()}
	current := types.NewBlock(header, &types.Body{Transactions: []*types.Transaction{tx}}, nil, trie.NewStackTrie(nil))

	p := &fakeProvider{
		current:  current,
		previous: previous,
		witness:  &witness.ExecutionWitness{},
	}

	h := New(params.MainnetChainConfig, config.NewMainnetGenesis(), false)

	// nil policy defaults to tolerating nothing, so this must fail.
	if _, err := h.Execute(context.Background(), p, 100, nil, false, false, nil, false); err == nil {
		t.Fatal("expected an error recovering the sender of an unsigned transaction")
	}
}

func TestClientExecutorInput_RoundTrip(t *testing.T) {
	beneficiary := common.HexToAddress("0x00000000000000000000000000000000000abc")
	block := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(5)})
	original := &ClientExecutorInput{
		CurrentBlock:       block,
		ParentStateNodes:   [][]byte{{1, 2, 3}},
		Bytecodes:          [][]byte{{4, 5}},
		GenesisJSON:        []byte(`{"config":{}}`),
		OpcodeTracking:     true,
		PrecompileTracking: true,
		CustomBeneficiary:  &beneficiary,
	}

	encoded, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeClientExecutorInput(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.CurrentBlock.NumberU64() != 5 {
		t.Errorf("number = %d, want 5", decoded.CurrentBlock.NumberU64())
	}
	if !decoded.OpcodeTracking || !decoded.PrecompileTracking {
		t.Error("expected both tracking flags to round-trip true")
	}
	if decoded.CustomBeneficiary == nil || *decoded.CustomBeneficiary != beneficiary {
		t.Errorf("custom beneficiary = %v, want %v", decoded.CustomBeneficiary, beneficiary)
	}
	if len(decoded.ParentStateNodes) != 1 || string(decoded.ParentStateNodes[0]) != string([]byte{1, 2, 3}) {
		t.Errorf("parent state nodes mismatch: %v", decoded.ParentStateNodes)
	}
}
