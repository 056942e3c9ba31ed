package executor

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ProjectZKM/reth-processor/cache"
	"github.com/ProjectZKM/reth-processor/config"
	"github.com/ProjectZKM/reth-processor/hostexecutor"
	"github.com/ProjectZKM/reth-processor/prover"
)

func testInput(number int64) *hostexecutor.ClientExecutorInput {
	header := &types.Header{Number: big.NewInt(number)}
	return &hostexecutor.ClientExecutorInput{
		CurrentBlock:     types.NewBlockWithHeader(header),
		ParentStateNodes: [][]byte{{0x01}},
		Bytecodes:        [][]byte{{0x60}},
		GenesisJSON:      []byte(`{}`),
	}
}

func TestCachedExecutor_ExecuteOnly_CacheHit(t *testing.T) {
	dir := t.TempDir()
	ic := cache.New(dir)
	if err := ic.Store(1, 100, testInput(100)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	client := &prover.MockProver{}
	pk, vk, err := client.Setup([]byte("elf"))
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	cfg := config.Config{ChainID: 1}
	e := NewCachedExecutor(dir, client, pk, vk, NoopHooks{}, cfg, NewEth(), NewBlockingPool(1))

	if err := e.Execute(context.Background(), 100); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestCachedExecutor_ExecuteOnly_CacheMissIsFatal(t *testing.T) {
	dir := t.TempDir()
	client := &prover.MockProver{}
	pk, vk, _ := client.Setup([]byte("elf"))

	cfg := config.Config{ChainID: 1}
	e := NewCachedExecutor(dir, client, pk, vk, NoopHooks{}, cfg, NewEth(), NewBlockingPool(1))

	if err := e.Execute(context.Background(), 404); err == nil {
		t.Fatal("expected an error for an uncached block")
	}
}

func TestCachedExecutor_WaitForBlockIsNoop(t *testing.T) {
	e := NewCachedExecutor(t.TempDir(), &prover.MockProver{}, &prover.ProvingKey{}, &prover.VerifyingKey{}, NoopHooks{}, config.Config{}, NewEth(), NewBlockingPool(1))
	if err := e.WaitForBlock(context.Background(), 1); err != nil {
		t.Fatalf("WaitForBlock: %v", err)
	}
}

func TestFullExecutor_Execute_CacheHitSkipsHostExecutor(t *testing.T) {
	dir := t.TempDir()
	ic := cache.New(dir)
	if err := ic.Store(1, 200, testInput(200)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	client := &prover.MockProver{}
	pk, vk, _ := client.Setup([]byte("elf"))

	cfg := config.Config{ChainID: 1, CacheDir: dir}
	// hostExecutor is deliberately nil: a cache hit must never dereference
	// it.
	full := NewFullExecutor(nil, nil, nil, client, pk, vk, NoopHooks{}, cfg, NewEth(), NewBlockingPool(1))

	if err := full.Execute(context.Background(), 200); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestFullExecutor_Execute_ProveMode(t *testing.T) {
	dir := t.TempDir()
	ic := cache.New(dir)
	if err := ic.Store(1, 300, testInput(300)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	client := &prover.MockProver{}
	pk, vk, _ := client.Setup([]byte("elf"))

	kind := config.ProofKindCore
	cfg := config.Config{ChainID: 1, CacheDir: dir, ProveMode: &kind}
	full := NewFullExecutor(nil, nil, nil, client, pk, vk, NoopHooks{}, cfg, NewEth(), NewBlockingPool(1))

	if err := full.Execute(context.Background(), 300); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}
