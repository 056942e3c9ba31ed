// Package provider implements ChainDataProvider ([SPEC 4.1]), the abstract
// read interface over an Ethereum-compatible JSON-RPC endpoint that every
// other component in the pipeline fetches chain data through.
package provider

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ProjectZKM/reth-processor/witness"
)

// ChainDataProvider is the abstract read interface over an Ethereum-
// compatible JSON-RPC endpoint. Implementations must treat a missing block
// as a signal that the RPC is lagging behind the caller's expectation, not
// as an error ([SPEC 4.1]).
type ChainDataProvider interface {
	// BlockByNumber returns the full block (with transactions) at height n,
	// or nil if the RPC does not yet have it.
	BlockByNumber(ctx context.Context, n uint64) (*types.Block, error)

	// ChainID returns the connected endpoint's chain id.
	ChainID(ctx context.Context) (uint64, error)

	// ExecutionWitness fetches the vendor-specific debug_executionWitness
	// payload for block n. The result must contain enough nodes to service
	// every state read block n performs.
	ExecutionWitness(ctx context.Context, n uint64) (*witness.ExecutionWitness, error)

	// SubscribeNewHeads pushes newly announced head headers to ch until ctx
	// is cancelled or the subscription errors. Delivery is best-effort: a
	// reconnect may silently drop headers announced during the gap.
	SubscribeNewHeads(ctx context.Context, ch chan<- *types.Header) (Subscription, error)
}

// Subscription mirrors go-ethereum's rpc.ClientSubscription: Err reports
// subscription failures asynchronously, Unsubscribe tears it down.
type Subscription interface {
	Err() <-chan error
	Unsubscribe()
}

// BlockHashNotFoundError distinguishes "block not found" (caller should
// poll and retry, [SPEC 4.1]) from every other RPC failure.
type BlockHashNotFoundError struct {
	Number uint64
}

func (e *BlockHashNotFoundError) Error() string {
	return "block not found"
}
