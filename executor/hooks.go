package executor

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ProjectZKM/reth-processor/prover"
)

// ExecutionHooks is the aggregator contract BlockExecutor drives ([SPEC
// 4.8]). It is consumed here, not implemented: see package hooks for the
// HTTP-backed aggregator client. Every hook is asynchronous and its
// failure is surfaced as a block-level error by the caller, not swallowed.
type ExecutionHooks interface {
	OnExecutionStart(ctx context.Context, blockNumber uint64) error
	OnExecutionEnd(ctx context.Context, block *types.Block, report *prover.ExecutionReport) error
	OnProvingStart(ctx context.Context, blockNumber uint64) error
	OnProvingEnd(ctx context.Context, blockNumber uint64, proof prover.Proof, vk *prover.VerifyingKey, cycles uint64, duration time.Duration) error
}

// NoopHooks is a zero-cost ExecutionHooks used when no aggregator is
// configured.
type NoopHooks struct{}

func (NoopHooks) OnExecutionStart(context.Context, uint64) error { return nil }
func (NoopHooks) OnExecutionEnd(context.Context, *types.Block, *prover.ExecutionReport) error {
	return nil
}
func (NoopHooks) OnProvingStart(context.Context, uint64) error { return nil }
func (NoopHooks) OnProvingEnd(context.Context, uint64, prover.Proof, *prover.VerifyingKey, uint64, time.Duration) error {
	return nil
}
