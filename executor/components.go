// Package executor implements BlockExecutor ([SPEC 4.6]) and the tagged
// component-selection dispatch ([SPEC 4.9], [SPEC 9] "Generic component
// selection -> tagged dispatch"): a single startup-time choice between the
// Ethereum and Optimism variants, rather than runtime polymorphism on the
// block-processing hot path.
package executor

import (
	"context"

	"github.com/ProjectZKM/reth-processor/hostexecutor"
)

// Variant tags which chain family a set of Components was built for.
type Variant int

const (
	VariantEth Variant = iota
	VariantOptimism
)

func (v Variant) String() string {
	if v == VariantOptimism {
		return "optimism"
	}
	return "eth"
}

// Components bundles the per-variant behavior FullExecutor and
// CachedExecutor need beyond the shared HostExecutor/Prover/Cache/Hooks
// pipeline. Both fields have sensible Eth defaults; Optimism sets them to
// its deposit-transaction-aware variants.
type Components struct {
	Variant Variant

	// RecoverSenders decides, after HostExecutor's signature-based sender
	// recovery fails for a transaction, whether that failure is tolerated
	// (as for a deposit transaction) or fails the block. Passed straight
	// through to HostExecutor.Execute ([SPEC_FULL.md] 4.9).
	RecoverSenders hostexecutor.SenderRecoveryPolicy

	// SkipBaseFeeCheck disables the base-fee-per-gas invariant during the
	// optional local replay sanity check; Optimism computes it differently
	// post-Bedrock ([SPEC_FULL.md] 4.9).
	SkipBaseFeeCheck bool
}

// EthComponents is the default variant: every transaction must carry a
// recoverable signature.
type EthComponents struct{}

func (EthComponents) TolerateRecoveryFailure(context.Context, int) bool { return false }

// NewEth builds the Ethereum-variant Components.
func NewEth() Components {
	return Components{Variant: VariantEth, RecoverSenders: EthComponents{}, SkipBaseFeeCheck: false}
}

// OpComponents tolerates deposit transactions, which carry no ECDSA
// signature and have their sender recovered from the L1 deposit event
// instead ([SPEC_FULL.md] 4.9, supplemented from original_source/).
type OpComponents struct {
	DepositTxIndices map[int]bool
}

func (c OpComponents) TolerateRecoveryFailure(_ context.Context, txIndex int) bool {
	return c.DepositTxIndices[txIndex]
}

// NewOptimism builds the Optimism-variant Components.
func NewOptimism() Components {
	return Components{Variant: VariantOptimism, RecoverSenders: OpComponents{DepositTxIndices: map[int]bool{}}, SkipBaseFeeCheck: true}
}
