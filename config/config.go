// Package config defines the immutable configuration shared by the host
// one-shot binary and the eth-proofs daemon: which chain is being proven,
// where to reach it, where to cache inputs, and which zkVM proof kind (if
// any) to request.
package config

import (
	"github.com/ethereum/go-ethereum/common"
)

// ProofKind selects which kind of zkVM proof the prover client should
// produce. It mirrors the zkVM SDK's own proof-kind enum; this package
// treats the zkVM prover as an external collaborator and only needs to
// carry the selection through.
type ProofKind string

const (
	ProofKindCore       ProofKind = "core"
	ProofKindCompressed ProofKind = "compressed"
	ProofKindGroth16    ProofKind = "groth16"
	ProofKindPlonk      ProofKind = "plonk"
)

// Config is the immutable configuration for a single run of the host
// executor or the eth-proofs daemon ([SPEC 3]).
type Config struct {
	// ChainID identifies the network being proven.
	ChainID uint64

	// Genesis describes the fork schedule and genesis allocation for ChainID.
	Genesis Genesis

	// RPCURL is the standard JSON-RPC endpoint used for block and header
	// lookups. Empty when operating purely from the InputCache.
	RPCURL string

	// DebugRPCURL is the endpoint that serves debug_executionWitness. It
	// may be the same as RPCURL or a dedicated archive/debug node.
	DebugRPCURL string

	// WitnessRPCURL is the endpoint used specifically for witness
	// collection, falling back to DebugRPCURL then RPCURL when unset.
	WitnessRPCURL string

	// CacheDir, when set, enables the on-disk InputCache at this root.
	CacheDir string

	// CustomBeneficiary overrides the block's fee recipient, used for
	// Clique-compatible chains where the beneficiary recorded on-chain
	// differs from the address the guest should treat as coinbase. It is
	// carried in the input but never applied by the host executor itself.
	CustomBeneficiary *common.Address

	// ProveMode selects whether to generate a real proof (non-nil) or only
	// execute the guest program (nil).
	ProveMode *ProofKind

	// OpcodeTracking enables per-opcode cycle-count tracking in the guest.
	// It is never part of the InputCache key and is always overlaid from
	// the active Config onto any cached input ([SPEC 4.5]).
	OpcodeTracking bool

	// PrecompileTracking enables per-precompile call-count tracking in the
	// guest ([SPEC 6.4] --precompile-tracking), overlaid the same way as
	// OpcodeTracking.
	PrecompileTracking bool
}

// ExecuteOnly reports whether this configuration should only execute the
// guest program rather than request a proof.
func (c Config) ExecuteOnly() bool { return c.ProveMode == nil }
