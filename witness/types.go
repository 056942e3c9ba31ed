// Package witness reconstructs a sparse Merkle-Patricia trie view of
// pre-state from an unordered bag of RLP-encoded nodes returned by
// debug_executionWitness, and exposes it as the read-only state oracle an
// EVM execution engine expects ([SPEC 4.2], [SPEC 4.3]).
package witness

import (
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ExecutionWitness is the RPC-provided bundle backing a single block's
// stateless re-execution: the unordered trie nodes needed to prove every
// state read, the bytecodes those reads touch, and enough ancestor headers
// to satisfy BLOCKHASH ([SPEC 3]).
//
// Invariant: the union of State must be sufficient to reconstruct every
// trie path the block touches under the parent block's state root.
type ExecutionWitness struct {
	// State is the unordered set of RLP-encoded trie nodes (account trie
	// and every touched storage trie), keyed implicitly by keccak(node).
	State [][]byte
	// Codes is the unordered set of contract bytecodes referenced by any
	// account touched during the block.
	Codes [][]byte
	// Headers holds up to 256 ancestor headers, enabling BLOCKHASH.
	Headers []*types.Header
	// Keys is populated only by the Goat-testnet variant of
	// debug_executionWitness ([SPEC 6.1]); it is currently unused by the
	// reconstruction algorithm but is preserved for forward compatibility.
	Keys [][]byte
}

// FromProofError reports that a WitnessTrie could not be reconstructed, or
// that a read against a reconstructed trie failed, because the supplied
// witness nodes were missing, malformed, or did not match the expected
// root ([SPEC 4.2] "Failure modes").
type FromProofError struct {
	// Root is the trie root the reconstruction was attempted against.
	Root common.Hash
	cause error
}

func (e *FromProofError) Error() string {
	return errors.Wrapf(e.cause, "failed to construct a valid state trie from RPC data (root %s)", e.Root).Error()
}

func (e *FromProofError) Unwrap() error { return e.cause }

func newFromProofError(root common.Hash, cause error) *FromProofError {
	return &FromProofError{Root: root, cause: cause}
}
