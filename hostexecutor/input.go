// Package hostexecutor implements HostExecutor ([SPEC 4.4]): given a block
// number and a ChainDataProvider, it fetches the witness, reconstructs the
// WitnessTrie, optionally re-runs the block locally as a sanity check, and
// assembles a ClientExecutorInput ready for the prover's stdin buffer.
package hostexecutor

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/cockroachdb/errors"
)

// ClientExecutorInput is everything the zkVM guest needs to stateless-ly
// re-execute one block, and everything HostExecutor assembles per
// [SPEC 4.4] step 7. It is RLP-serialized (the module's fixed-encoding
// choice, see DESIGN.md) both into the prover's stdin buffer and onto disk
// by the cache, reusing the same codec go-ethereum already defines for
// Block, Header and byte slices rather than introducing a second
// serialization format.
type ClientExecutorInput struct {
	// CurrentBlock is the full block under execution.
	CurrentBlock *types.Block
	// AncestorHeaders holds ancestor headers beyond the immediate parent
	// that BLOCKHASH might reference; [SPEC 9] open question notes the
	// reference host path leaves this empty, relying entirely on the
	// witness's own ancestor set.
	AncestorHeaders []*types.Header
	// ParentStateNodes is the raw RLP-encoded trie node set the witness
	// supplied, rooted at CurrentBlock's parent's state root.
	ParentStateNodes [][]byte
	// Bytecodes is the contract code the witness supplied for accounts
	// touched during the block, kept as the RPC returned it.
	Bytecodes [][]byte
	// GenesisJSON carries the chain's genesis definition so the guest can
	// derive the same ChainConfig the host used.
	GenesisJSON []byte
	// OpcodeTracking toggles per-opcode cycle accounting. Not part of the
	// cache key: the executor overlays this field from the live config onto
	// whatever was cached before each run ([SPEC 4.5]).
	OpcodeTracking bool
	// PrecompileTracking toggles per-precompile call-count accounting,
	// overlaid from config the same way as OpcodeTracking ([SPEC 6.4]
	// --precompile-tracking).
	PrecompileTracking bool
	// CustomBeneficiary is a Clique-compatibility override recorded here
	// but not applied by HostExecutor itself ([SPEC 4.4] tie-breaking).
	// Trailing and optional so blocks without the override encode
	// identically to how they did before this field existed.
	CustomBeneficiary *common.Address `rlp:"optional"`
}

// Encode RLP-serializes the input for the prover's stdin buffer or the
// on-disk cache.
func (c *ClientExecutorInput) Encode() ([]byte, error) {
	buf, err := rlp.EncodeToBytes(c)
	if err != nil {
		return nil, errors.Wrap(err, "encode client executor input")
	}
	return buf, nil
}

// DecodeClientExecutorInput reverses Encode; a round trip through
// Encode/DecodeClientExecutorInput must reproduce every field unchanged
// ([SPEC 8] property 2).
func DecodeClientExecutorInput(data []byte) (*ClientExecutorInput, error) {
	var c ClientExecutorInput
	if err := rlp.DecodeBytes(data, &c); err != nil {
		return nil, errors.Wrap(err, "decode client executor input")
	}
	return &c, nil
}
