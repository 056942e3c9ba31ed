package witness

import (
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/ProjectZKM/reth-processor/herrors"
)

// Account is the subset of trie-encoded account state the EVM executor
// needs; it deliberately excludes the raw storage/code, which are served
// separately through Database.Storage and Database.CodeByHash.
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash common.Hash
}

// Database is the read-only state oracle built atop a reconstructed Trie
// and a code-hash map, implementing exactly the queries an EVM executor
// issues during stateless block execution ([SPEC 4.3]). Every method is
// pure and side-effect-free; if Trie construction succeeded, every call
// that the block actually performs must succeed without touching external
// storage ([SPEC 4.2] invariant).
type Database struct {
	trie      *Trie
	codes     map[common.Hash][]byte
	ancestors map[uint64]*types.Header
}

// NewDatabase builds a Database over an already-reconstructed Trie, a
// code-hash -> bytecode map, and the ancestor headers supplied by the
// witness (at most 256, per BLOCKHASH's reach).
func NewDatabase(trie *Trie, codes map[common.Hash][]byte, ancestors []*types.Header) *Database {
	byNumber := make(map[uint64]*types.Header, len(ancestors))
	for _, h := range ancestors {
		byNumber[h.Number.Uint64()] = h
	}
	return &Database{trie: trie, codes: codes, ancestors: byNumber}
}

// Basic returns the account info for addr, with code resolved lazily by
// hash via CodeByHash rather than eagerly attached here.
func (d *Database) Basic(addr common.Address) (*Account, error) {
	acc, err := d.trie.Account(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, nil
	}
	balance, overflow := uint256.FromBig(acc.Balance)
	if overflow {
		return nil, newFromProofError(d.trie.Root(), errors.Newf("account %s balance overflows uint256", addr))
	}
	return &Account{
		Nonce:    acc.Nonce,
		Balance:  balance,
		CodeHash: common.BytesToHash(acc.CodeHash),
	}, nil
}

// CodeByHash returns the bytecode for hash. An absent code hash is a
// witness bug (the witness was supposed to include every code the block's
// accounts reference) and is therefore treated as fatal, not a soft miss.
func (d *Database) CodeByHash(hash common.Hash) ([]byte, error) {
	if hash == types.EmptyCodeHash {
		return nil, nil
	}
	code, ok := d.codes[hash]
	if !ok {
		return nil, newFromProofError(d.trie.Root(), errors.Newf("code for hash %s not found in witness", hash))
	}
	return code, nil
}

// Storage returns the value at slot for addr, or zero if the slot (or the
// account, or its storage trie) is absent.
func (d *Database) Storage(addr common.Address, slot common.Hash) (*uint256.Int, error) {
	enc, err := d.trie.Storage(addr, slot)
	if err != nil {
		return nil, err
	}
	// Trie.Storage returns the slot's value bytes with their RLP string
	// framing already removed, so they are the big-endian value itself.
	return new(uint256.Int).SetBytes(enc), nil
}

// BlockHash returns the hash of the ancestor header at height number. The
// witness only carries ancestors the block actually referenced (up to 256
// deep); a request outside that range is fatal ([SPEC 4.3]).
func (d *Database) BlockHash(number uint64) (common.Hash, error) {
	header, ok := d.ancestors[number]
	if !ok {
		return common.Hash{}, errors.Wrapf(herrors.ErrMissingAncestorHeader, "height %d not present among %d witness ancestors", number, len(d.ancestors))
	}
	return header.Hash(), nil
}
