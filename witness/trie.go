package witness

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
)

// Trie is a sparse Merkle-Patricia trie view reconstructed from an
// unordered bag of RLP-encoded nodes plus a known root hash ([SPEC 4.2]).
// It holds one account trie and lazily materializes one storage trie per
// account on first access, as the algorithm in [SPEC 4.2] describes.
//
// A Trie is read-only but not safe for concurrent use: reads go through
// go-ethereum StateTries, which are not safe for concurrent use. Only the
// memo of opened storage tries is guarded by a mutex.
type Trie struct {
	root    common.Hash
	triedb  *triedb.Database
	account *trie.StateTrie

	mu       sync.Mutex
	storage  map[common.Hash]*trie.StateTrie // keyed by keccak(address)
}

// New loads nodes and opens the account trie under root; storage tries are
// opened lazily, on the first Storage read of each account. Nodes not
// reachable from root are simply never visited; they do not cause an error.
//
// Construction fails with a *FromProofError if root itself is absent from
// nodes (root types.EmptyRootHash, the empty trie, needs no node and is not
// an error), or if the account trie cannot be opened against the given root.
func New(nodes [][]byte, root common.Hash) (*Trie, error) {
	memdb := rawdb.NewMemoryDatabase()
	if err := loadNodes(memdb, nodes); err != nil {
		return nil, newFromProofError(root, err)
	}

	if root != types.EmptyRootHash {
		if ok, err := memdb.Has(root.Bytes()); err != nil || !ok {
			return nil, newFromProofError(root, errMissingRootNode)
		}
	}

	tdb := triedb.NewDatabase(memdb, triedb.HashDefaults)
	accountTrie, err := trie.NewStateTrie(trie.StateTrieID(root), tdb)
	if err != nil {
		return nil, newFromProofError(root, err)
	}

	return &Trie{
		root:    root,
		triedb:  tdb,
		account: accountTrie,
		storage: make(map[common.Hash]*trie.StateTrie),
	}, nil
}

// loadNodes keccak-hashes every encoded node and stores it under that hash
// in the hashdb key-space, exactly as a real trie database would have
// persisted it ([SPEC 4.2] step 1).
func loadNodes(db ethdb.KeyValueWriter, nodes [][]byte) error {
	for _, node := range nodes {
		hash := crypto.Keccak256Hash(node)
		if err := db.Put(hash.Bytes(), node); err != nil {
			return err
		}
	}
	return nil
}

// Account looks up keccak(addr) in the account trie and RLP-decodes the
// result into a StateAccount. A nil result with a nil error means the
// account does not exist ([SPEC 4.2] read contract).
func (t *Trie) Account(addr common.Address) (*types.StateAccount, error) {
	account, err := t.account.GetAccount(addr)
	if err != nil {
		return nil, newFromProofError(t.root, err)
	}
	return account, nil
}

// Storage looks up slot in the storage trie rooted at account(addr)'s
// storage root. A missing account, an empty storage root, or a missing
// path all resolve to zero, matching EVM SLOAD semantics for untouched
// slots ([SPEC 4.2] read contract).
func (t *Trie) Storage(addr common.Address, slot common.Hash) ([]byte, error) {
	account, err := t.Account(addr)
	if err != nil {
		return nil, err
	}
	if account == nil || account.Root == (common.Hash{}) || account.Root == types.EmptyRootHash {
		return nil, nil
	}

	storageTrie, err := t.openStorageTrie(addr, account.Root)
	if err != nil {
		return nil, err
	}

	enc, err := storageTrie.GetStorage(addr, slot.Bytes())
	if err != nil {
		return nil, newFromProofError(t.root, err)
	}
	return enc, nil
}

func (t *Trie) openStorageTrie(addr common.Address, storageRoot common.Hash) (*trie.StateTrie, error) {
	addrHash := crypto.Keccak256Hash(addr.Bytes())

	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.storage[addrHash]; ok {
		return st, nil
	}

	id := trie.StorageTrieID(t.root, addrHash, storageRoot)
	st, err := trie.NewStateTrie(id, t.triedb)
	if err != nil {
		return nil, newFromProofError(t.root, err)
	}
	t.storage[addrHash] = st
	return st, nil
}

// Root returns the root hash this trie was constructed against.
func (t *Trie) Root() common.Hash { return t.root }

// Disk returns the key-value store backing this trie's node set, letting
// callers preload additional data (such as bytecode, for a local replay
// sanity check) alongside the witness nodes already stored there.
func (t *Trie) Disk() ethdb.Database { return t.triedb.Disk() }

var errMissingRootNode = rootNodeMissingError{}

type rootNodeMissingError struct{}

func (rootNodeMissingError) Error() string {
	return "witness does not contain a node for the requested root hash"
}
