package witness

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestDatabase_BasicAndCodeByHash(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000ab01")
	code := []byte{0x60, 0x00, 0x60, 0x00, 0xf3}
	codeHash := crypto.Keccak256Hash(code)

	account := &types.StateAccount{
		Nonce:    3,
		Balance:  big.NewInt(42),
		Root:     types.EmptyRootHash,
		CodeHash: codeHash.Bytes(),
	}
	nodes, root := buildSingleAccountWitness(t, addr, account)

	tr, err := New(nodes, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	db := NewDatabase(tr, map[common.Hash][]byte{codeHash: code}, nil)

	basic, err := db.Basic(addr)
	if err != nil {
		t.Fatalf("Basic: %v", err)
	}
	if basic.Nonce != 3 {
		t.Fatalf("nonce = %d, want 3", basic.Nonce)
	}
	if basic.CodeHash != codeHash {
		t.Fatalf("code hash = %s, want %s", basic.CodeHash, codeHash)
	}

	gotCode, err := db.CodeByHash(codeHash)
	if err != nil {
		t.Fatalf("CodeByHash: %v", err)
	}
	if string(gotCode) != string(code) {
		t.Fatalf("code = %x, want %x", gotCode, code)
	}
}

func TestDatabase_CodeByHashMissingIsFatal(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000ab02")
	nodes, root := buildSingleAccountWitness(t, addr, testAccount())
	tr, err := New(nodes, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	db := NewDatabase(tr, map[common.Hash][]byte{}, nil)
	if _, err := db.CodeByHash(crypto.Keccak256Hash([]byte("missing"))); err == nil {
		t.Fatal("expected error for code hash absent from witness")
	}
}

func TestDatabase_BlockHashWithinAndOutsideRange(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000ab03")
	nodes, root := buildSingleAccountWitness(t, addr, testAccount())
	tr, err := New(nodes, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ancestor := &types.Header{Number: big.NewInt(99)}
	db := NewDatabase(tr, map[common.Hash][]byte{}, []*types.Header{ancestor})

	hash, err := db.BlockHash(99)
	if err != nil {
		t.Fatalf("BlockHash: %v", err)
	}
	if hash != ancestor.Hash() {
		t.Fatalf("hash = %s, want %s", hash, ancestor.Hash())
	}

	if _, err := db.BlockHash(98); err == nil {
		t.Fatal("expected error for height outside witness ancestor headers")
	}
}
