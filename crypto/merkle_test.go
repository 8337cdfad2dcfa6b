package crypto

import (
	"bytes"
	"fmt"
	"testing"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/scobru/shogun-bridge/core/types"
)

func testLeaves(n int) []types.Hash {
	leaves := make([]types.Hash, n)
	for i := range leaves {
		leaves[i] = Keccak256Hash([]byte{byte(i)})
	}
	return leaves
}

func TestNewMerkleTreeEmpty(t *testing.T) {
	if _, err := NewMerkleTree(nil); err != ErrNoLeaves {
		t.Fatalf("expected ErrNoLeaves, got %v", err)
	}
}

func TestSingleLeafTree(t *testing.T) {
	leaves := testLeaves(1)
	tree, err := NewMerkleTree(leaves)
	if err != nil {
		t.Fatalf("NewMerkleTree: %v", err)
	}
	if tree.Root() != leaves[0] {
		t.Fatal("single-leaf root must equal the leaf")
	}
	proof := tree.Proof(leaves[0])
	if len(proof) != 0 {
		t.Fatalf("single-leaf proof must be empty, got %d siblings", len(proof))
	}
	if !VerifyProof(proof, tree.Root(), leaves[0]) {
		t.Fatal("empty proof must verify against leaf root")
	}
}

func TestTwoLeafRoot(t *testing.T) {
	leaves := testLeaves(2)
	tree, err := NewMerkleTree(leaves)
	if err != nil {
		t.Fatalf("NewMerkleTree: %v", err)
	}

	// Recompute the root independently with geth's keccak and explicit
	// byte-lexicographic ordering.
	a, b := leaves[0], leaves[1]
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	want := gethcrypto.Keccak256(a[:], b[:])
	if !bytes.Equal(tree.Root().Bytes(), want) {
		t.Fatalf("root mismatch: got %s, want 0x%x", tree.Root(), want)
	}
}

func TestHashPairCommutative(t *testing.T) {
	a := Keccak256Hash([]byte("a"))
	b := Keccak256Hash([]byte("b"))
	if HashPair(a, b) != HashPair(b, a) {
		t.Fatal("HashPair must be commutative")
	}
}

// Odd levels promote the last node unchanged: a 3-leaf tree's root is
// hash(hash(l0,l1), l2).
func TestOddLevelPromotion(t *testing.T) {
	leaves := testLeaves(3)
	tree, err := NewMerkleTree(leaves)
	if err != nil {
		t.Fatalf("NewMerkleTree: %v", err)
	}
	want := HashPair(HashPair(leaves[0], leaves[1]), leaves[2])
	if tree.Root() != want {
		t.Fatalf("3-leaf root: got %s, want %s", tree.Root(), want)
	}

	// The promoted leaf's proof skips its own level.
	proof := tree.Proof(leaves[2])
	if len(proof) != 1 {
		t.Fatalf("promoted leaf proof length: got %d, want 1", len(proof))
	}
	if !VerifyProof(proof, tree.Root(), leaves[2]) {
		t.Fatal("promoted leaf proof must verify")
	}
}

func TestAllProofsVerifyAcrossSizes(t *testing.T) {
	for n := 1; n <= 33; n++ {
		t.Run(fmt.Sprintf("leaves=%d", n), func(t *testing.T) {
			leaves := testLeaves(n)
			tree, err := NewMerkleTree(leaves)
			if err != nil {
				t.Fatalf("NewMerkleTree: %v", err)
			}
			root := tree.Root()
			for i, leaf := range leaves {
				proof := tree.Proof(leaf)
				if proof == nil && n > 1 {
					t.Fatalf("no proof for leaf %d", i)
				}
				if !VerifyProof(proof, root, leaf) {
					t.Fatalf("proof for leaf %d does not verify", i)
				}
			}
		})
	}
}

func TestProofForAbsentLeaf(t *testing.T) {
	tree, err := NewMerkleTree(testLeaves(8))
	if err != nil {
		t.Fatalf("NewMerkleTree: %v", err)
	}
	outsider := Keccak256Hash([]byte("not in tree"))
	if tree.Proof(outsider) != nil {
		t.Fatal("expected nil proof for absent leaf")
	}
}

func TestVerifyProofRejectsTampering(t *testing.T) {
	leaves := testLeaves(8)
	tree, err := NewMerkleTree(leaves)
	if err != nil {
		t.Fatalf("NewMerkleTree: %v", err)
	}
	root := tree.Root()
	proof := tree.Proof(leaves[3])

	// Wrong leaf.
	if VerifyProof(proof, root, leaves[4]) {
		t.Error("proof verified against wrong leaf")
	}
	// Tampered leaf bit.
	tampered := leaves[3]
	tampered[0] ^= 0x01
	if VerifyProof(proof, root, tampered) {
		t.Error("proof verified against tampered leaf")
	}
	// Tampered sibling.
	badProof := make([]types.Hash, len(proof))
	copy(badProof, proof)
	badProof[0][31] ^= 0x01
	if VerifyProof(badProof, root, leaves[3]) {
		t.Error("tampered proof verified")
	}
	// Truncated proof.
	if VerifyProof(proof[:len(proof)-1], root, leaves[3]) {
		t.Error("truncated proof verified")
	}
	// Wrong root.
	badRoot := root
	badRoot[0] ^= 0x01
	if VerifyProof(proof, badRoot, leaves[3]) {
		t.Error("proof verified against wrong root")
	}
}

// VerifyProof is pure: repeated calls with identical inputs agree.
func TestVerifyProofIdempotent(t *testing.T) {
	leaves := testLeaves(5)
	tree, err := NewMerkleTree(leaves)
	if err != nil {
		t.Fatalf("NewMerkleTree: %v", err)
	}
	proof := tree.Proof(leaves[2])
	first := VerifyProof(proof, tree.Root(), leaves[2])
	for i := 0; i < 10; i++ {
		if VerifyProof(proof, tree.Root(), leaves[2]) != first {
			t.Fatal("VerifyProof result changed across calls")
		}
	}
}

func TestTreeDeterministic(t *testing.T) {
	leaves := testLeaves(7)
	t1, _ := NewMerkleTree(leaves)
	t2, _ := NewMerkleTree(leaves)
	if t1.Root() != t2.Root() {
		t.Fatal("same leaves must produce the same root")
	}
}

func TestLeafOrderChangesRoot(t *testing.T) {
	leaves := testLeaves(4)
	t1, _ := NewMerkleTree(leaves)
	swapped := []types.Hash{leaves[0], leaves[2], leaves[1], leaves[3]}
	t2, _ := NewMerkleTree(swapped)
	if t1.Root() == t2.Root() {
		t.Fatal("reordering leaves should change the root")
	}
}

func TestLeafCount(t *testing.T) {
	tree, _ := NewMerkleTree(testLeaves(6))
	if tree.LeafCount() != 6 {
		t.Fatalf("LeafCount: got %d, want 6", tree.LeafCount())
	}
}
