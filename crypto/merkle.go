// Binary Merkle tree over an ordered leaf list, matching the settlement
// contract's verifier:
//
//   - Node hash: keccak256(min(a,b) || max(a,b)) with byte-lexicographic
//     ordering. The commutative pairing means a proof carries no left/right
//     direction bits and the on-chain fold is a plain loop.
//   - A level with an odd node count promotes its last node unchanged to
//     the next level. This mirrors the OpenZeppelin-style verifier the
//     bridge contract uses; changing either rule breaks every proof.
//
// A tree is an immutable snapshot of one batch: built once, then queried
// for its root and per-leaf sibling paths.
package crypto

import (
	"bytes"
	"errors"

	"github.com/scobru/shogun-bridge/core/types"
)

// ErrNoLeaves is returned when building a tree from an empty leaf list;
// no root is defined for zero leaves.
var ErrNoLeaves = errors.New("merkle: no leaves")

// MerkleTree is a binary Merkle tree with commutative node hashing.
type MerkleTree struct {
	// levels[0] holds the leaves; each following level is half the size
	// (rounded up); the last level holds only the root.
	levels [][]types.Hash

	// index maps a leaf hash to its position in levels[0]. For duplicate
	// leaves the first occurrence wins.
	index map[types.Hash]int
}

// NewMerkleTree builds a tree over the given ordered leaves. The slice is
// copied; callers may reuse it.
func NewMerkleTree(leaves []types.Hash) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}

	level := make([]types.Hash, len(leaves))
	copy(level, leaves)

	index := make(map[types.Hash]int, len(leaves))
	for i, leaf := range level {
		if _, ok := index[leaf]; !ok {
			index[leaf] = i
		}
	}

	levels := [][]types.Hash{level}
	for len(level) > 1 {
		next := make([]types.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, HashPair(level[i], level[i+1]))
			} else {
				// Odd node: promote unchanged.
				next = append(next, level[i])
			}
		}
		levels = append(levels, next)
		level = next
	}

	return &MerkleTree{levels: levels, index: index}, nil
}

// Root returns the Merkle root.
func (t *MerkleTree) Root() types.Hash {
	return t.levels[len(t.levels)-1][0]
}

// LeafCount returns the number of leaves the tree was built from.
func (t *MerkleTree) LeafCount() int {
	return len(t.levels[0])
}

// Proof returns the ordered sibling path for the given leaf, from the leaf
// level up to (but excluding) the root, or nil if the leaf is not in the
// tree. A promoted odd node contributes no sibling at that level.
func (t *MerkleTree) Proof(leaf types.Hash) []types.Hash {
	pos, ok := t.index[leaf]
	if !ok {
		return nil
	}

	proof := make([]types.Hash, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := pos ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		pos /= 2
	}
	return proof
}

// VerifyProof recomputes the root by folding the leaf with each sibling in
// order, using the same commutative pair hash as construction, and compares
// the result to root. It is a pure function: no state, same inputs always
// give the same answer.
func VerifyProof(proof []types.Hash, root, leaf types.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = HashPair(computed, sibling)
	}
	return computed == root
}

// HashPair hashes two nodes in byte-lexicographic order, so that
// HashPair(a, b) == HashPair(b, a).
func HashPair(a, b types.Hash) types.Hash {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return Keccak256Hash(a[:], b[:])
	}
	return Keccak256Hash(b[:], a[:])
}
