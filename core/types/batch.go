package types

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// Batch is one atomic group of withdrawals committed under a single Merkle
// root. A batch is created once, handed to the on-chain submission
// collaborator, and never mutated: its proofs are valid only against its
// own root.
type Batch struct {
	// ID is a random 32-byte identifier. Opaque: it carries no commitment
	// and is not a security boundary.
	ID Hash

	// MerkleRoot commits to every withdrawal in the batch. This is the
	// value published to the settlement contract.
	MerkleRoot Hash

	// Withdrawals lists the batch contents in queue insertion order, which
	// is the canonical leaf order of the tree.
	Withdrawals []*PendingWithdrawal

	// proofs maps a leaf hash to its sibling path, leaf level first.
	proofs map[Hash][]Hash
}

// NewBatch assembles an immutable batch. The proofs map is keyed by leaf
// hash and must contain an entry for every withdrawal; ownership of all
// arguments passes to the batch.
func NewBatch(id, root Hash, withdrawals []*PendingWithdrawal, proofs map[Hash][]Hash) *Batch {
	return &Batch{
		ID:          id,
		MerkleRoot:  root,
		Withdrawals: withdrawals,
		proofs:      proofs,
	}
}

// Proof returns the sibling path for the withdrawal identified by the
// exact (user, amount, nonce) triple, or nil if no such leaf is in the
// batch. Any field mismatch produces a different leaf hash and therefore
// a nil result.
func (b *Batch) Proof(user Address, amount, nonce *uint256.Int) []Hash {
	return b.proofs[LeafHash(user, amount, nonce)]
}

// ProofForLeaf returns the sibling path for a precomputed leaf hash, or
// nil if the leaf is not in the batch.
func (b *Batch) ProofForLeaf(leaf Hash) []Hash {
	return b.proofs[leaf]
}

// Size returns the number of withdrawals in the batch.
func (b *Batch) Size() int {
	return len(b.Withdrawals)
}

// batchJSON is the wire layout of a batch: proofs are keyed by the hex
// leaf hash so users can look up their own path after the handoff.
type batchJSON struct {
	ID          Hash                 `json:"batchId"`
	MerkleRoot  Hash                 `json:"merkleRoot"`
	Withdrawals []*PendingWithdrawal `json:"withdrawals"`
	Proofs      map[string][]Hash    `json:"proofs"`
}

// MarshalJSON encodes the batch, including its proof map.
func (b *Batch) MarshalJSON() ([]byte, error) {
	enc := batchJSON{
		ID:          b.ID,
		MerkleRoot:  b.MerkleRoot,
		Withdrawals: b.Withdrawals,
		Proofs:      make(map[string][]Hash, len(b.proofs)),
	}
	for leaf, path := range b.proofs {
		enc.Proofs[leaf.Hex()] = path
	}
	return json.Marshal(enc)
}

// UnmarshalJSON decodes a batch produced by MarshalJSON.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var dec batchJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	proofs := make(map[Hash][]Hash, len(dec.Proofs))
	for key, path := range dec.Proofs {
		raw, err := decodeHex(key, HashLength)
		if err != nil {
			return fmt.Errorf("types: invalid proof key %q: %w", key, err)
		}
		proofs[BytesToHash(raw)] = path
	}
	b.ID = dec.ID
	b.MerkleRoot = dec.MerkleRoot
	b.Withdrawals = dec.Withdrawals
	b.proofs = proofs
	return nil
}
