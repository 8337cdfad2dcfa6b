package types

import (
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// LeafEncodingLength is the byte length of a packed withdrawal leaf:
// 20-byte address followed by two left-padded 32-byte big-endian words.
const LeafEncodingLength = AddressLength + 32 + 32

// PendingWithdrawal is a withdrawal request that has been validated and
// debited but not yet committed under a Merkle root. It lives in the
// withdrawal queue until a batch consumes it.
type PendingWithdrawal struct {
	// User is the account the withdrawal was debited from.
	User Address `json:"user"`

	// Amount is the withdrawn value. It was reserved (debited) at request
	// time and is no longer spendable.
	Amount *uint256.Int `json:"amount"`

	// Nonce is the user-supplied replay-protection value, strictly greater
	// than every nonce previously accepted for this user.
	Nonce *uint256.Int `json:"nonce"`

	// Timestamp records when the request was accepted. Informational only:
	// it is not part of the leaf encoding and carries no commitment.
	Timestamp time.Time `json:"timestamp"`
}

// LeafHash returns the Merkle leaf committing to this withdrawal.
func (w *PendingWithdrawal) LeafHash() Hash {
	return LeafHash(w.User, w.Amount, w.Nonce)
}

// EncodeLeaf packs (user, amount, nonce) exactly as Solidity
// abi.encodePacked(address, uint256, uint256) does: the raw 20 address
// bytes followed by each word as 32 big-endian bytes, no length prefixes.
// This layout is what the on-chain verifier recomputes; it must never
// change without a coordinated contract upgrade.
func EncodeLeaf(user Address, amount, nonce *uint256.Int) []byte {
	buf := make([]byte, 0, LeafEncodingLength)
	buf = append(buf, user[:]...)
	a := amount.Bytes32()
	buf = append(buf, a[:]...)
	n := nonce.Bytes32()
	buf = append(buf, n[:]...)
	return buf
}

// LeafHash computes keccak256(EncodeLeaf(user, amount, nonce)), the leaf
// the settlement contract derives from a claimed withdrawal.
func LeafHash(user Address, amount, nonce *uint256.Int) Hash {
	return keccak256Hash(EncodeLeaf(user, amount, nonce))
}

// keccak256Hash computes keccak256 and returns a Hash (avoids import cycle
// with the crypto pkg).
func keccak256Hash(data []byte) Hash {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	var h Hash
	copy(h[:], d.Sum(nil))
	return h
}
