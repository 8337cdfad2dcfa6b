// Package crypto provides the hashing and Merkle-tree primitives of the
// withdrawal engine. Everything here must stay byte-compatible with the
// on-chain verifier: keccak256 for leaves and nodes, commutative pair
// ordering for proofs.
package crypto

import (
	"github.com/scobru/shogun-bridge/core/types"
	"golang.org/x/crypto/sha3"
)

// Keccak256 calculates the Keccak-256 hash of the given data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
