package bridge

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/scobru/shogun-bridge/core/types"
)

// NonceTracker records the highest withdrawal nonce ever accepted per user.
// Nonces need not be sequential: any strictly increasing value is accepted,
// so clients may allocate nonces with gaps (including randomly). Every
// accepted nonce is single-use forever for that user.
type NonceTracker struct {
	mu   sync.RWMutex
	last map[types.Address]*uint256.Int
}

// NewNonceTracker creates an empty tracker. Users without a record have an
// implicit last nonce of zero.
func NewNonceTracker() *NonceTracker {
	return &NonceTracker{last: make(map[types.Address]*uint256.Int)}
}

// LastNonce returns a copy of the highest accepted nonce for user, or zero
// if the user has no record.
func (nt *NonceTracker) LastNonce(user types.Address) *uint256.Int {
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	if n, ok := nt.last[user]; ok {
		return new(uint256.Int).Set(n)
	}
	return new(uint256.Int)
}

// ValidateNonce checks that nonce is strictly greater than the user's last
// accepted nonce, returning ErrNonceTooLow otherwise. It never mutates
// state.
func (nt *NonceTracker) ValidateNonce(user types.Address, nonce *uint256.Int) error {
	if nonce == nil {
		return ErrNilNonce
	}
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	last, ok := nt.last[user]
	if !ok {
		// Implicit last nonce is zero, so zero itself is never valid.
		if nonce.IsZero() {
			return ErrNonceTooLow
		}
		return nil
	}
	if !nonce.Gt(last) {
		return ErrNonceTooLow
	}
	return nil
}

// SetLastNonce unconditionally records nonce as the user's highest accepted
// value. The caller must have validated monotonicity first.
func (nt *NonceTracker) SetLastNonce(user types.Address, nonce *uint256.Int) {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	nt.last[user] = new(uint256.Int).Set(nonce)
}

// Entries returns a copy of every user's last nonce, for snapshotting.
func (nt *NonceTracker) Entries() map[types.Address]*uint256.Int {
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	out := make(map[types.Address]*uint256.Int, len(nt.last))
	for user, n := range nt.last {
		out[user] = new(uint256.Int).Set(n)
	}
	return out
}
