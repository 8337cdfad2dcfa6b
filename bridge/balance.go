package bridge

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/scobru/shogun-bridge/core/types"
)

// BalanceManager tracks the off-chain spendable balance per user. Balances
// are unsigned 256-bit values: a debit can never drive one negative, and a
// credit that would wrap past 2^256-1 fails closed instead of wrapping.
type BalanceManager struct {
	mu       sync.RWMutex
	balances map[types.Address]*uint256.Int
}

// NewBalanceManager creates an empty manager. Users without a record have
// an implicit balance of zero.
func NewBalanceManager() *BalanceManager {
	return &BalanceManager{balances: make(map[types.Address]*uint256.Int)}
}

// Balance returns a copy of the user's balance, or zero if the user has no
// record.
func (bm *BalanceManager) Balance(user types.Address) *uint256.Int {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	if b, ok := bm.balances[user]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

// Credit adds amount to the user's balance. The only failure mode is
// ErrBalanceOverflow, in which case the balance is left unchanged.
func (bm *BalanceManager) Credit(user types.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	bm.mu.Lock()
	defer bm.mu.Unlock()
	cur, ok := bm.balances[user]
	if !ok {
		cur = new(uint256.Int)
	}
	sum, overflow := new(uint256.Int).AddOverflow(cur, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	bm.balances[user] = sum
	return nil
}

// Debit subtracts amount from the user's balance. It fails with
// ErrInsufficientBalance when amount exceeds the balance, leaving the
// balance untouched; on success the balance decreases by exactly amount.
func (bm *BalanceManager) Debit(user types.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	bm.mu.Lock()
	defer bm.mu.Unlock()
	cur, ok := bm.balances[user]
	if !ok {
		cur = new(uint256.Int)
	}
	if amount.Gt(cur) {
		return ErrInsufficientBalance
	}
	bm.balances[user] = new(uint256.Int).Sub(cur, amount)
	return nil
}

// Entries returns a copy of every user's balance, for snapshotting.
func (bm *BalanceManager) Entries() map[types.Address]*uint256.Int {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	out := make(map[types.Address]*uint256.Int, len(bm.balances))
	for user, b := range bm.balances {
		out[user] = new(uint256.Int).Set(b)
	}
	return out
}
