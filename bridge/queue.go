package bridge

import (
	"sync"

	"github.com/scobru/shogun-bridge/core/types"
)

// WithdrawalQueue is the append-only list of withdrawals waiting for the
// next batch. Insertion order is preserved and becomes the canonical leaf
// order of the batch's Merkle tree. The only consumption path is Clear,
// which drains the whole queue atomically: no partial dequeue exists, so
// every accepted withdrawal lands in exactly one batch.
type WithdrawalQueue struct {
	mu    sync.Mutex
	items []*types.PendingWithdrawal
}

// NewWithdrawalQueue creates an empty queue.
func NewWithdrawalQueue() *WithdrawalQueue {
	return &WithdrawalQueue{}
}

// Add appends a withdrawal to the tail of the queue.
func (q *WithdrawalQueue) Add(w *types.PendingWithdrawal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, w)
}

// Clear atomically empties the queue and returns everything that was in
// it, in insertion order.
func (q *WithdrawalQueue) Clear() []*types.PendingWithdrawal {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Size returns the number of queued withdrawals.
func (q *WithdrawalQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// All returns a non-destructive copy of the queue contents.
func (q *WithdrawalQueue) All() []*types.PendingWithdrawal {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*types.PendingWithdrawal, len(q.items))
	copy(out, q.items)
	return out
}
