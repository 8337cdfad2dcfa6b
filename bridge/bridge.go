// Package bridge implements the off-chain withdrawal engine of the shogun
// token bridge: per-user balance and nonce ledgers with replay protection,
// an append-only pending-withdrawal queue, and batch creation that commits
// the queue under a Merkle root with one inclusion proof per withdrawal.
//
// The engine has no wire protocol of its own. A transport layer feeds it
// deposit events and withdrawal requests; an external scheduler triggers
// batches and hands them to the on-chain submission collaborator.
package bridge

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/scobru/shogun-bridge/core/types"
	"github.com/scobru/shogun-bridge/crypto"
	"github.com/scobru/shogun-bridge/log"
	"github.com/scobru/shogun-bridge/metrics"
)

// Bridge errors. All validation failures are local and recoverable: they
// leave every ledger in its pre-call state.
var (
	ErrNonceTooLow         = errors.New("bridge: nonce not greater than last accepted")
	ErrInsufficientBalance = errors.New("bridge: amount exceeds available balance")
	ErrBalanceOverflow     = errors.New("bridge: credit would overflow 256-bit balance")
	ErrQueueFull           = errors.New("bridge: maximum queued withdrawals reached")
	ErrNilAmount           = errors.New("bridge: nil amount")
	ErrNilNonce            = errors.New("bridge: nil nonce")
)

// Config controls the withdrawal engine.
type Config struct {
	// MaxQueuedWithdrawals is the maximum number of withdrawals allowed to
	// wait for the next batch. Requests beyond it are rejected before any
	// ledger mutation.
	MaxQueuedWithdrawals int

	// Logger overrides the default logger when set.
	Logger *log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxQueuedWithdrawals: 4096,
	}
}

// Bridge orchestrates the ledgers, the queue, and batch creation. One
// mutex serializes every validate-then-mutate transaction, matching the
// single-relayer authority model: two concurrent requests can never both
// pass nonce validation against a stale last nonce, and batch creation is
// the sole queue consumer.
type Bridge struct {
	mu       sync.Mutex
	config   Config
	nonces   *NonceTracker
	balances *BalanceManager
	queue    *WithdrawalQueue
	log      *log.Logger
}

// New creates a Bridge with the given configuration.
func New(config Config) *Bridge {
	if config.MaxQueuedWithdrawals <= 0 {
		config.MaxQueuedWithdrawals = DefaultConfig().MaxQueuedWithdrawals
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Bridge{
		config:   config,
		nonces:   NewNonceTracker(),
		balances: NewBalanceManager(),
		queue:    NewWithdrawalQueue(),
		log:      logger.Module("bridge"),
	}
}

// ProcessDeposit credits amount to the user's off-chain balance. Barring
// 256-bit overflow it always succeeds.
func (b *Bridge) ProcessDeposit(user types.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.balances.Credit(user, amount); err != nil {
		b.log.Warn("deposit rejected", "user", user.Hex(), "err", err)
		return err
	}
	metrics.Deposits.Inc()
	b.log.Debug("deposit credited", "user", user.Hex(), "amount", amount.Dec())
	return nil
}

// RequestWithdrawal validates and reserves a withdrawal as one atomic
// transaction: nonce check, then debit, and only when both pass does the
// nonce advance and the withdrawal enter the queue. A failed debit does
// not consume the nonce, so a user cannot burn nonces on requests that
// never move funds.
func (b *Bridge) RequestWithdrawal(user types.Address, amount, nonce *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue.Size() >= b.config.MaxQueuedWithdrawals {
		metrics.WithdrawalsRejected.Inc()
		return ErrQueueFull
	}
	if err := b.nonces.ValidateNonce(user, nonce); err != nil {
		metrics.WithdrawalsRejected.Inc()
		b.log.Debug("withdrawal rejected", "user", user.Hex(), "err", err)
		return err
	}
	if err := b.balances.Debit(user, amount); err != nil {
		metrics.WithdrawalsRejected.Inc()
		b.log.Debug("withdrawal rejected", "user", user.Hex(), "err", err)
		return err
	}

	b.nonces.SetLastNonce(user, nonce)
	b.queue.Add(&types.PendingWithdrawal{
		User:      user,
		Amount:    new(uint256.Int).Set(amount),
		Nonce:     new(uint256.Int).Set(nonce),
		Timestamp: time.Now().UTC(),
	})

	metrics.WithdrawalsAccepted.Inc()
	metrics.QueueDepth.Set(int64(b.queue.Size()))
	b.log.Info("withdrawal queued",
		"user", user.Hex(), "amount", amount.Dec(), "nonce", nonce.Dec())
	return nil
}

// CreateBatch drains the queue and commits its contents under a fresh
// Merkle root, returning an immutable batch with one proof per withdrawal.
// It returns nil when the queue is empty: no root is defined for zero
// leaves, and an empty batch is never emitted.
func (b *Bridge) CreateBatch() *types.Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	withdrawals := b.queue.Clear()
	if len(withdrawals) == 0 {
		return nil
	}
	metrics.QueueDepth.Set(0)

	leaves := make([]types.Hash, len(withdrawals))
	for i, w := range withdrawals {
		leaves[i] = w.LeafHash()
	}

	tree, err := crypto.NewMerkleTree(leaves)
	if err != nil {
		// Unreachable with a non-empty queue; anything else is a
		// programming bug in the commitment path.
		panic(fmt.Sprintf("bridge: merkle tree over %d leaves: %v", len(leaves), err))
	}

	proofs := make(map[types.Hash][]types.Hash, len(leaves))
	for i, leaf := range leaves {
		proof := tree.Proof(leaf)
		if proof == nil {
			panic(fmt.Sprintf("bridge: no proof for leaf %d of %d", i, len(leaves)))
		}
		if !crypto.VerifyProof(proof, tree.Root(), leaf) {
			// A self-check failure means the off-chain verifier no longer
			// matches the construction rule; every proof would be broken.
			panic(fmt.Sprintf("bridge: proof self-check failed for leaf %d", i))
		}
		proofs[leaf] = proof
	}

	batch := types.NewBatch(randomBatchID(), tree.Root(), withdrawals, proofs)

	metrics.BatchesCreated.Inc()
	b.log.Info("batch created",
		"batch", batch.ID.Hex(), "root", batch.MerkleRoot.Hex(), "size", batch.Size())
	return batch
}

// Balance returns the user's current off-chain balance.
func (b *Bridge) Balance(user types.Address) *uint256.Int {
	return b.balances.Balance(user)
}

// LastNonce returns the user's highest accepted withdrawal nonce.
func (b *Bridge) LastNonce(user types.Address) *uint256.Int {
	return b.nonces.LastNonce(user)
}

// PendingCount returns the number of withdrawals waiting for the next batch.
func (b *Bridge) PendingCount() int {
	return b.queue.Size()
}

// PendingWithdrawals returns a copy of the queued withdrawals.
func (b *Bridge) PendingWithdrawals() []*types.PendingWithdrawal {
	return b.queue.All()
}

// AccountRecord is one user's persisted ledger entry.
type AccountRecord struct {
	User      types.Address `json:"user"`
	Balance   *uint256.Int  `json:"balance"`
	LastNonce *uint256.Int  `json:"lastNonce"`
}

// LedgerSnapshot returns every account's balance and last nonce, sorted by
// address for deterministic output. Zero-value accounts that were touched
// are included.
func (b *Bridge) LedgerSnapshot() []AccountRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	balances := b.balances.Entries()
	nonces := b.nonces.Entries()

	users := make(map[types.Address]struct{}, len(balances)+len(nonces))
	for u := range balances {
		users[u] = struct{}{}
	}
	for u := range nonces {
		users[u] = struct{}{}
	}

	records := make([]AccountRecord, 0, len(users))
	for u := range users {
		rec := AccountRecord{User: u, Balance: balances[u], LastNonce: nonces[u]}
		if rec.Balance == nil {
			rec.Balance = new(uint256.Int)
		}
		if rec.LastNonce == nil {
			rec.LastNonce = new(uint256.Int)
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return string(records[i].User[:]) < string(records[j].User[:])
	})
	return records
}

// RestoreLedger replaces both ledgers with the given records. Intended for
// startup from a persisted snapshot, before any traffic is applied; the
// queue is not touched.
func (b *Bridge) RestoreLedger(records []AccountRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	nonces := NewNonceTracker()
	balances := NewBalanceManager()
	for _, rec := range records {
		if rec.Balance != nil && !rec.Balance.IsZero() {
			// Credit from zero cannot overflow.
			if err := balances.Credit(rec.User, rec.Balance); err != nil {
				panic(fmt.Sprintf("bridge: restore balance for %s: %v", rec.User.Hex(), err))
			}
		}
		if rec.LastNonce != nil && !rec.LastNonce.IsZero() {
			nonces.SetLastNonce(rec.User, rec.LastNonce)
		}
	}
	b.nonces = nonces
	b.balances = balances
	b.log.Info("ledger restored", "accounts", len(records))
}

// randomBatchID draws 32 bytes from the system CSPRNG. The ID is an opaque
// identifier only; uniqueness, not unpredictability, is what batches need.
func randomBatchID() types.Hash {
	var id types.Hash
	if _, err := crand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("bridge: batch id entropy: %v", err))
	}
	return id
}
