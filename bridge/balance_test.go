package bridge

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestBalanceDefaultsToZero(t *testing.T) {
	bm := NewBalanceManager()
	if !bm.Balance(userA).IsZero() {
		t.Fatal("fresh user must have balance 0")
	}
}

func TestCreditAndDebit(t *testing.T) {
	bm := NewBalanceManager()
	if err := bm.Credit(userA, uint256.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if bm.Balance(userA).Uint64() != 10 {
		t.Fatalf("balance after credit: got %s, want 10", bm.Balance(userA).Dec())
	}
	if err := bm.Debit(userA, uint256.NewInt(3)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if bm.Balance(userA).Uint64() != 7 {
		t.Fatalf("balance after debit: got %s, want 7", bm.Balance(userA).Dec())
	}
}

func TestDebitInsufficientLeavesBalanceUnchanged(t *testing.T) {
	bm := NewBalanceManager()
	bm.Credit(userA, uint256.NewInt(5))

	if err := bm.Debit(userA, uint256.NewInt(6)); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if bm.Balance(userA).Uint64() != 5 {
		t.Fatalf("failed debit must not change balance: got %s", bm.Balance(userA).Dec())
	}

	// Debiting an untouched user fails the same way.
	if err := bm.Debit(userB, uint256.NewInt(1)); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance for fresh user, got %v", err)
	}
}

func TestDebitExactBalance(t *testing.T) {
	bm := NewBalanceManager()
	bm.Credit(userA, uint256.NewInt(5))
	if err := bm.Debit(userA, uint256.NewInt(5)); err != nil {
		t.Fatalf("debit of exact balance: %v", err)
	}
	if !bm.Balance(userA).IsZero() {
		t.Fatal("balance must be exactly zero")
	}
}

func TestCreditOverflowFailsClosed(t *testing.T) {
	bm := NewBalanceManager()
	max := new(uint256.Int).SetAllOne()
	if err := bm.Credit(userA, max); err != nil {
		t.Fatalf("credit max: %v", err)
	}
	if err := bm.Credit(userA, uint256.NewInt(1)); err != ErrBalanceOverflow {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
	// Fail-closed: the balance did not wrap.
	if bm.Balance(userA).Cmp(max) != 0 {
		t.Fatal("overflowing credit must leave balance unchanged")
	}
}

func TestCreditNilAmount(t *testing.T) {
	bm := NewBalanceManager()
	if err := bm.Credit(userA, nil); err != ErrNilAmount {
		t.Fatalf("expected ErrNilAmount, got %v", err)
	}
	if err := bm.Debit(userA, nil); err != ErrNilAmount {
		t.Fatalf("expected ErrNilAmount, got %v", err)
	}
}

func TestBalanceIsolationBetweenUsers(t *testing.T) {
	bm := NewBalanceManager()
	bm.Credit(userA, uint256.NewInt(100))
	bm.Credit(userB, uint256.NewInt(1))
	bm.Debit(userA, uint256.NewInt(40))

	if bm.Balance(userB).Uint64() != 1 {
		t.Fatal("user B balance must be unaffected by user A")
	}
}

func TestBalanceEntriesAreCopies(t *testing.T) {
	bm := NewBalanceManager()
	bm.Credit(userA, uint256.NewInt(8))
	entries := bm.Entries()
	entries[userA].SetUint64(0)
	if bm.Balance(userA).Uint64() != 8 {
		t.Fatal("Entries must return copies")
	}
}
