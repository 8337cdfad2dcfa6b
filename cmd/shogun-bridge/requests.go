package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"

	"github.com/scobru/shogun-bridge/bridge"
	"github.com/scobru/shogun-bridge/core/types"
	"github.com/scobru/shogun-bridge/log"
)

// RequestFile is the input format of the batch command: deposits are
// applied first, then withdrawal requests in file order.
type RequestFile struct {
	Deposits    []DepositRequest    `json:"deposits"`
	Withdrawals []WithdrawalRequest `json:"withdrawals"`
}

// DepositRequest credits a user's off-chain balance.
type DepositRequest struct {
	User   types.Address `json:"user"`
	Amount *uint256.Int  `json:"amount"`
}

// WithdrawalRequest asks to reserve a withdrawal for the next batch.
type WithdrawalRequest struct {
	User   types.Address `json:"user"`
	Amount *uint256.Int  `json:"amount"`
	Nonce  *uint256.Int  `json:"nonce"`
}

// RejectedRequest pairs a withdrawal request with the reason it was
// refused, so the caller can relay the error to the end user.
type RejectedRequest struct {
	Index   int
	Request WithdrawalRequest
	Err     error
}

// ApplyResult summarizes one pass over a request file.
type ApplyResult struct {
	Accepted int
	Rejected []RejectedRequest
}

// readRequestFile loads and decodes a request file.
func readRequestFile(path string) (*RequestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	var reqs RequestFile
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("decode request file %s: %w", path, err)
	}
	return &reqs, nil
}

// applyRequests feeds a request file into the bridge. Deposit failures
// abort nothing: an overflowing credit is logged and skipped, like any
// rejected withdrawal. Each rejected withdrawal keeps its file index so
// the report maps back to the input.
func applyRequests(b *bridge.Bridge, reqs *RequestFile) ApplyResult {
	logger := log.Default().Module("cli")

	for _, dep := range reqs.Deposits {
		if err := b.ProcessDeposit(dep.User, dep.Amount); err != nil {
			logger.Warn("deposit skipped", "user", dep.User.Hex(), "err", err)
		}
	}

	var result ApplyResult
	for i, w := range reqs.Withdrawals {
		if err := b.RequestWithdrawal(w.User, w.Amount, w.Nonce); err != nil {
			result.Rejected = append(result.Rejected, RejectedRequest{Index: i, Request: w, Err: err})
			logger.Warn("withdrawal rejected", "index", i, "user", w.User.Hex(), "err", err)
			continue
		}
		result.Accepted++
	}
	return result
}

// parseUint256 accepts a decimal or 0x-prefixed hex string.
func parseUint256(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty value")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return uint256.FromHex(s)
	}
	return uint256.FromDecimal(s)
}
