// Command shogun-bridge exercises the off-chain withdrawal engine from the
// command line: it applies deposits and withdrawal requests, emits batches
// with their Merkle proofs as JSON, and verifies individual proofs the way
// the settlement contract would.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/scobru/shogun-bridge/bridge"
	"github.com/scobru/shogun-bridge/core/types"
	"github.com/scobru/shogun-bridge/crypto"
	"github.com/scobru/shogun-bridge/log"
	"github.com/scobru/shogun-bridge/storage"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbosity int

	root := &cobra.Command{
		Use:   "shogun-bridge",
		Short: "Off-chain withdrawal batching engine for the shogun token bridge",
		Long: `shogun-bridge tracks per-user balances and withdrawal nonces off-chain,
accumulates withdrawal requests into batches, and commits each batch under
a keccak256 Merkle root whose per-withdrawal proofs an on-chain verifier
accepts with a single recomputation.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetDefault(log.New(log.VerbosityToLevel(verbosity)))
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().IntVar(&verbosity, "verbosity", 2, "log verbosity 0-4")

	root.AddCommand(newBatchCmd(), newVerifyCmd(), newDemoCmd(), newVersionCmd())
	return root
}

func newBatchCmd() *cobra.Command {
	var inputPath, dataDir string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Apply a request file and emit the resulting batch as JSON",
		Long: `Reads deposits and withdrawal requests from a JSON file, applies them in
order, drains the queue into one batch, and prints the batch (root,
withdrawals, proofs) to stdout. With --datadir the ledger is restored
before and persisted after, and the batch is archived.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := readRequestFile(inputPath)
			if err != nil {
				return err
			}

			b := bridge.New(bridge.DefaultConfig())

			var store *storage.Store
			if dataDir != "" {
				store, err = storage.Open(dataDir)
				if err != nil {
					return err
				}
				defer store.Close()
				records, err := store.LoadLedger()
				if err != nil {
					return err
				}
				if len(records) > 0 {
					b.RestoreLedger(records)
				}
			}

			result := applyRequests(b, reqs)
			log.Info("requests applied",
				"deposits", len(reqs.Deposits),
				"accepted", result.Accepted, "rejected", len(result.Rejected))

			batch := b.CreateBatch()
			if batch == nil {
				return errors.New("no withdrawals accepted, nothing to batch")
			}

			if store != nil {
				if err := store.SaveBatch(batch); err != nil {
					return err
				}
				if err := store.SaveLedger(b.LedgerSnapshot()); err != nil {
					return err
				}
			}

			return writeBatch(cmd, batch)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to the JSON request file")
	cmd.Flags().StringVar(&dataDir, "datadir", "", "LevelDB directory for ledger and batch archive")
	cmd.MarkFlagRequired("input")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var rootHex, userHex, amountStr, nonceStr, proofStr string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify one withdrawal proof against a batch root",
		Long: `Recomputes the leaf from (user, amount, nonce) and folds it with the
proof's sibling hashes, exactly as the on-chain claim function does, then
compares the result to the given root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			user := types.HexToAddress(userHex)
			amount, err := parseUint256(amountStr)
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			nonce, err := parseUint256(nonceStr)
			if err != nil {
				return fmt.Errorf("nonce: %w", err)
			}
			proof, err := parseProof(proofStr)
			if err != nil {
				return err
			}

			leaf := types.LeafHash(user, amount, nonce)
			if !crypto.VerifyProof(proof, types.HexToHash(rootHex), leaf) {
				return errors.New("proof is INVALID")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "proof is valid")
			fmt.Fprintln(cmd.OutOrStdout(), "leaf:", leaf.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&rootHex, "root", "", "batch Merkle root (0x-hex)")
	cmd.Flags().StringVar(&userHex, "user", "", "withdrawal address (0x-hex)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "withdrawal amount (decimal or 0x-hex)")
	cmd.Flags().StringVar(&nonceStr, "nonce", "", "withdrawal nonce (decimal or 0x-hex)")
	cmd.Flags().StringVar(&proofStr, "proof", "", "comma-separated sibling hashes, leaf level first")
	cmd.MarkFlagRequired("root")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("amount")
	cmd.MarkFlagRequired("nonce")
	return cmd
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a small end-to-end scenario and print the batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := bridge.New(bridge.DefaultConfig())

			alice := types.HexToAddress("0x1111111111111111111111111111111111111111")
			bob := types.HexToAddress("0x2222222222222222222222222222222222222222")
			carol := types.HexToAddress("0x3333333333333333333333333333333333333333")

			ten, _ := uint256.FromDecimal("10000000000000000000")
			three, _ := uint256.FromDecimal("3000000000000000000")
			five, _ := uint256.FromDecimal("5000000000000000000")

			for _, user := range []types.Address{alice, bob, carol} {
				if err := b.ProcessDeposit(user, ten); err != nil {
					return err
				}
			}
			if err := b.RequestWithdrawal(alice, three, uint256.NewInt(1)); err != nil {
				return err
			}
			if err := b.RequestWithdrawal(bob, five, uint256.NewInt(1)); err != nil {
				return err
			}
			if err := b.RequestWithdrawal(carol, three, uint256.NewInt(7)); err != nil {
				return err
			}

			// A replay attempt is rejected without touching the ledger.
			if err := b.RequestWithdrawal(alice, three, uint256.NewInt(1)); err == nil {
				return errors.New("replay was not rejected")
			}

			batch := b.CreateBatch()
			if batch == nil {
				return errors.New("demo produced no batch")
			}
			return writeBatch(cmd, batch)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shogun-bridge %s (%s)\n", version, commit)
		},
	}
}

// writeBatch pretty-prints a batch as JSON to the command's stdout.
func writeBatch(cmd *cobra.Command, batch *types.Batch) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(batch)
}

// parseProof splits a comma-separated list of 0x-hex hashes. An empty
// string is a valid empty proof (single-leaf batch).
func parseProof(s string) ([]types.Hash, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	proof := make([]types.Hash, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if len(part) != 2+2*types.HashLength {
			return nil, fmt.Errorf("proof element %q is not a 32-byte hex hash", part)
		}
		proof = append(proof, types.HexToHash(part))
	}
	return proof, nil
}
