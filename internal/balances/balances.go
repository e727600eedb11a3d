package balances

import (
	"log/slog"
	"math/big"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rickgao/serum-dashboard/internal/chain"
	"github.com/rickgao/serum-dashboard/internal/model"
)

// ScaleAmount returns raw / 10^decimals. Missing decimals are treated as 0.
func ScaleAmount(raw uint64, decimals *uint8) decimal.Decimal {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(raw), 0)
	if decimals == nil {
		return d
	}
	return d.Shift(-int32(*decimals))
}

// Reconciler aggregates balances for a wallet.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{logger: logger}
}

func mintDecimals(mints map[solana.PublicKey]model.MintInfo, mint solana.PublicKey) *uint8 {
	info, ok := mints[mint]
	if !ok {
		return nil
	}
	return &info.Decimals
}

// OpenOrdersBalances groups free and total amounts by mint.
//
// Every account appends one entry under its base mint and one under its quote
// mint, even when a side is zero. Entries are never merged. Accounts whose
// market is not in markets are skipped.
func (r *Reconciler) OpenOrdersBalances(
	accounts []model.OpenOrdersAccount,
	markets map[solana.PublicKey]*model.Market,
	mints map[solana.PublicKey]model.MintInfo,
) model.OpenOrdersBalances {
	out := make(model.OpenOrdersBalances)

	for _, acc := range accounts {
		m, ok := markets[acc.Market]
		if !ok || m == nil {
			r.logger.Debug("skipping open orders on unknown market",
				"account", acc.Address,
				"market", acc.Market,
			)
			continue
		}

		baseDec := mintDecimals(mints, m.BaseMint)
		quoteDec := mintDecimals(mints, m.QuoteMint)

		base := m.BaseMint.String()
		quote := m.QuoteMint.String()

		out[base] = append(out[base], model.BalanceEntry{
			Market: acc.Market,
			Free:   ScaleAmount(acc.BaseTokenFree, baseDec),
			Total:  ScaleAmount(acc.BaseTokenTotal, baseDec),
		})
		out[quote] = append(out[quote], model.BalanceEntry{
			Market: acc.Market,
			Free:   ScaleAmount(acc.QuoteTokenFree, quoteDec),
			Total:  ScaleAmount(acc.QuoteTokenTotal, quoteDec),
		})
	}

	return out
}

// WalletBalances sums token account balances per mint, sorted by mint.
// The native SOL pseudo-account contributes its lamports.
func (r *Reconciler) WalletBalances(
	accounts []model.TokenAccount,
	mints map[solana.PublicKey]model.MintInfo,
) []model.WalletBalance {
	sums := make(map[solana.PublicKey]decimal.Decimal)

	for _, acc := range accounts {
		if acc.Account == nil {
			continue
		}

		var mint solana.PublicKey
		var amount uint64
		if acc.EffectiveMint.Equals(chain.WrappedSOLMint) {
			mint = chain.WrappedSOLMint
			amount = acc.Account.Lamports
		} else {
			info, err := chain.DecodeTokenAccount(acc.Account.Data)
			if err != nil {
				r.logger.Debug("skipping undecodable token account",
					"pubkey", acc.Pubkey,
					"err", err,
				)
				continue
			}
			mint, amount = info.Mint, info.Amount
		}

		sums[mint] = sums[mint].Add(ScaleAmount(amount, mintDecimals(mints, mint)))
	}

	out := make([]model.WalletBalance, 0, len(sums))
	for mint, bal := range sums {
		out = append(out, model.WalletBalance{Mint: mint.String(), Balance: bal})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mint < out[j].Mint })
	return out
}

// SelectedTokenAccountForMint returns the first account holding mint, limited
// to selected when it is non-empty. Returns nil when none match.
func SelectedTokenAccountForMint(accounts []model.TokenAccount, mint solana.PublicKey, selected string) *model.TokenAccount {
	for i := range accounts {
		acc := &accounts[i]
		if !acc.EffectiveMint.Equals(mint) {
			continue
		}
		if selected != "" && acc.Pubkey.String() != selected {
			continue
		}
		return acc
	}
	return nil
}
