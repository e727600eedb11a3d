package chain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/model"
)

var (
	// ErrAccountNotFound is returned when an account does not exist on chain.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAccount is returned when account data does not match the expected layout.
	ErrInvalidAccount = errors.New("invalid account data")
)

// WrappedSOLMint is the effective mint of a wallet's native SOL balance.
var WrappedSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// Client reads market, open-orders and token state.
type Client interface {
	// LoadMarket fetches and decodes a market, including mint decimals.
	LoadMarket(ctx context.Context, address, programID solana.PublicKey) (*model.Market, error)

	// LoadOrderBook returns one side of the market's book aggregated by
	// price, best level first, truncated to depth levels (0 = all).
	LoadOrderBook(ctx context.Context, market *model.Market, bids bool, depth int) (model.OrderBook, error)

	// FindOpenOrdersForOwner returns every open-orders account of owner
	// under programID.
	FindOpenOrdersForOwner(ctx context.Context, owner, programID solana.PublicKey) ([]model.OpenOrdersAccount, error)

	// LoadOrdersForOwner returns owner's resting orders on market.
	LoadOrdersForOwner(ctx context.Context, market *model.Market, owner solana.PublicKey) ([]model.Order, error)

	// GetTokenAccounts returns owner's SPL token accounts plus the native
	// SOL balance as a pseudo-account with EffectiveMint = WrappedSOLMint.
	GetTokenAccounts(ctx context.Context, owner solana.PublicKey) ([]model.TokenAccount, error)

	// GetMintInfos returns decimals for the given mints. Mints that could
	// not be fetched or decoded are absent from the result.
	GetMintInfos(ctx context.Context, mints []solana.PublicKey) (map[solana.PublicKey]model.MintInfo, error)
}
