package model

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Registry Types
// -----------------------------------------------------------------------------

// MarketInfo identifies a Serum market known to the dashboard.
type MarketInfo struct {
	Address    solana.PublicKey `json:"address"`
	ProgramID  solana.PublicKey `json:"programId"`
	Name       string           `json:"name"`
	Deprecated bool             `json:"deprecated"`
}

// CustomMarketInfo is a user-added market in its stored (string) form.
type CustomMarketInfo struct {
	Address    string `json:"address"`
	ProgramID  string `json:"programId"`
	Name       string `json:"name"`
	BaseLabel  string `json:"baseLabel,omitempty"`
	QuoteLabel string `json:"quoteLabel,omitempty"`
}

// TokenMint maps a well-known mint address to its ticker.
type TokenMint struct {
	Address solana.PublicKey `json:"address"`
	Name    string           `json:"name"`
}

// MarketDetails is a MarketInfo enriched with currency labels.
type MarketDetails struct {
	MarketInfo
	BaseCurrency  string `json:"baseCurrency"`
	QuoteCurrency string `json:"quoteCurrency"`
}

// -----------------------------------------------------------------------------
// On-chain Types (read-only projections)
// -----------------------------------------------------------------------------

// Market is the decoded header of an on-chain market account.
type Market struct {
	Address       solana.PublicKey
	ProgramID     solana.PublicKey
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	Bids          solana.PublicKey
	Asks          solana.PublicKey
	BaseLotSize   uint64
	QuoteLotSize  uint64
	BaseDecimals  uint8
	QuoteDecimals uint8
}

// TickSize returns the minimum price increment in quote units per base unit.
func (m *Market) TickSize() float64 {
	return m.PriceLotsToNumber(1)
}

// PriceLotsToNumber converts a price in lots to a human price.
func (m *Market) PriceLotsToNumber(price uint64) float64 {
	if m.BaseLotSize == 0 {
		return 0
	}
	num := float64(price) * float64(m.QuoteLotSize) * pow10(m.BaseDecimals)
	den := float64(m.BaseLotSize) * pow10(m.QuoteDecimals)
	return num / den
}

// BaseSizeLotsToNumber converts a quantity in base lots to a human size.
func (m *Market) BaseSizeLotsToNumber(size uint64) float64 {
	return float64(size) * float64(m.BaseLotSize) / pow10(m.BaseDecimals)
}

func pow10(d uint8) float64 {
	v := 1.0
	for i := uint8(0); i < d; i++ {
		v *= 10
	}
	return v
}

// OpenOrdersAccount is a wallet's open-orders record on one market.
type OpenOrdersAccount struct {
	Address         solana.PublicKey `json:"address"`
	Market          solana.PublicKey `json:"market"`
	Owner           solana.PublicKey `json:"owner"`
	BaseTokenFree   uint64           `json:"baseTokenFree"`
	BaseTokenTotal  uint64           `json:"baseTokenTotal"`
	QuoteTokenFree  uint64           `json:"quoteTokenFree"`
	QuoteTokenTotal uint64           `json:"quoteTokenTotal"`
}

// HasBalance reports whether any base or quote tokens remain in the account.
func (o *OpenOrdersAccount) HasBalance() bool {
	return o.BaseTokenTotal != 0 || o.QuoteTokenTotal != 0
}

// TokenAccount is an SPL token account (or the native SOL wallet) of a wallet.
type TokenAccount struct {
	Pubkey        solana.PublicKey
	EffectiveMint solana.PublicKey
	Account       *AccountData // nil when the account could not be fetched
}

// AccountData is the raw state of a token account.
type AccountData struct {
	Lamports uint64
	Owner    solana.PublicKey
	Data     []byte
}

// MintInfo carries the metadata needed to scale raw amounts.
type MintInfo struct {
	Decimals uint8 `json:"decimals"`
}

// Order is a resting order owned by a wallet.
type Order struct {
	OrderID     string           `json:"orderId"`
	OpenOrders  solana.PublicKey `json:"openOrdersAddress"`
	Side        string           `json:"side"` // "buy" or "sell"
	Price       float64          `json:"price"`
	Size        float64          `json:"size"`
	ClientID    uint64           `json:"clientId"`
	MarketOwner solana.PublicKey `json:"owner"`
}

// -----------------------------------------------------------------------------
// Order Book Types
// -----------------------------------------------------------------------------

// PriceLevel is one aggregated (L2) order book level.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook is one side of a market's L2 book, levels sorted best to worst.
type OrderBook struct {
	IsBids   bool         `json:"isBids"`
	TickSize float64      `json:"tickSize"`
	Levels   []PriceLevel `json:"levels"`
}

// -----------------------------------------------------------------------------
// Aggregates
// -----------------------------------------------------------------------------

// BalanceEntry is one open-orders contribution to a mint's balance.
type BalanceEntry struct {
	Market solana.PublicKey `json:"market"`
	Free   decimal.Decimal  `json:"free"`
	Total  decimal.Decimal  `json:"total"`
}

// OpenOrdersBalances maps mint address (base58) to its per-market entries.
type OpenOrdersBalances map[string][]BalanceEntry

// WalletBalance is the summed token balance for one mint.
type WalletBalance struct {
	Mint    string          `json:"mint"`
	Balance decimal.Decimal `json:"balance"`
}

// Trade is a fill reported by the external trade history API.
type Trade struct {
	Market        string  `json:"market"`
	Price         float64 `json:"price"`
	Size          float64 `json:"size"`
	Side          string  `json:"side"`
	Time          float64 `json:"time"`
	OrderID       string  `json:"orderId"`
	FeeCost       float64 `json:"feeCost"`
	MarketAddress string  `json:"marketAddress"`
}
