package dashboard

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/model"
)

// Session is the market context of one request.
type Session struct {
	MarketAddress string `json:"marketAddress"`
	Symbol        string `json:"symbol"`
}

// MarketView is a market's registry entry with its decoded state.
type MarketView struct {
	model.MarketDetails
	BaseMint     solana.PublicKey `json:"baseMint"`
	QuoteMint    solana.PublicKey `json:"quoteMint"`
	TickSize     float64          `json:"tickSize"`
	MinOrderSize float64          `json:"minOrderSize"`
	Symbol       string           `json:"symbol"`
	TradePageURL string           `json:"tradePageUrl"`
}

// PriceQuote is the pricing of a market order.
type PriceQuote struct {
	Side              string  `json:"side"`
	Cost              float64 `json:"cost"`
	MarketPrice       float64 `json:"marketPrice"`
	ExpectedFillPrice float64 `json:"expectedFillPrice"`
}

// UnmigratedMarket is a deprecated market where a wallet still holds funds.
type UnmigratedMarket struct {
	Market     model.MarketInfo          `json:"market"`
	BaseMint   solana.PublicKey          `json:"baseMint"`
	QuoteMint  solana.PublicKey          `json:"quoteMint"`
	OpenOrders []model.OpenOrdersAccount `json:"openOrders"`
}

// Balances are a wallet's token and open-orders balances.
type Balances struct {
	Owner      solana.PublicKey         `json:"owner"`
	Wallet     []model.WalletBalance    `json:"wallet"`
	OpenOrders model.OpenOrdersBalances `json:"openOrders"`
}
