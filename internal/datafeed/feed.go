package datafeed

import (
	"context"
	"errors"
	"net/url"

	"github.com/rickgao/serum-dashboard/internal/model"
)

// ErrSymbolNotFound is returned when the lookup returns no market.
var ErrSymbolNotFound = errors.New("symbol not found")

type symbolEntry struct {
	MarketName string `json:"marketName"`
}

type tradesResponse struct {
	Success bool          `json:"success"`
	Data    []model.Trade `json:"data"`
}

// SymbolFromMarketID returns the display symbol for a market address.
func (c *Client) SymbolFromMarketID(ctx context.Context, address string) (string, error) {
	var entries []symbolEntry
	query := url.Values{"marketId": {address}}
	if err := c.get(ctx, c.tvURL, "/getsymbolfrommarketid", query, &entries); err != nil {
		return "", err
	}
	if len(entries) == 0 || entries[0].MarketName == "" {
		return "", ErrSymbolNotFound
	}
	return entries[0].MarketName, nil
}

// RecentTrades returns recent fills for a market. A response with
// success=false yields nil, nil.
func (c *Client) RecentTrades(ctx context.Context, address string) ([]model.Trade, error) {
	var resp tradesResponse
	if err := c.get(ctx, c.baseURL, "/trades/address/"+url.PathEscape(address), nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, nil
	}
	return resp.Data, nil
}
