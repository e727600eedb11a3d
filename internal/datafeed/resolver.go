package datafeed

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/serum-dashboard/internal/cache"
	"github.com/rickgao/serum-dashboard/internal/model"
)

// DefaultMarketAddress is used when no market address is supplied.
const DefaultMarketAddress = "9aruV2p8cRWxybx6wMsJwPFqeN7eQVPR74RrxdM3DNdu"

// FallbackTVMarket is the chart symbol used for unknown markets.
const FallbackTVMarket = "SDOGE/USDC"

// SymbolSource looks up display symbols.
type SymbolSource interface {
	SymbolFromMarketID(ctx context.Context, address string) (string, error)
}

// Resolver maps market addresses to symbols without ever failing.
type Resolver struct {
	source        SymbolSource
	symbols       *cache.Cache[string]
	defaultMarket string
	logger        *slog.Logger
}

// NewResolver creates a Resolver caching symbols for interval.
func NewResolver(source SymbolSource, interval time.Duration, defaultMarket string, logger *slog.Logger) *Resolver {
	if source == nil {
		panic("datafeed: nil symbol source")
	}
	if defaultMarket == "" {
		defaultMarket = DefaultMarketAddress
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		source:        source,
		symbols:       cache.New[string](interval, logger),
		defaultMarket: defaultMarket,
		logger:        logger,
	}
}

// DefaultMarket returns the address used when none is given.
func (r *Resolver) DefaultMarket() string {
	return r.defaultMarket
}

// Resolve returns the symbol for address, or fallback if the lookup fails.
// An empty address resolves the default market.
func (r *Resolver) Resolve(ctx context.Context, address, fallback string) string {
	if address == "" {
		address = r.defaultMarket
	}

	key := cache.NewKey("getSymbolFromMarketId", address)
	symbol, err := r.symbols.Get(ctx, key, func(ctx context.Context) (string, error) {
		return r.source.SymbolFromMarketID(ctx, address)
	})
	if err != nil {
		r.logger.Warn("failed to resolve market symbol",
			"market", address,
			"err", err,
		)
		return fallback
	}
	return symbol
}

// TradePageURL returns the trade page path for address, defaulting to the
// default market.
func (r *Resolver) TradePageURL(address string) string {
	if address == "" {
		address = r.defaultMarket
	}
	return "/market/" + address
}

// TVMarketFromAddress returns the registry name for address, or
// FallbackTVMarket when it is not listed.
func TVMarketFromAddress(infos []model.MarketInfo, address string) string {
	for _, m := range infos {
		if m.Address.String() == address {
			return m.Name
		}
	}
	return FallbackTVMarket
}
