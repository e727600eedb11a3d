package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/balances"
	"github.com/rickgao/serum-dashboard/internal/cache"
	"github.com/rickgao/serum-dashboard/internal/chain"
	"github.com/rickgao/serum-dashboard/internal/config"
	"github.com/rickgao/serum-dashboard/internal/datafeed"
	"github.com/rickgao/serum-dashboard/internal/loader"
	"github.com/rickgao/serum-dashboard/internal/market"
	"github.com/rickgao/serum-dashboard/internal/model"
	"github.com/rickgao/serum-dashboard/internal/openorders"
	"github.com/rickgao/serum-dashboard/internal/poller"
	"github.com/rickgao/serum-dashboard/internal/pricing"
	"github.com/rickgao/serum-dashboard/internal/store"
)

var (
	// ErrUnknownMarket is returned for an address that is neither static
	// nor a stored custom market.
	ErrUnknownMarket = errors.New("unknown market")

	// ErrInvalidAddress is returned for a malformed base58 address.
	ErrInvalidAddress = errors.New("invalid address")

	ErrInvalidSide = errors.New("side must be buy or sell")
)

// TradeSource fetches recent fills for a market.
type TradeSource interface {
	RecentTrades(ctx context.Context, address string) ([]model.Trade, error)
}

// Deps are the collaborators of a Service. Poller is optional; when set,
// cached books and trades of viewed markets are kept warm by it.
type Deps struct {
	Registry   *market.Registry
	Chain      chain.Client
	Loader     *loader.Loader
	OpenOrders *openorders.Aggregator
	Reconciler *balances.Reconciler
	Trades     TradeSource
	Resolver   *datafeed.Resolver
	Store      store.Store
	Poller     *poller.Poller
	Refresh    config.RefreshConfig
	BookDepth  int
	Logger     *slog.Logger
}

// Service answers dashboard queries.
type Service struct {
	registry   *market.Registry
	chain      chain.Client
	loader     *loader.Loader
	openOrders *openorders.Aggregator
	reconciler *balances.Reconciler
	trades     TradeSource
	resolver   *datafeed.Resolver
	store      store.Store
	poller     *poller.Poller
	bookDepth  int
	logger     *slog.Logger

	markets    *cache.Cache[*model.Market]
	books      *cache.Cache[model.OrderBook]
	fills      *cache.Cache[[]model.Trade]
	unmigrated *cache.Cache[[]model.OpenOrdersAccount]
	wallets    *cache.Cache[[]model.TokenAccount]

	trackMu sync.Mutex
	tracked map[string]struct{}
}

// New creates a Service. It panics if a required collaborator is missing.
func New(d Deps) *Service {
	if d.Registry == nil || d.Chain == nil || d.Loader == nil || d.OpenOrders == nil ||
		d.Reconciler == nil || d.Trades == nil || d.Resolver == nil || d.Store == nil {
		panic("dashboard: missing dependency")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.BookDepth <= 0 {
		d.BookDepth = pricing.DefaultBookDepth
	}

	def := config.Default().Refresh
	if d.Refresh.Fast <= 0 {
		d.Refresh.Fast = def.Fast
	}
	if d.Refresh.Slow <= 0 {
		d.Refresh.Slow = def.Slow
	}
	if d.Refresh.VerySlow <= 0 {
		d.Refresh.VerySlow = def.VerySlow
	}

	return &Service{
		registry:   d.Registry,
		chain:      d.Chain,
		loader:     d.Loader,
		openOrders: d.OpenOrders,
		reconciler: d.Reconciler,
		trades:     d.Trades,
		resolver:   d.Resolver,
		store:      d.Store,
		poller:     d.Poller,
		bookDepth:  d.BookDepth,
		logger:     d.Logger,
		markets:    cache.New[*model.Market](d.Refresh.VerySlow, d.Logger),
		books:      cache.New[model.OrderBook](d.Refresh.Fast, d.Logger),
		fills:      cache.New[[]model.Trade](d.Refresh.Slow, d.Logger),
		unmigrated: cache.New[[]model.OpenOrdersAccount](d.Refresh.VerySlow, d.Logger),
		wallets:    cache.New[[]model.TokenAccount](d.Refresh.Slow, d.Logger),
		tracked:    make(map[string]struct{}),
	}
}

// track registers key with the poller once so its value stays fresh.
func track[T any](s *Service, c *cache.Cache[T], key cache.Key) {
	if s.poller == nil {
		return
	}
	name := key.String()

	s.trackMu.Lock()
	defer s.trackMu.Unlock()
	if _, ok := s.tracked[name]; ok {
		return
	}
	s.tracked[name] = struct{}{}

	s.poller.Register(name, c.Interval(), func(ctx context.Context) error {
		_, err := c.Refresh(ctx, key, false)
		return err
	})
}

// Tracked returns the number of cache keys handed to the poller.
func (s *Service) Tracked() int {
	s.trackMu.Lock()
	defer s.trackMu.Unlock()
	return len(s.tracked)
}

func parseAddress(address string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
	}
	return pk, nil
}

// MarketsList returns the listed (non-deprecated, non-excluded) markets.
func (s *Service) MarketsList() []model.MarketInfo {
	return s.registry.MarketsList()
}

// MarketInfos returns the stored custom markets merged with the static
// registry.
func (s *Service) MarketInfos(ctx context.Context) ([]model.MarketInfo, error) {
	custom, err := s.store.CustomMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("read custom markets: %w", err)
	}
	return s.registry.GetMarketInfos(custom), nil
}

// findMarket resolves address against the merged market list.
func (s *Service) findMarket(ctx context.Context, address string) (model.MarketInfo, []model.CustomMarketInfo, error) {
	pk, err := parseAddress(address)
	if err != nil {
		return model.MarketInfo{}, nil, err
	}
	custom, err := s.store.CustomMarkets(ctx)
	if err != nil {
		return model.MarketInfo{}, nil, fmt.Errorf("read custom markets: %w", err)
	}
	info, ok := market.FindByAddress(s.registry.GetMarketInfos(custom), pk)
	if !ok {
		return model.MarketInfo{}, nil, fmt.Errorf("%w: %s", ErrUnknownMarket, address)
	}
	return info, custom, nil
}

func (s *Service) loadMarket(ctx context.Context, info model.MarketInfo) (*model.Market, error) {
	key := cache.NewKey("loadMarket", info.Address, info.ProgramID)
	return s.markets.Get(ctx, key, func(ctx context.Context) (*model.Market, error) {
		return s.loader.LoadOne(ctx, info)
	})
}

// Session resolves the market a request is about. An empty address selects
// the default market.
func (s *Service) Session(ctx context.Context, address string) Session {
	if address == "" {
		address = s.resolver.DefaultMarket()
	}
	fallback := ""
	if infos, err := s.MarketInfos(ctx); err == nil {
		fallback = datafeed.TVMarketFromAddress(infos, address)
	}
	return Session{
		MarketAddress: address,
		Symbol:        s.resolver.Resolve(ctx, address, fallback),
	}
}

// Market returns the details of one market: registry entry, currency
// labels, decoded state and display symbol.
func (s *Service) Market(ctx context.Context, address string) (MarketView, error) {
	info, custom, err := s.findMarket(ctx, address)
	if err != nil {
		return MarketView{}, err
	}

	m, err := s.loadMarket(ctx, info)
	if err != nil {
		return MarketView{}, err
	}

	details, _ := s.registry.MarketDetails(info.Address, custom, m.BaseMint, m.QuoteMint)
	return MarketView{
		MarketDetails: details,
		BaseMint:      m.BaseMint,
		QuoteMint:     m.QuoteMint,
		TickSize:      m.TickSize(),
		MinOrderSize:  m.BaseSizeLotsToNumber(1),
		Symbol:        s.Session(ctx, address).Symbol,
		TradePageURL:  s.resolver.TradePageURL(address),
	}, nil
}

// OrderBook returns one side of a market's book.
func (s *Service) OrderBook(ctx context.Context, address string, bids bool) (model.OrderBook, error) {
	info, _, err := s.findMarket(ctx, address)
	if err != nil {
		return model.OrderBook{}, err
	}
	m, err := s.loadMarket(ctx, info)
	if err != nil {
		return model.OrderBook{}, err
	}

	key := cache.NewKey("orderbook", info.Address, bids, s.bookDepth)
	book, err := s.books.Get(ctx, key, func(ctx context.Context) (model.OrderBook, error) {
		return s.chain.LoadOrderBook(ctx, m, bids, s.bookDepth)
	})
	if err != nil {
		return model.OrderBook{}, err
	}
	track(s, s.books, key)
	return book, nil
}

// Quote prices a market order spending cost. A buy walks the asks and
// a sell walks the bids. tickDecimals defaults to the market's tick.
func (s *Service) Quote(ctx context.Context, address string, side string, cost float64, tickDecimals *int) (PriceQuote, error) {
	var bids bool
	switch side {
	case "buy":
	case "sell":
		bids = true
	default:
		return PriceQuote{}, fmt.Errorf("%w, got %q", ErrInvalidSide, side)
	}

	book, err := s.OrderBook(ctx, address, bids)
	if err != nil {
		return PriceQuote{}, err
	}
	if tickDecimals == nil {
		d := pricing.TickDecimals(book.TickSize)
		tickDecimals = &d
	}

	q := PriceQuote{Side: side, Cost: cost}
	q.MarketPrice, err = pricing.MarketOrderPrice(book, cost, tickDecimals)
	if err != nil {
		return PriceQuote{}, err
	}
	q.ExpectedFillPrice, err = pricing.ExpectedFillPrice(book, cost, tickDecimals)
	if err != nil {
		return PriceQuote{}, err
	}
	return q, nil
}

// Trades returns recent fills for a market. An unsuccessful or failed
// upstream fetch is logged and yields an empty list.
func (s *Service) Trades(ctx context.Context, address string) ([]model.Trade, error) {
	if _, err := parseAddress(address); err != nil {
		return nil, err
	}
	key := cache.NewKey("getRecentTrades", address)
	trades, err := s.fills.Get(ctx, key, func(ctx context.Context) ([]model.Trade, error) {
		return s.trades.RecentTrades(ctx, address)
	})
	if err != nil {
		s.logger.Warn("failed to load recent trades", "market", address, "err", err)
		return []model.Trade{}, nil
	}
	track(s, s.fills, key)
	if trades == nil {
		trades = []model.Trade{}
	}
	return trades, nil
}

// Unmigrated returns owner's funded open-orders accounts on deprecated
// markets, grouped with their loaded markets.
func (s *Service) Unmigrated(ctx context.Context, owner string) ([]UnmigratedMarket, error) {
	pk, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}

	key := cache.NewKey("getUnmigratedOpenOrdersAccounts", pk)
	accounts, err := s.unmigrated.Get(ctx, key, func(ctx context.Context) ([]model.OpenOrdersAccount, error) {
		return s.openOrders.Unmigrated(ctx, &pk), nil
	})
	if err != nil {
		return nil, err
	}

	loaded := s.loader.LoadUnmigrated(ctx, accounts)
	out := make([]UnmigratedMarket, 0, len(loaded))
	for _, l := range loaded {
		out = append(out, UnmigratedMarket{
			Market:     l.Info,
			BaseMint:   l.Market.BaseMint,
			QuoteMint:  l.Market.QuoteMint,
			OpenOrders: l.OpenOrders,
		})
	}
	return out, nil
}

// OpenOrders returns owner's resting orders across every known market.
func (s *Service) OpenOrders(ctx context.Context, owner string) ([]loader.MarketOrders, error) {
	pk, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	infos, err := s.MarketInfos(ctx)
	if err != nil {
		return nil, err
	}

	// Only markets where owner has an open-orders account can hold orders.
	accounts := s.openOrders.All(ctx, &pk, infos)
	withAccounts := make([]model.MarketInfo, 0)
	for _, addr := range openorders.DistinctMarkets(accounts) {
		if info, ok := market.FindByAddress(infos, addr); ok {
			withAccounts = append(withAccounts, info)
		}
	}
	return s.loader.OpenOrdersByMarket(ctx, withAccounts, pk), nil
}

// Balances returns owner's wallet and open-orders balances.
func (s *Service) Balances(ctx context.Context, owner string) (Balances, error) {
	start := time.Now()
	pk, err := parseAddress(owner)
	if err != nil {
		return Balances{}, err
	}

	key := cache.NewKey("getTokenAccounts", pk)
	tokenAccounts, err := s.wallets.Get(ctx, key, func(ctx context.Context) ([]model.TokenAccount, error) {
		return s.chain.GetTokenAccounts(ctx, pk)
	})
	if err != nil {
		return Balances{}, fmt.Errorf("load token accounts: %w", err)
	}

	infos, err := s.MarketInfos(ctx)
	if err != nil {
		return Balances{}, err
	}
	accounts := s.openOrders.All(ctx, &pk, infos)

	markets := make(map[solana.PublicKey]*model.Market)
	var marketInfos []model.MarketInfo
	for _, addr := range openorders.DistinctMarkets(accounts) {
		if info, ok := market.FindByAddress(infos, addr); ok {
			marketInfos = append(marketInfos, info)
		}
	}
	for _, l := range s.loader.LoadAll(ctx, marketInfos) {
		markets[l.Market.Address] = l.Market
	}

	mintSet := make(map[solana.PublicKey]struct{})
	for _, ta := range tokenAccounts {
		mintSet[ta.EffectiveMint] = struct{}{}
	}
	for _, m := range markets {
		mintSet[m.BaseMint] = struct{}{}
		mintSet[m.QuoteMint] = struct{}{}
	}
	mintList := make([]solana.PublicKey, 0, len(mintSet))
	for m := range mintSet {
		mintList = append(mintList, m)
	}
	mints, err := s.chain.GetMintInfos(ctx, mintList)
	if err != nil {
		// Unscaled amounts are still useful.
		s.logger.Warn("failed to load mint infos", "owner", owner, "err", err)
		mints = map[solana.PublicKey]model.MintInfo{}
	}
	// Native SOL has no mint account.
	if _, ok := mints[chain.WrappedSOLMint]; !ok {
		mints[chain.WrappedSOLMint] = model.MintInfo{Decimals: 9}
	}

	out := Balances{
		Owner:      pk,
		Wallet:     s.reconciler.WalletBalances(tokenAccounts, mints),
		OpenOrders: s.reconciler.OpenOrdersBalances(accounts, markets, mints),
	}

	s.logger.Debug("balances computed",
		"owner", owner,
		"token_accounts", len(tokenAccounts),
		"open_orders", len(accounts),
		"duration", time.Since(start),
	)
	return out, nil
}

// SelectedTokenAccount returns the token account used for mint: the stored
// selection when it exists, else owner's first account for mint.
func (s *Service) SelectedTokenAccount(ctx context.Context, owner, mint string) (*model.TokenAccount, error) {
	ownerPK, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	mintPK, err := parseAddress(mint)
	if err != nil {
		return nil, err
	}

	selected, err := s.store.SelectedTokenAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("read selected token accounts: %w", err)
	}

	key := cache.NewKey("getTokenAccounts", ownerPK)
	accounts, err := s.wallets.Get(ctx, key, func(ctx context.Context) ([]model.TokenAccount, error) {
		return s.chain.GetTokenAccounts(ctx, ownerPK)
	})
	if err != nil {
		return nil, fmt.Errorf("load token accounts: %w", err)
	}

	if acc := balances.SelectedTokenAccountForMint(accounts, mintPK, selected[mint]); acc != nil {
		return acc, nil
	}
	// A stale selection falls back to any account for the mint.
	return balances.SelectedTokenAccountForMint(accounts, mintPK, ""), nil
}

// CustomMarkets returns the stored custom markets.
func (s *Service) CustomMarkets(ctx context.Context) ([]model.CustomMarketInfo, error) {
	return s.store.CustomMarkets(ctx)
}

// SetCustomMarkets replaces the stored custom markets. Entries with
// malformed addresses are rejected.
func (s *Service) SetCustomMarkets(ctx context.Context, markets []model.CustomMarketInfo) error {
	for _, c := range markets {
		if _, err := market.ParseCustomMarket(c); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
	}
	return s.store.SetCustomMarkets(ctx, markets)
}

// SelectedTokenAccounts returns the stored mint to token account selections.
func (s *Service) SelectedTokenAccounts(ctx context.Context) (map[string]string, error) {
	return s.store.SelectedTokenAccounts(ctx)
}

// SetSelectedTokenAccounts replaces the stored selections.
func (s *Service) SetSelectedTokenAccounts(ctx context.Context, selected map[string]string) error {
	for mint, acct := range selected {
		if _, err := parseAddress(mint); err != nil {
			return err
		}
		if _, err := parseAddress(acct); err != nil {
			return err
		}
	}
	return s.store.SetSelectedTokenAccounts(ctx, selected)
}

// FeeDiscountKey returns the stored fee discount account, if any.
func (s *Service) FeeDiscountKey(ctx context.Context) (string, error) {
	return s.store.FeeDiscountKey(ctx)
}

// SetFeeDiscountKey stores the fee discount account. Empty clears it.
func (s *Service) SetFeeDiscountKey(ctx context.Context, key string) error {
	if key != "" {
		if _, err := parseAddress(key); err != nil {
			return err
		}
	}
	return s.store.SetFeeDiscountKey(ctx, key)
}
