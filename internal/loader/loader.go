package loader

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/time/rate"

	"github.com/rickgao/serum-dashboard/internal/chain"
	"github.com/rickgao/serum-dashboard/internal/model"
	"github.com/rickgao/serum-dashboard/internal/notify"
	"github.com/rickgao/serum-dashboard/internal/openorders"
)

// Notification messages.
const (
	MsgLoadAllFailed    = "Error loading all market"
	MsgLoadMarketFailed = "Error loading market"
)

// Config holds loader configuration.
type Config struct {
	Concurrency   int           // Max concurrent loads (default: 16)
	Timeout       time.Duration // Per-market timeout (default: 30s)
	MaxJitter     time.Duration // Random stagger before each load (0 disables)
	RatePerSecond float64       // Shared load rate limit (<= 0 disables)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:   16,
		Timeout:       30 * time.Second,
		MaxJitter:     time.Second,
		RatePerSecond: 10,
	}
}

// Registry resolves market addresses to static market infos.
type Registry interface {
	Find(address solana.PublicKey) (model.MarketInfo, bool)
}

// LoadedMarket is a market together with its registry entry.
type LoadedMarket struct {
	Info   model.MarketInfo
	Market *model.Market
}

// MarketWithOpenOrders pairs a deprecated market with the wallet's accounts on it.
type MarketWithOpenOrders struct {
	Info       model.MarketInfo
	Market     *model.Market
	OpenOrders []model.OpenOrdersAccount
}

// MarketOrders is a wallet's resting orders on one market.
type MarketOrders struct {
	MarketAddress solana.PublicKey
	MarketName    string
	Orders        []model.Order
}

// Loader loads markets through a chain.Client.
type Loader struct {
	cfg      Config
	chain    chain.Client
	registry Registry
	notifier notify.Publisher
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates a Loader. client, registry and notifier are required.
func New(cfg Config, client chain.Client, registry Registry, notifier notify.Publisher, logger *slog.Logger) *Loader {
	if client == nil || registry == nil || notifier == nil {
		panic("loader: nil chain client, registry or notifier")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Loader{
		cfg:      cfg,
		chain:    client,
		registry: registry,
		notifier: notifier,
		limiter:  rate.NewLimiter(limit, max(1, cfg.Concurrency)),
		logger:   logger,
	}
}

// stagger sleeps a random duration up to MaxJitter, then waits for the limiter.
func (l *Loader) stagger(ctx context.Context) error {
	if l.cfg.MaxJitter > 0 {
		d := time.Duration(rand.Int64N(int64(l.cfg.MaxJitter)))
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return l.limiter.Wait(ctx)
}

// LoadOne loads a single market bounded by the configured timeout.
func (l *Loader) LoadOne(ctx context.Context, info model.MarketInfo) (*model.Market, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	m, err := l.chain.LoadMarket(ctx, info.Address, info.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("load market %s (%s): %w", info.Name, info.Address, err)
	}
	return m, nil
}

// forEach runs fn for every index with bounded concurrency and jitter.
func (l *Loader) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	sem := make(chan struct{}, l.cfg.Concurrency)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			if err := l.stagger(ctx); err != nil {
				return
			}
			fn(ctx, i)
		}()
	}

	wg.Wait()
}

// LoadAll loads every market in infos. Failed markets are reported and
// omitted; the rest keep their input order.
func (l *Loader) LoadAll(ctx context.Context, infos []model.MarketInfo) []LoadedMarket {
	start := time.Now()
	results := make([]*LoadedMarket, len(infos))

	l.forEach(ctx, len(infos), func(ctx context.Context, i int) {
		m, err := l.LoadOne(ctx, infos[i])
		if err != nil {
			l.logger.Warn("failed to load market", "market", infos[i].Name, "err", err)
			l.notifier.Publish(notify.TypeError, MsgLoadAllFailed, err.Error())
			return
		}
		results[i] = &LoadedMarket{Info: infos[i], Market: m}
	})

	out := make([]LoadedMarket, 0, len(infos))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	l.logger.Info("market load complete",
		"requested", len(infos),
		"loaded", len(out),
		"duration", time.Since(start),
	)
	return out
}

// LoadUnmigrated loads the distinct markets of accounts and pairs each with
// its accounts. A market missing from the registry, or failing to load, is
// reported and omitted.
func (l *Loader) LoadUnmigrated(ctx context.Context, accounts []model.OpenOrdersAccount) []MarketWithOpenOrders {
	addrs := openorders.DistinctMarkets(accounts)
	results := make([]*MarketWithOpenOrders, len(addrs))

	l.forEach(ctx, len(addrs), func(ctx context.Context, i int) {
		info, ok := l.registry.Find(addrs[i])
		if !ok {
			l.logger.Warn("unmigrated market not in registry", "market", addrs[i])
			l.notifier.Publish(notify.TypeError, MsgLoadMarketFailed, "")
			return
		}

		m, err := l.LoadOne(ctx, info)
		if err != nil {
			l.logger.Warn("failed to load unmigrated market", "market", info.Name, "err", err)
			l.notifier.Publish(notify.TypeError, MsgLoadMarketFailed, err.Error())
			return
		}

		var mine []model.OpenOrdersAccount
		for _, acc := range accounts {
			if acc.Market.Equals(m.Address) {
				mine = append(mine, acc)
			}
		}
		results[i] = &MarketWithOpenOrders{Info: info, Market: m, OpenOrders: mine}
	})

	out := make([]MarketWithOpenOrders, 0, len(addrs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// OpenOrdersByMarket loads owner's resting orders on every market in infos.
// Markets that fail are logged and omitted.
func (l *Loader) OpenOrdersByMarket(ctx context.Context, infos []model.MarketInfo, owner solana.PublicKey) []MarketOrders {
	results := make([]*MarketOrders, len(infos))

	l.forEach(ctx, len(infos), func(ctx context.Context, i int) {
		m, err := l.LoadOne(ctx, infos[i])
		if err != nil {
			l.logger.Warn("failed to load open orders", "market", infos[i].Name, "err", err)
			return
		}

		ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()

		orders, err := l.chain.LoadOrdersForOwner(ctx, m, owner)
		if err != nil {
			l.logger.Warn("failed to load open orders", "market", infos[i].Name, "err", err)
			return
		}
		results[i] = &MarketOrders{
			MarketAddress: infos[i].Address,
			MarketName:    infos[i].Name,
			Orders:        orders,
		}
	})

	out := make([]MarketOrders, 0, len(infos))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
