package openorders

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/serum-dashboard/internal/chain"
	"github.com/rickgao/serum-dashboard/internal/market"
	"github.com/rickgao/serum-dashboard/internal/model"
)

// DefaultConcurrency bounds concurrent program scans.
const DefaultConcurrency = 4

// Registry is the subset of market.Registry the aggregator needs.
type Registry interface {
	DeprecatedProgramIDs() []solana.PublicKey
	IsDeprecated(address solana.PublicKey) bool
}

// Aggregator scans open-orders accounts per program ID.
type Aggregator struct {
	chain       chain.Client
	registry    Registry
	concurrency int
	logger      *slog.Logger
}

// New creates an Aggregator. client and registry are required.
func New(client chain.Client, registry Registry, concurrency int, logger *slog.Logger) *Aggregator {
	if client == nil || registry == nil {
		panic("openorders: nil chain client or registry")
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		chain:       client,
		registry:    registry,
		concurrency: concurrency,
		logger:      logger,
	}
}

// scan runs FindOpenOrdersForOwner for every program concurrently and keeps
// accounts accepted by keep. A failing program is logged and skipped.
func (a *Aggregator) scan(ctx context.Context, owner solana.PublicKey, programs []solana.PublicKey, keep func(model.OpenOrdersAccount) bool) []model.OpenOrdersAccount {
	var (
		mu  sync.Mutex
		out = make([]model.OpenOrdersAccount, 0)
	)

	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)

	for _, programID := range programs {
		g.Go(func() error {
			accounts, err := a.chain.FindOpenOrdersForOwner(ctx, owner, programID)
			if err != nil {
				a.logger.Warn("failed to load open orders accounts",
					"program_id", programID,
					"owner", owner,
					"err", err,
				)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, acc := range accounts {
				if keep == nil || keep(acc) {
					out = append(out, acc)
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return out
}

// Unmigrated returns owner's open-orders accounts that still hold base or
// quote tokens on a deprecated market. A nil owner yields an empty slice.
// The result is never nil and has no defined order.
func (a *Aggregator) Unmigrated(ctx context.Context, owner *solana.PublicKey) []model.OpenOrdersAccount {
	if owner == nil || owner.IsZero() {
		return []model.OpenOrdersAccount{}
	}

	return a.scan(ctx, *owner, a.registry.DeprecatedProgramIDs(), func(acc model.OpenOrdersAccount) bool {
		return acc.HasBalance() && a.registry.IsDeprecated(acc.Market)
	})
}

// All returns every open-orders account of owner across the program IDs of infos.
func (a *Aggregator) All(ctx context.Context, owner *solana.PublicKey, infos []model.MarketInfo) []model.OpenOrdersAccount {
	if owner == nil || owner.IsZero() {
		return []model.OpenOrdersAccount{}
	}
	return a.scan(ctx, *owner, market.ProgramIDs(infos), nil)
}

// DistinctMarkets returns the distinct markets of accounts in first-seen order.
func DistinctMarkets(accounts []model.OpenOrdersAccount) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{}, len(accounts))
	var out []solana.PublicKey
	for _, acc := range accounts {
		if _, ok := seen[acc.Market]; ok {
			continue
		}
		seen[acc.Market] = struct{}{}
		out = append(out, acc.Market)
	}
	return out
}
