// Package chaintest provides an in-memory chain.Client for tests.
package chaintest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/chain"
	"github.com/rickgao/serum-dashboard/internal/model"
)

// Fake is a chain.Client backed by maps. Populate the exported fields before use.
type Fake struct {
	mu sync.Mutex

	Markets       map[solana.PublicKey]*model.Market
	Books         map[solana.PublicKey][2]model.OrderBook        // [asks, bids]
	OpenOrders    map[solana.PublicKey][]model.OpenOrdersAccount // by program ID
	Orders        map[solana.PublicKey][]model.Order             // by market
	TokenAccounts map[solana.PublicKey][]model.TokenAccount      // by owner
	Mints         map[solana.PublicKey]model.MintInfo

	// Errors forces an error for a market address or program ID.
	Errors map[solana.PublicKey]error

	MarketLoads atomic.Int64
	ScanCalls   atomic.Int64
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Markets:       make(map[solana.PublicKey]*model.Market),
		Books:         make(map[solana.PublicKey][2]model.OrderBook),
		OpenOrders:    make(map[solana.PublicKey][]model.OpenOrdersAccount),
		Orders:        make(map[solana.PublicKey][]model.Order),
		TokenAccounts: make(map[solana.PublicKey][]model.TokenAccount),
		Mints:         make(map[solana.PublicKey]model.MintInfo),
		Errors:        make(map[solana.PublicKey]error),
	}
}

var _ chain.Client = (*Fake)(nil)

func (f *Fake) err(key solana.PublicKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Errors[key]
}

// LoadMarket implements chain.Client.
func (f *Fake) LoadMarket(ctx context.Context, address, programID solana.PublicKey) (*model.Market, error) {
	f.MarketLoads.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.err(address); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Markets[address]
	if !ok {
		return nil, fmt.Errorf("%s: %w", address, chain.ErrAccountNotFound)
	}
	out := *m
	out.ProgramID = programID
	return &out, nil
}

// LoadOrderBook implements chain.Client.
func (f *Fake) LoadOrderBook(ctx context.Context, market *model.Market, bids bool, depth int) (model.OrderBook, error) {
	if err := f.err(market.Address); err != nil {
		return model.OrderBook{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	sides, ok := f.Books[market.Address]
	if !ok {
		return model.OrderBook{IsBids: bids, TickSize: market.TickSize()}, nil
	}
	book := sides[0]
	if bids {
		book = sides[1]
	}
	book.IsBids = bids
	if depth > 0 && len(book.Levels) > depth {
		book.Levels = book.Levels[:depth]
	}
	return book, nil
}

// FindOpenOrdersForOwner implements chain.Client.
func (f *Fake) FindOpenOrdersForOwner(ctx context.Context, owner, programID solana.PublicKey) ([]model.OpenOrdersAccount, error) {
	f.ScanCalls.Add(1)
	if err := f.err(programID); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.OpenOrdersAccount
	for _, oo := range f.OpenOrders[programID] {
		if oo.Owner.Equals(owner) {
			out = append(out, oo)
		}
	}
	return out, nil
}

// LoadOrdersForOwner implements chain.Client.
func (f *Fake) LoadOrdersForOwner(ctx context.Context, market *model.Market, owner solana.PublicKey) ([]model.Order, error) {
	if err := f.err(market.Address); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Order, 0)
	for _, o := range f.Orders[market.Address] {
		if o.MarketOwner.Equals(owner) {
			out = append(out, o)
		}
	}
	return out, nil
}

// GetTokenAccounts implements chain.Client.
func (f *Fake) GetTokenAccounts(ctx context.Context, owner solana.PublicKey) ([]model.TokenAccount, error) {
	if err := f.err(owner); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.TokenAccount(nil), f.TokenAccounts[owner]...), nil
}

// GetMintInfos implements chain.Client.
func (f *Fake) GetMintInfos(ctx context.Context, mints []solana.PublicKey) (map[solana.PublicKey]model.MintInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[solana.PublicKey]model.MintInfo, len(mints))
	for _, m := range mints {
		if info, ok := f.Mints[m]; ok {
			out[m] = info
		}
	}
	return out, nil
}
