package openorders

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/chain/chaintest"
	"github.com/rickgao/serum-dashboard/internal/market"
	"github.com/rickgao/serum-dashboard/internal/model"
)

type env struct {
	fake     *chaintest.Fake
	registry *market.Registry
	owner    solana.PublicKey

	v1, v2, v3       solana.PublicKey
	liveMarket       solana.PublicKey
	oldMarketA       solana.PublicKey
	oldMarketB       solana.PublicKey
	unlistedOnOldPID solana.PublicKey
}

func newEnv() *env {
	e := &env{
		fake:             chaintest.New(),
		owner:            solana.NewWallet().PublicKey(),
		v1:               solana.NewWallet().PublicKey(),
		v2:               solana.NewWallet().PublicKey(),
		v3:               solana.NewWallet().PublicKey(),
		liveMarket:       solana.NewWallet().PublicKey(),
		oldMarketA:       solana.NewWallet().PublicKey(),
		oldMarketB:       solana.NewWallet().PublicKey(),
		unlistedOnOldPID: solana.NewWallet().PublicKey(),
	}
	e.registry = market.NewRegistryFrom([]model.MarketInfo{
		{Address: e.liveMarket, ProgramID: e.v3, Name: "SRM/USDT"},
		{Address: e.oldMarketA, ProgramID: e.v2, Name: "SRM/USDT", Deprecated: true},
		{Address: e.oldMarketB, ProgramID: e.v1, Name: "BTC/USDT", Deprecated: true},
	}, nil, market.Config{}, nil)
	return e
}

func (e *env) account(market solana.PublicKey, base, quote uint64) model.OpenOrdersAccount {
	return model.OpenOrdersAccount{
		Address:         solana.NewWallet().PublicKey(),
		Market:          market,
		Owner:           e.owner,
		BaseTokenTotal:  base,
		QuoteTokenTotal: quote,
	}
}

func addresses(accounts []model.OpenOrdersAccount) map[solana.PublicKey]bool {
	out := make(map[solana.PublicKey]bool, len(accounts))
	for _, a := range accounts {
		out[a.Address] = true
	}
	return out
}

func TestUnmigrated(t *testing.T) {
	e := newEnv()

	keepA := e.account(e.oldMarketA, 5, 0)
	keepB := e.account(e.oldMarketB, 0, 7)
	empty := e.account(e.oldMarketA, 0, 0)
	unlisted := e.account(e.unlistedOnOldPID, 10, 10)
	live := e.account(e.liveMarket, 10, 10)
	stranger := e.account(e.oldMarketA, 1, 1)
	stranger.Owner = solana.NewWallet().PublicKey()

	e.fake.OpenOrders[e.v2] = []model.OpenOrdersAccount{keepA, empty, unlisted, stranger}
	e.fake.OpenOrders[e.v1] = []model.OpenOrdersAccount{keepB}
	e.fake.OpenOrders[e.v3] = []model.OpenOrdersAccount{live}

	a := New(e.fake, e.registry, 2, nil)
	got := a.Unmigrated(context.Background(), &e.owner)

	want := addresses([]model.OpenOrdersAccount{keepA, keepB})
	if len(got) != len(want) {
		t.Fatalf("Unmigrated() = %d accounts, want %d", len(got), len(want))
	}
	for addr := range addresses(got) {
		if !want[addr] {
			t.Errorf("unexpected account %s", addr)
		}
	}
	// Only deprecated program IDs are scanned.
	if calls := e.fake.ScanCalls.Load(); calls != 2 {
		t.Errorf("scan calls = %d, want 2", calls)
	}
}

func TestUnmigrated_EmptyNeverNil(t *testing.T) {
	e := newEnv()
	a := New(e.fake, e.registry, 0, nil)

	tests := []struct {
		name  string
		owner *solana.PublicKey
	}{
		{"nil owner", nil},
		{"zero owner", &solana.PublicKey{}},
		{"no accounts", &e.owner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Unmigrated(context.Background(), tt.owner)
			if got == nil {
				t.Fatal("Unmigrated() returned nil")
			}
			if len(got) != 0 {
				t.Errorf("Unmigrated() = %v, want empty", got)
			}
		})
	}
}

func TestUnmigrated_PartialFailure(t *testing.T) {
	e := newEnv()
	keepB := e.account(e.oldMarketB, 3, 0)
	e.fake.OpenOrders[e.v2] = []model.OpenOrdersAccount{e.account(e.oldMarketA, 1, 1)}
	e.fake.OpenOrders[e.v1] = []model.OpenOrdersAccount{keepB}
	e.fake.Errors[e.v2] = errors.New("rpc unavailable")

	got := New(e.fake, e.registry, 1, nil).Unmigrated(context.Background(), &e.owner)
	if len(got) != 1 || got[0].Address != keepB.Address {
		t.Errorf("Unmigrated() = %v, want only the v1 account", got)
	}
}

func TestAll(t *testing.T) {
	e := newEnv()
	live := e.account(e.liveMarket, 0, 0)
	old := e.account(e.oldMarketA, 0, 0)
	e.fake.OpenOrders[e.v3] = []model.OpenOrdersAccount{live}
	e.fake.OpenOrders[e.v2] = []model.OpenOrdersAccount{old}

	a := New(e.fake, e.registry, 4, nil)
	got := a.All(context.Background(), &e.owner, e.registry.GetMarketInfos(nil))

	// Empty accounts are kept here.
	if len(got) != 2 {
		t.Fatalf("All() = %d accounts, want 2", len(got))
	}
	if calls := e.fake.ScanCalls.Load(); calls != 3 {
		t.Errorf("scan calls = %d, want 3", calls)
	}

	if got := a.All(context.Background(), nil, e.registry.GetMarketInfos(nil)); got == nil || len(got) != 0 {
		t.Errorf("All(nil owner) = %v", got)
	}
}

func TestDistinctMarkets(t *testing.T) {
	e := newEnv()
	got := DistinctMarkets([]model.OpenOrdersAccount{
		e.account(e.oldMarketA, 1, 0),
		e.account(e.oldMarketB, 1, 0),
		e.account(e.oldMarketA, 0, 1),
	})
	if len(got) != 2 || got[0] != e.oldMarketA || got[1] != e.oldMarketB {
		t.Errorf("DistinctMarkets() = %v", got)
	}
}

func TestNew_PanicsWithoutDeps(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New(nil, newEnv().registry, 1, nil)
}
