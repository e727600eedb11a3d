package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/chain/chaintest"
	"github.com/rickgao/serum-dashboard/internal/market"
	"github.com/rickgao/serum-dashboard/internal/model"
	"github.com/rickgao/serum-dashboard/internal/notify"
)

type fixture struct {
	fake     *chaintest.Fake
	registry *market.Registry
	hub      *notify.Hub
	infos    []model.MarketInfo
	program  solana.PublicKey
}

func newFixture(n int) *fixture {
	f := &fixture{
		fake:    chaintest.New(),
		hub:     notify.NewHub(10, nil),
		program: solana.NewWallet().PublicKey(),
	}
	for i := 0; i < n; i++ {
		addr := solana.NewWallet().PublicKey()
		f.infos = append(f.infos, model.MarketInfo{
			Address:    addr,
			ProgramID:  f.program,
			Name:       string(rune('A'+i)) + "/USDC",
			Deprecated: true,
		})
		f.fake.Markets[addr] = &model.Market{
			Address:      addr,
			BaseMint:     solana.NewWallet().PublicKey(),
			QuoteMint:    solana.NewWallet().PublicKey(),
			BaseLotSize:  1,
			QuoteLotSize: 1,
		}
	}
	f.registry = market.NewRegistryFrom(f.infos, nil, market.Config{}, nil)
	return f
}

func (f *fixture) loader(cfg Config) *Loader {
	return New(cfg, f.fake, f.registry, f.hub, nil)
}

func testConfig() Config {
	return Config{Concurrency: 4, Timeout: time.Second}
}

func TestLoadAll(t *testing.T) {
	f := newFixture(5)

	got := f.loader(testConfig()).LoadAll(context.Background(), f.infos)
	if len(got) != 5 {
		t.Fatalf("LoadAll() = %d markets, want 5", len(got))
	}
	for i, lm := range got {
		if lm.Info.Address != f.infos[i].Address {
			t.Errorf("[%d] order not preserved", i)
		}
		if lm.Market.ProgramID != f.program {
			t.Errorf("[%d] program id = %s", i, lm.Market.ProgramID)
		}
	}
	if len(f.hub.Recent(0)) != 0 {
		t.Errorf("unexpected notifications: %v", f.hub.Recent(0))
	}
}

func TestLoadAll_PartialFailure(t *testing.T) {
	f := newFixture(4)
	f.fake.Errors[f.infos[1].Address] = errors.New("rpc timeout")
	delete(f.fake.Markets, f.infos[3].Address)

	got := f.loader(testConfig()).LoadAll(context.Background(), f.infos)
	if len(got) != 2 {
		t.Fatalf("LoadAll() = %d markets, want 2", len(got))
	}
	if got[0].Info.Address != f.infos[0].Address || got[1].Info.Address != f.infos[2].Address {
		t.Errorf("unexpected markets loaded: %v, %v", got[0].Info.Name, got[1].Info.Name)
	}

	// Every attempt ran despite the failures.
	if loads := f.fake.MarketLoads.Load(); loads != 4 {
		t.Errorf("loads = %d, want 4", loads)
	}

	notes := f.hub.Recent(0)
	if len(notes) != 2 {
		t.Fatalf("notifications = %d, want 2", len(notes))
	}
	for _, n := range notes {
		if n.Type != notify.TypeError || n.Message != MsgLoadAllFailed || n.Description == "" {
			t.Errorf("notification = %+v", n)
		}
	}
}

func TestLoadAll_WithJitterAndRate(t *testing.T) {
	f := newFixture(3)
	cfg := Config{Concurrency: 2, Timeout: time.Second, MaxJitter: 5 * time.Millisecond, RatePerSecond: 1000}

	got := f.loader(cfg).LoadAll(context.Background(), f.infos)
	if len(got) != 3 {
		t.Errorf("LoadAll() = %d markets, want 3", len(got))
	}
}

func TestLoadAll_CancelledContext(t *testing.T) {
	f := newFixture(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := f.loader(Config{Concurrency: 1, Timeout: time.Second, MaxJitter: time.Second}).LoadAll(ctx, f.infos)
	if len(got) != 0 {
		t.Errorf("LoadAll() = %d markets after cancel, want 0", len(got))
	}
}

func TestLoadUnmigrated(t *testing.T) {
	f := newFixture(3)
	owner := solana.NewWallet().PublicKey()
	unknown := solana.NewWallet().PublicKey()

	acc := func(m solana.PublicKey) model.OpenOrdersAccount {
		return model.OpenOrdersAccount{Address: solana.NewWallet().PublicKey(), Market: m, Owner: owner, BaseTokenTotal: 1}
	}
	accounts := []model.OpenOrdersAccount{
		acc(f.infos[0].Address),
		acc(f.infos[0].Address),
		acc(f.infos[1].Address),
		acc(unknown),
	}

	got := f.loader(testConfig()).LoadUnmigrated(context.Background(), accounts)
	if len(got) != 2 {
		t.Fatalf("LoadUnmigrated() = %d markets, want 2", len(got))
	}
	if len(got[0].OpenOrders) != 2 || len(got[1].OpenOrders) != 1 {
		t.Errorf("open orders per market = %d, %d; want 2, 1", len(got[0].OpenOrders), len(got[1].OpenOrders))
	}
	if got[0].Info.Name != f.infos[0].Name {
		t.Errorf("info = %+v", got[0].Info)
	}

	notes := f.hub.Recent(0)
	if len(notes) != 1 || notes[0].Message != MsgLoadMarketFailed {
		t.Errorf("notifications = %+v, want one load failure", notes)
	}
}

func TestOpenOrdersByMarket(t *testing.T) {
	f := newFixture(3)
	owner := solana.NewWallet().PublicKey()
	f.fake.Orders[f.infos[0].Address] = []model.Order{
		{OrderID: "1", Side: "buy", MarketOwner: owner},
		{OrderID: "2", Side: "sell", MarketOwner: solana.NewWallet().PublicKey()},
	}
	f.fake.Errors[f.infos[2].Address] = errors.New("boom")

	got := f.loader(testConfig()).OpenOrdersByMarket(context.Background(), f.infos, owner)
	if len(got) != 2 {
		t.Fatalf("OpenOrdersByMarket() = %d markets, want 2", len(got))
	}
	if len(got[0].Orders) != 1 || got[0].Orders[0].OrderID != "1" {
		t.Errorf("orders = %+v", got[0].Orders)
	}
	if got[1].Orders == nil || len(got[1].Orders) != 0 {
		t.Errorf("market without orders = %+v, want empty", got[1].Orders)
	}
	// Order failures do not notify.
	if len(f.hub.Recent(0)) != 0 {
		t.Errorf("notifications = %v", f.hub.Recent(0))
	}
}

func TestLoadOne_CancelledContext(t *testing.T) {
	f := newFixture(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.loader(testConfig()).LoadOne(ctx, f.infos[0])
	if !errors.Is(err, context.Canceled) {
		t.Errorf("LoadOne() error = %v, want context.Canceled", err)
	}
}
