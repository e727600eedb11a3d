package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"

	"github.com/rickgao/serum-dashboard/internal/dashboard"
	"github.com/rickgao/serum-dashboard/internal/loader"
	"github.com/rickgao/serum-dashboard/internal/model"
	"github.com/rickgao/serum-dashboard/internal/notify"
	"github.com/rickgao/serum-dashboard/internal/pricing"
)

// stubDashboard returns canned values. err, when set, is returned by every
// fallible method.
type stubDashboard struct {
	markets   []model.MarketInfo
	custom    []model.CustomMarketInfo
	selected  map[string]string
	feeKey    string
	quote     dashboard.PriceQuote
	lastQuote struct {
		side     string
		cost     float64
		decimals *int
	}
	err error
}

func (d *stubDashboard) MarketsList() []model.MarketInfo { return d.markets }

func (d *stubDashboard) MarketInfos(ctx context.Context) ([]model.MarketInfo, error) {
	return d.markets, d.err
}

func (d *stubDashboard) Session(ctx context.Context, address string) dashboard.Session {
	return dashboard.Session{MarketAddress: address, Symbol: "SRM/USDT"}
}

func (d *stubDashboard) Market(ctx context.Context, address string) (dashboard.MarketView, error) {
	if d.err != nil {
		return dashboard.MarketView{}, d.err
	}
	return dashboard.MarketView{Symbol: "SRM/USDT"}, nil
}

func (d *stubDashboard) OrderBook(ctx context.Context, address string, bids bool) (model.OrderBook, error) {
	return model.OrderBook{IsBids: bids}, d.err
}

func (d *stubDashboard) Quote(ctx context.Context, address, side string, cost float64, tickDecimals *int) (dashboard.PriceQuote, error) {
	d.lastQuote.side, d.lastQuote.cost, d.lastQuote.decimals = side, cost, tickDecimals
	return d.quote, d.err
}

func (d *stubDashboard) Trades(ctx context.Context, address string) ([]model.Trade, error) {
	if d.err != nil {
		return nil, d.err
	}
	return []model.Trade{{Market: "SRM/USDT", Price: 1.5, Size: 2, Side: "buy"}}, nil
}

func (d *stubDashboard) Unmigrated(ctx context.Context, owner string) ([]dashboard.UnmigratedMarket, error) {
	return []dashboard.UnmigratedMarket{}, d.err
}

func (d *stubDashboard) OpenOrders(ctx context.Context, owner string) ([]loader.MarketOrders, error) {
	return []loader.MarketOrders{}, d.err
}

func (d *stubDashboard) Balances(ctx context.Context, owner string) (dashboard.Balances, error) {
	return dashboard.Balances{}, d.err
}

func (d *stubDashboard) SelectedTokenAccount(ctx context.Context, owner, mint string) (*model.TokenAccount, error) {
	return nil, d.err
}

func (d *stubDashboard) CustomMarkets(ctx context.Context) ([]model.CustomMarketInfo, error) {
	return d.custom, d.err
}

func (d *stubDashboard) SetCustomMarkets(ctx context.Context, markets []model.CustomMarketInfo) error {
	if d.err != nil {
		return d.err
	}
	d.custom = markets
	return nil
}

func (d *stubDashboard) SelectedTokenAccounts(ctx context.Context) (map[string]string, error) {
	return d.selected, d.err
}

func (d *stubDashboard) SetSelectedTokenAccounts(ctx context.Context, selected map[string]string) error {
	d.selected = selected
	return d.err
}

func (d *stubDashboard) FeeDiscountKey(ctx context.Context) (string, error) {
	return d.feeKey, d.err
}

func (d *stubDashboard) SetFeeDiscountKey(ctx context.Context, key string) error {
	d.feeKey = key
	return d.err
}

func newTestServer(t *testing.T, dash *stubDashboard) (*httptest.Server, *notify.Hub) {
	t.Helper()
	hub := notify.NewHub(10, nil)
	srv := New(Config{PingInterval: time.Second}, dash, hub, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return ts, hub
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		markets []model.MarketInfo
		want    string
	}{
		{"healthy", []model.MarketInfo{{Name: "SRM/USDT"}}, "healthy"},
		{"no markets", nil, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, &stubDashboard{markets: tt.markets})

			var got struct {
				Status string `json:"status"`
			}
			if code := doJSON(t, "GET", ts.URL+"/health", "", &got); code != http.StatusOK {
				t.Fatalf("status code = %d", code)
			}
			if got.Status != tt.want {
				t.Errorf("status = %q, want %q", got.Status, tt.want)
			}
		})
	}
}

func TestMarkets(t *testing.T) {
	addr := solana.NewWallet().PublicKey()
	ts, _ := newTestServer(t, &stubDashboard{markets: []model.MarketInfo{{Address: addr, Name: "SRM/USDT"}}})

	var got []model.MarketInfo
	if code := doJSON(t, "GET", ts.URL+"/api/markets", "", &got); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if len(got) != 1 || !got[0].Address.Equals(addr) {
		t.Errorf("markets = %+v", got)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		path string
		want int
	}{
		{"unknown market", fmt.Errorf("%w: x", dashboard.ErrUnknownMarket), "/api/markets/x", http.StatusNotFound},
		{"bad address", fmt.Errorf("%w: x", dashboard.ErrInvalidAddress), "/api/wallets/x/balances", http.StatusBadRequest},
		{"no liquidity", pricing.ErrInsufficientLiquidity, "/api/markets/x/pricing?cost=5", http.StatusUnprocessableEntity},
		{"upstream", errors.New("rpc down"), "/api/markets/x/orderbook", http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, "/api/wallets/x/unmigrated", http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, &stubDashboard{err: tt.err})

			var body map[string]string
			code := doJSON(t, "GET", ts.URL+tt.path, "", &body)
			if code != tt.want {
				t.Errorf("status code = %d, want %d", code, tt.want)
			}
			if body["error"] == "" {
				t.Errorf("body = %v, want error message", body)
			}
		})
	}
}

func TestPricing(t *testing.T) {
	dash := &stubDashboard{quote: dashboard.PriceQuote{Side: "buy", Cost: 60, MarketPrice: 10.5}}
	ts, _ := newTestServer(t, dash)

	var got dashboard.PriceQuote
	code := doJSON(t, "GET", ts.URL+"/api/markets/x/pricing?cost=60&decimals=2", "", &got)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if got.MarketPrice != 10.5 {
		t.Errorf("MarketPrice = %v, want 10.5", got.MarketPrice)
	}
	if dash.lastQuote.side != "buy" || dash.lastQuote.cost != 60 {
		t.Errorf("Quote called with side=%q cost=%v", dash.lastQuote.side, dash.lastQuote.cost)
	}
	if dash.lastQuote.decimals == nil || *dash.lastQuote.decimals != 2 {
		t.Errorf("Quote decimals = %v, want 2", dash.lastQuote.decimals)
	}

	bad := []string{
		"/api/markets/x/pricing",
		"/api/markets/x/pricing?cost=abc",
		"/api/markets/x/pricing?cost=1&decimals=-1",
	}
	for _, path := range bad {
		var body map[string]string
		if code := doJSON(t, "GET", ts.URL+path, "", &body); code != http.StatusBadRequest {
			t.Errorf("%s: status code = %d, want 400", path, code)
		}
	}
}

func TestOrderBookSide(t *testing.T) {
	ts, _ := newTestServer(t, &stubDashboard{})

	var book model.OrderBook
	if code := doJSON(t, "GET", ts.URL+"/api/markets/x/orderbook?side=bids", "", &book); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if !book.IsBids {
		t.Error("expected bids book")
	}

	var body map[string]string
	if code := doJSON(t, "GET", ts.URL+"/api/markets/x/orderbook?side=up", "", &body); code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", code)
	}
}

func TestCustomMarketsRoundTrip(t *testing.T) {
	dash := &stubDashboard{custom: []model.CustomMarketInfo{}}
	ts, _ := newTestServer(t, dash)

	body := `[{"address":"a","programId":"p","name":"FOO/USDC","baseLabel":"FOO"}]`
	if code := doJSON(t, "PUT", ts.URL+"/api/custom-markets", body, nil); code != http.StatusNoContent {
		t.Fatalf("PUT status code = %d", code)
	}

	var got []model.CustomMarketInfo
	if code := doJSON(t, "GET", ts.URL+"/api/custom-markets", "", &got); code != http.StatusOK {
		t.Fatalf("GET status code = %d", code)
	}
	if len(got) != 1 || got[0].Name != "FOO/USDC" || got[0].BaseLabel != "FOO" {
		t.Errorf("custom markets = %+v", got)
	}

	var errBody map[string]string
	if code := doJSON(t, "PUT", ts.URL+"/api/custom-markets", `{"not":"a list"}`, &errBody); code != http.StatusBadRequest {
		t.Errorf("bad body status code = %d, want 400", code)
	}
}

func TestFeeDiscountKey(t *testing.T) {
	dash := &stubDashboard{}
	ts, _ := newTestServer(t, dash)

	if code := doJSON(t, "PUT", ts.URL+"/api/fee-discount-key", `{"key":"abc"}`, nil); code != http.StatusNoContent {
		t.Fatalf("PUT status code = %d", code)
	}
	var got feeDiscountBody
	if code := doJSON(t, "GET", ts.URL+"/api/fee-discount-key", "", &got); code != http.StatusOK {
		t.Fatalf("GET status code = %d", code)
	}
	if got.Key != "abc" {
		t.Errorf("key = %q, want abc", got.Key)
	}
}

func TestSelectedTokenAccountNotFound(t *testing.T) {
	ts, _ := newTestServer(t, &stubDashboard{})

	var body map[string]string
	code := doJSON(t, "GET", ts.URL+"/api/wallets/o/token-accounts/m", "", &body)
	if code != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", code)
	}
}

func TestRecentNotifications(t *testing.T) {
	ts, hub := newTestServer(t, &stubDashboard{})
	hub.Publish(notify.TypeError, "first", "")
	hub.Publish(notify.TypeInfo, "second", "")

	var got []notify.Notification
	if code := doJSON(t, "GET", ts.URL+"/api/notifications?limit=1", "", &got); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if len(got) != 1 || got[0].Message != "second" {
		t.Errorf("notifications = %+v, want [second]", got)
	}
}

func TestNotificationStream(t *testing.T) {
	ts, hub := newTestServer(t, &stubDashboard{})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/notifications"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sent := hub.Publish(notify.TypeError, "Error loading market", "boom")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got notify.Notification
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.ID != sent.ID || got.Message != "Error loading market" || got.Type != notify.TypeError {
		t.Errorf("got %+v, want %+v", got, sent)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRecoverer(t *testing.T) {
	srv := New(Config{}, &stubDashboard{}, notify.NewHub(1, nil), nil)
	h := srv.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want 500", rec.Code)
	}
}
