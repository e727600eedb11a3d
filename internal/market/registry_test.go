package market

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/model"
)

var (
	programV3 = solana.NewWallet().PublicKey()
	programV2 = solana.NewWallet().PublicKey()

	srmUSDT    = solana.NewWallet().PublicKey()
	srmUSDTOld = solana.NewWallet().PublicKey()
	btcUSDC    = solana.NewWallet().PublicKey()
	ethUSDT    = solana.NewWallet().PublicKey()

	srmMint  = solana.NewWallet().PublicKey()
	usdtMint = solana.NewWallet().PublicKey()
)

func testStatic() []model.MarketInfo {
	return []model.MarketInfo{
		{Address: srmUSDT, ProgramID: programV3, Name: "SRM/USDT"},
		{Address: btcUSDC, ProgramID: programV3, Name: "BTC/USDC"},
		{Address: srmUSDTOld, ProgramID: programV2, Name: "SRM/USDT", Deprecated: true},
		{Address: ethUSDT, ProgramID: programV2, Name: "ETH/USDT", Deprecated: true},
	}
}

func testTokens() []model.TokenMint {
	return []model.TokenMint{
		{Address: srmMint, Name: "SRM"},
		{Address: usdtMint, Name: "USDT"},
	}
}

func newTestRegistry(cfg Config) *Registry {
	return NewRegistryFrom(testStatic(), testTokens(), cfg, nil)
}

func TestEmbeddedStatic(t *testing.T) {
	markets, tokens, err := EmbeddedStatic()
	if err != nil {
		t.Fatalf("EmbeddedStatic() error = %v", err)
	}
	if len(markets) == 0 {
		t.Fatal("no static markets")
	}
	if len(tokens) == 0 {
		t.Fatal("no token mints")
	}

	r, err := NewRegistry(Config{}, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	def, ok := r.DefaultMarket()
	if !ok {
		t.Fatal("DefaultMarket() not found")
	}
	if def.Name != DefaultMarketName || def.Deprecated {
		t.Errorf("DefaultMarket() = %+v", def)
	}
	if len(r.DeprecatedProgramIDs()) == 0 {
		t.Error("expected at least one deprecated program id")
	}
}

func TestParseStatic_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "markets: [unclosed"},
		{"bad address", "markets:\n  - name: X/Y\n    address: nope\n    program_id: " + programV3.String() + "\n"},
		{"bad program", "markets:\n  - name: X/Y\n    address: " + srmUSDT.String() + "\n    program_id: 0OIl\n"},
		{"bad token", "tokens:\n  - name: X\n    address: short\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseStatic([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGetMarketInfos_NoCustom(t *testing.T) {
	r := newTestRegistry(Config{})

	got := r.GetMarketInfos(nil)
	want := testStatic()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestGetMarketInfos_CustomFirst(t *testing.T) {
	r := newTestRegistry(Config{})
	custom := solana.NewWallet().PublicKey()

	got := r.GetMarketInfos([]model.CustomMarketInfo{
		{Address: custom.String(), ProgramID: programV3.String(), Name: "FOO/USDC"},
	})

	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[0].Address != custom || got[0].Name != "FOO/USDC" || got[0].Deprecated {
		t.Errorf("first entry = %+v", got[0])
	}
	if got[0].ProgramID != programV3 {
		t.Errorf("program id = %s, want %s", got[0].ProgramID, programV3)
	}
	if got[1].Address != srmUSDT {
		t.Errorf("second entry = %s, want static head", got[1].Name)
	}
}

func TestGetMarketInfos_SkipsMalformedAndDuplicates(t *testing.T) {
	r := newTestRegistry(Config{})
	custom := solana.NewWallet().PublicKey()

	got := r.GetMarketInfos([]model.CustomMarketInfo{
		{Address: "not-a-key", ProgramID: programV3.String(), Name: "BAD/ADDR"},
		{Address: custom.String(), ProgramID: "", Name: "BAD/PROG"},
		{Address: ethUSDT.String(), ProgramID: programV3.String(), Name: "SHADOW"},
		{Address: custom.String(), ProgramID: programV3.String(), Name: "FIRST"},
		{Address: custom.String(), ProgramID: programV3.String(), Name: "SECOND"},
	})

	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[0].Name != "FIRST" {
		t.Errorf("custom entry = %q, want FIRST", got[0].Name)
	}

	eth, ok := FindByAddress(got, ethUSDT)
	if !ok {
		t.Fatal("static ETH/USDT missing")
	}
	if eth.Name != "ETH/USDT" || !eth.Deprecated {
		t.Errorf("collision kept %+v, want the static entry", eth)
	}
}

func TestMarketsList(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantLen int
	}{
		{"live only", Config{}, 2},
		{"exclude", Config{Exclude: []string{"BTC/USDC"}}, 1},
		{"exclude unknown", Config{Exclude: []string{"NOPE/USD"}}, 2},
		{"ignore deprecated", Config{IgnoreDeprecated: true}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestRegistry(tt.cfg).MarketsList()
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
			for _, m := range got {
				if m.Deprecated {
					t.Errorf("deprecated market %s listed", m.Name)
				}
			}
		})
	}
}

func TestDeprecatedProgramIDs(t *testing.T) {
	r := newTestRegistry(Config{})
	got := r.DeprecatedProgramIDs()
	if len(got) != 1 || got[0] != programV2 {
		t.Errorf("DeprecatedProgramIDs() = %v, want [%s]", got, programV2)
	}

	r = newTestRegistry(Config{IgnoreDeprecated: true})
	if got := r.DeprecatedProgramIDs(); len(got) != 0 {
		t.Errorf("with IgnoreDeprecated = %v, want empty", got)
	}
}

func TestProgramIDs(t *testing.T) {
	got := ProgramIDs(testStatic())
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0] != programV3 || got[1] != programV2 {
		t.Errorf("order = %v", got)
	}
	if got := ProgramIDs(nil); len(got) != 0 {
		t.Errorf("ProgramIDs(nil) = %v", got)
	}
}

func TestIsDeprecated(t *testing.T) {
	r := newTestRegistry(Config{})

	tests := []struct {
		addr solana.PublicKey
		want bool
	}{
		{srmUSDT, false},
		{srmUSDTOld, true},
		{ethUSDT, true},
		{solana.NewWallet().PublicKey(), false},
	}
	for _, tt := range tests {
		if got := r.IsDeprecated(tt.addr); got != tt.want {
			t.Errorf("IsDeprecated(%s) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestDefaultMarket(t *testing.T) {
	def, ok := newTestRegistry(Config{}).DefaultMarket()
	if !ok || def.Address != srmUSDT {
		t.Errorf("DefaultMarket() = %+v, %v", def, ok)
	}

	r := NewRegistryFrom(testStatic()[1:], nil, Config{}, nil)
	if _, ok := r.DefaultMarket(); ok {
		t.Error("deprecated SRM/USDT returned as default")
	}
}

func TestMarketDetails(t *testing.T) {
	r := newTestRegistry(Config{})
	customAddr := solana.NewWallet().PublicKey()
	custom := []model.CustomMarketInfo{{
		Address:    customAddr.String(),
		ProgramID:  programV3.String(),
		Name:       "FOO/USDT",
		BaseLabel:  "FOO",
		QuoteLabel: "USDT",
	}}
	unknownMint := solana.NewWallet().PublicKey()

	tests := []struct {
		name      string
		address   solana.PublicKey
		base      solana.PublicKey
		quote     solana.PublicKey
		wantBase  string
		wantQuote string
	}{
		{"known mints", srmUSDT, srmMint, usdtMint, "SRM", "USDT"},
		{"unknown mints", srmUSDT, unknownMint, unknownMint, UnknownCurrency, UnknownCurrency},
		{"not loaded", btcUSDC, solana.PublicKey{}, solana.PublicKey{}, UnknownCurrency, UnknownCurrency},
		{"custom labels", customAddr, unknownMint, usdtMint, "FOO*", "USDT"},
		{"custom unloaded", customAddr, solana.PublicKey{}, solana.PublicKey{}, "FOO*", "USDT*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.MarketDetails(tt.address, custom, tt.base, tt.quote)
			if !ok {
				t.Fatal("market not found")
			}
			if got.BaseCurrency != tt.wantBase {
				t.Errorf("BaseCurrency = %q, want %q", got.BaseCurrency, tt.wantBase)
			}
			if got.QuoteCurrency != tt.wantQuote {
				t.Errorf("QuoteCurrency = %q, want %q", got.QuoteCurrency, tt.wantQuote)
			}
		})
	}

	if _, ok := r.MarketDetails(solana.NewWallet().PublicKey(), custom, srmMint, usdtMint); ok {
		t.Error("unknown market resolved")
	}
}
