package market

import (
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/model"
)

// DefaultMarketName is the market selected when none is requested.
const DefaultMarketName = "SRM/USDT"

// UnknownCurrency labels a side whose mint is not in the token list.
const UnknownCurrency = "UNKNOWN"

// Config holds Market Registry configuration.
type Config struct {
	// Exclude hides markets with these names from MarketsList.
	Exclude []string
	// IgnoreDeprecated treats every static market as live. Debugging only.
	IgnoreDeprecated bool
}

// Registry is the merged view of static and custom markets.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	cfg    Config
	logger *slog.Logger

	state *registryState
}

// NewRegistry creates a registry from the embedded static market list.
func NewRegistry(cfg Config, logger *slog.Logger) (*Registry, error) {
	markets, tokens, err := EmbeddedStatic()
	if err != nil {
		return nil, err
	}
	return NewRegistryFrom(markets, tokens, cfg, logger), nil
}

// NewRegistryFrom creates a registry from an explicit static list.
func NewRegistryFrom(static []model.MarketInfo, tokens []model.TokenMint, cfg Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	markets := make([]model.MarketInfo, len(static))
	copy(markets, static)
	if cfg.IgnoreDeprecated {
		for i := range markets {
			markets[i].Deprecated = false
		}
	}

	return &Registry{
		cfg:    cfg,
		logger: logger,
		state:  newState(markets, tokens, cfg.Exclude),
	}
}

// Static returns a copy of the static market list.
func (r *Registry) Static() []model.MarketInfo {
	out := make([]model.MarketInfo, len(r.state.markets))
	copy(out, r.state.markets)
	return out
}

// MarketsList returns live static markets not excluded by configuration.
func (r *Registry) MarketsList() []model.MarketInfo {
	out := make([]model.MarketInfo, 0, len(r.state.markets))
	for _, m := range r.state.markets {
		if m.Deprecated || r.state.excluded(m.Name) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// GetMarketInfos merges custom markets ahead of the static list.
//
// Custom entries have Deprecated forced to false. An entry that fails to parse,
// or whose address is already present, is dropped with a warning.
func (r *Registry) GetMarketInfos(custom []model.CustomMarketInfo) []model.MarketInfo {
	out := make([]model.MarketInfo, 0, len(custom)+len(r.state.markets))
	seen := make(map[solana.PublicKey]struct{}, len(custom))

	for _, c := range custom {
		info, err := ParseCustomMarket(c)
		if err != nil {
			r.logger.Warn("skipping malformed custom market", "name", c.Name, "err", err)
			continue
		}
		if _, ok := r.state.byAddress[info.Address]; ok {
			r.logger.Warn("custom market shadows a known market, keeping the known entry",
				"name", c.Name,
				"address", info.Address,
			)
			continue
		}
		if _, ok := seen[info.Address]; ok {
			r.logger.Warn("duplicate custom market, keeping the first entry",
				"name", c.Name,
				"address", info.Address,
			)
			continue
		}
		seen[info.Address] = struct{}{}
		out = append(out, info)
	}

	return append(out, r.state.markets...)
}

// Find returns the static market with the given address.
func (r *Registry) Find(address solana.PublicKey) (model.MarketInfo, bool) {
	i, ok := r.state.byAddress[address]
	if !ok {
		return model.MarketInfo{}, false
	}
	return r.state.markets[i], true
}

// IsDeprecated reports whether address is a deprecated static market.
func (r *Registry) IsDeprecated(address solana.PublicKey) bool {
	m, ok := r.Find(address)
	return ok && m.Deprecated
}

// DeprecatedProgramIDs returns the distinct program IDs of deprecated markets.
func (r *Registry) DeprecatedProgramIDs() []solana.PublicKey {
	var deprecated []model.MarketInfo
	for _, m := range r.state.markets {
		if m.Deprecated {
			deprecated = append(deprecated, m)
		}
	}
	return ProgramIDs(deprecated)
}

// DefaultMarket returns the live SRM/USDT market.
func (r *Registry) DefaultMarket() (model.MarketInfo, bool) {
	for _, m := range r.state.markets {
		if m.Name == DefaultMarketName && !m.Deprecated {
			return m, true
		}
	}
	return model.MarketInfo{}, false
}

// TokenName returns the ticker of a well-known mint.
func (r *Registry) TokenName(mint solana.PublicKey) (string, bool) {
	name, ok := r.state.tokenNames[mint]
	return name, ok
}

// MarketDetails resolves a market and its currency labels.
//
// Labels come from the token list when the mint is known, then from the
// custom market's labels (suffixed with "*"), else UnknownCurrency.
// A zero mint means the market has not been loaded yet.
func (r *Registry) MarketDetails(address solana.PublicKey, custom []model.CustomMarketInfo, baseMint, quoteMint solana.PublicKey) (model.MarketDetails, bool) {
	info, ok := FindByAddress(r.GetMarketInfos(custom), address)
	if !ok {
		return model.MarketDetails{}, false
	}

	var baseLabel, quoteLabel string
	for _, c := range custom {
		if c.Address == address.String() {
			baseLabel, quoteLabel = c.BaseLabel, c.QuoteLabel
			break
		}
	}

	return model.MarketDetails{
		MarketInfo:    info,
		BaseCurrency:  r.currency(baseMint, baseLabel),
		QuoteCurrency: r.currency(quoteMint, quoteLabel),
	}, true
}

func (r *Registry) currency(mint solana.PublicKey, label string) string {
	if !mint.IsZero() {
		if name, ok := r.TokenName(mint); ok {
			return name
		}
	}
	if label != "" {
		return label + "*"
	}
	return UnknownCurrency
}

// ParseCustomMarket converts a stored custom market into a MarketInfo.
func ParseCustomMarket(c model.CustomMarketInfo) (model.MarketInfo, error) {
	addr, err := solana.PublicKeyFromBase58(c.Address)
	if err != nil {
		return model.MarketInfo{}, fmt.Errorf("parse address %q: %w", c.Address, err)
	}
	programID, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return model.MarketInfo{}, fmt.Errorf("parse program id %q: %w", c.ProgramID, err)
	}
	return model.MarketInfo{
		Address:    addr,
		ProgramID:  programID,
		Name:       c.Name,
		Deprecated: false,
	}, nil
}

// ProgramIDs returns the distinct program IDs of infos in first-seen order.
func ProgramIDs(infos []model.MarketInfo) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	var out []solana.PublicKey
	for _, m := range infos {
		if _, ok := seen[m.ProgramID]; ok {
			continue
		}
		seen[m.ProgramID] = struct{}{}
		out = append(out, m.ProgramID)
	}
	return out
}

// FindByAddress returns the first market in infos with the given address.
func FindByAddress(infos []model.MarketInfo, address solana.PublicKey) (model.MarketInfo, bool) {
	for _, m := range infos {
		if m.Address.Equals(address) {
			return m, true
		}
	}
	return model.MarketInfo{}, false
}
