package market

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/model"
)

// registryState holds the static market indexes. Built once, read-only after.
type registryState struct {
	// Static markets in declaration order.
	markets []model.MarketInfo

	// Index into markets by address. First declaration wins.
	byAddress map[solana.PublicKey]int

	// Token tickers by mint.
	tokenNames map[solana.PublicKey]string

	// Market names hidden from the market list.
	exclude map[string]struct{}
}

func newState(markets []model.MarketInfo, tokens []model.TokenMint, exclude []string) *registryState {
	s := &registryState{
		markets:    markets,
		byAddress:  make(map[solana.PublicKey]int, len(markets)),
		tokenNames: make(map[solana.PublicKey]string, len(tokens)),
		exclude:    make(map[string]struct{}, len(exclude)),
	}
	for i, m := range markets {
		if _, ok := s.byAddress[m.Address]; !ok {
			s.byAddress[m.Address] = i
		}
	}
	for _, t := range tokens {
		s.tokenNames[t.Address] = t.Name
	}
	for _, name := range exclude {
		s.exclude[name] = struct{}{}
	}
	return s
}

// excluded returns true if the market name is configured as hidden.
func (s *registryState) excluded(name string) bool {
	_, ok := s.exclude[name]
	return ok
}
