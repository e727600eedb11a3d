package market

import (
	_ "embed"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	"github.com/rickgao/serum-dashboard/internal/model"
)

//go:embed markets.yaml
var staticMarketsYAML []byte

type staticFile struct {
	Markets []struct {
		Name       string `yaml:"name"`
		Address    string `yaml:"address"`
		ProgramID  string `yaml:"program_id"`
		Deprecated bool   `yaml:"deprecated"`
	} `yaml:"markets"`
	Tokens []struct {
		Name    string `yaml:"name"`
		Address string `yaml:"address"`
	} `yaml:"tokens"`
}

// ParseStatic decodes a static registry document.
func ParseStatic(data []byte) ([]model.MarketInfo, []model.TokenMint, error) {
	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse static markets: %w", err)
	}

	markets := make([]model.MarketInfo, 0, len(f.Markets))
	for i, m := range f.Markets {
		addr, err := solana.PublicKeyFromBase58(m.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("markets[%d] (%s) address: %w", i, m.Name, err)
		}
		programID, err := solana.PublicKeyFromBase58(m.ProgramID)
		if err != nil {
			return nil, nil, fmt.Errorf("markets[%d] (%s) program_id: %w", i, m.Name, err)
		}
		markets = append(markets, model.MarketInfo{
			Address:    addr,
			ProgramID:  programID,
			Name:       m.Name,
			Deprecated: m.Deprecated,
		})
	}

	tokens := make([]model.TokenMint, 0, len(f.Tokens))
	for i, t := range f.Tokens {
		addr, err := solana.PublicKeyFromBase58(t.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("tokens[%d] (%s) address: %w", i, t.Name, err)
		}
		tokens = append(tokens, model.TokenMint{Address: addr, Name: t.Name})
	}

	return markets, tokens, nil
}

// EmbeddedStatic returns the markets and token mints compiled into the binary.
func EmbeddedStatic() ([]model.MarketInfo, []model.TokenMint, error) {
	return ParseStatic(staticMarketsYAML)
}
