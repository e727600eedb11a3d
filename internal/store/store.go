package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rickgao/serum-dashboard/internal/model"
)

// Keys under which values are stored.
const (
	KeyCustomMarkets         = "customMarkets"
	KeySelectedTokenAccounts = "selectedTokenAccounts"
	KeyFeeDiscountKey        = "feeDiscountKey"
)

// Store reads and writes persisted dashboard state.
type Store interface {
	CustomMarkets(ctx context.Context) ([]model.CustomMarketInfo, error)
	SetCustomMarkets(ctx context.Context, markets []model.CustomMarketInfo) error

	// SelectedTokenAccounts maps mint address to the chosen token account.
	SelectedTokenAccounts(ctx context.Context) (map[string]string, error)
	SetSelectedTokenAccounts(ctx context.Context, selected map[string]string) error

	FeeDiscountKey(ctx context.Context) (string, error)
	SetFeeDiscountKey(ctx context.Context, key string) error

	Close() error
}

// KV is a byte-valued key/value backend.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// kvStore implements Store over any KV backend.
type kvStore struct {
	kv KV
}

// New returns a Store backed by kv.
func New(kv KV) Store {
	return &kvStore{kv: kv}
}

func (s *kvStore) load(ctx context.Context, key string, v any) error {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *kvStore) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *kvStore) CustomMarkets(ctx context.Context) ([]model.CustomMarketInfo, error) {
	out := []model.CustomMarketInfo{}
	if err := s.load(ctx, KeyCustomMarkets, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.CustomMarketInfo{}
	}
	return out, nil
}

func (s *kvStore) SetCustomMarkets(ctx context.Context, markets []model.CustomMarketInfo) error {
	if markets == nil {
		markets = []model.CustomMarketInfo{}
	}
	return s.save(ctx, KeyCustomMarkets, markets)
}

func (s *kvStore) SelectedTokenAccounts(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	if err := s.load(ctx, KeySelectedTokenAccounts, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

func (s *kvStore) SetSelectedTokenAccounts(ctx context.Context, selected map[string]string) error {
	if selected == nil {
		selected = map[string]string{}
	}
	return s.save(ctx, KeySelectedTokenAccounts, selected)
}

func (s *kvStore) FeeDiscountKey(ctx context.Context) (string, error) {
	var key string
	if err := s.load(ctx, KeyFeeDiscountKey, &key); err != nil {
		return "", err
	}
	return key, nil
}

func (s *kvStore) SetFeeDiscountKey(ctx context.Context, key string) error {
	return s.save(ctx, KeyFeeDiscountKey, key)
}

func (s *kvStore) Close() error {
	return s.kv.Close()
}
