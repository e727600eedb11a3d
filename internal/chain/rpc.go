package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rickgao/serum-dashboard/internal/model"
)

// maxMultipleAccounts is the getMultipleAccounts batch limit.
const maxMultipleAccounts = 100

// RPC implements Client against a Solana JSON-RPC endpoint.
type RPC struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	logger     *slog.Logger
}

// NewRPC creates an RPC client for endpoint.
func NewRPC(endpoint string, commitment string, logger *slog.Logger) *RPC {
	if logger == nil {
		logger = slog.Default()
	}
	return &RPC{
		rpc:        rpc.New(endpoint),
		commitment: rpc.CommitmentType(commitment),
		logger:     logger,
	}
}

// Close releases the underlying HTTP transport.
func (c *RPC) Close() error {
	return c.rpc.Close()
}

func (c *RPC) getAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	resp, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}
	if resp == nil || resp.Value == nil || resp.Value.Data == nil {
		return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
	}
	return resp.Value.Data.GetBinary(), nil
}

// LoadMarket implements Client.
func (c *RPC) LoadMarket(ctx context.Context, address, programID solana.PublicKey) (*model.Market, error) {
	data, err := c.getAccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	m, err := DecodeMarket(address, programID, data)
	if err != nil {
		return nil, fmt.Errorf("decode market %s: %w", address, err)
	}

	mints, err := c.GetMintInfos(ctx, []solana.PublicKey{m.BaseMint, m.QuoteMint})
	if err != nil {
		return nil, fmt.Errorf("load mints for market %s: %w", address, err)
	}
	base, ok := mints[m.BaseMint]
	if !ok {
		return nil, fmt.Errorf("base mint %s: %w", m.BaseMint, ErrAccountNotFound)
	}
	quote, ok := mints[m.QuoteMint]
	if !ok {
		return nil, fmt.Errorf("quote mint %s: %w", m.QuoteMint, ErrAccountNotFound)
	}
	m.BaseDecimals = base.Decimals
	m.QuoteDecimals = quote.Decimals

	return m, nil
}

func (c *RPC) loadSlab(ctx context.Context, market *model.Market, bids bool) ([]SlabOrder, error) {
	address := market.Asks
	if bids {
		address = market.Bids
	}
	data, err := c.getAccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	isBids, orders, err := DecodeSlab(data)
	if err != nil {
		return nil, fmt.Errorf("decode slab %s: %w", address, err)
	}
	if isBids != bids {
		return nil, fmt.Errorf("%w: slab %s has the wrong side", ErrInvalidAccount, address)
	}
	return orders, nil
}

// LoadOrderBook implements Client.
func (c *RPC) LoadOrderBook(ctx context.Context, market *model.Market, bids bool, depth int) (model.OrderBook, error) {
	orders, err := c.loadSlab(ctx, market, bids)
	if err != nil {
		return model.OrderBook{}, err
	}
	return AggregateL2(market, bids, orders, depth), nil
}

func (c *RPC) findOpenOrders(ctx context.Context, programID solana.PublicKey, filters []rpc.RPCFilter) ([]model.OpenOrdersAccount, error) {
	filters = append(filters, rpc.RPCFilter{DataSize: OpenOrdersSize})

	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
		Filters:    filters,
	})
	if err != nil {
		return nil, fmt.Errorf("getProgramAccounts %s: %w", programID, err)
	}

	out := make([]model.OpenOrdersAccount, 0, len(accounts))
	for _, item := range accounts {
		if item == nil || item.Account == nil || item.Account.Data == nil {
			continue
		}
		oo, err := DecodeOpenOrders(item.Pubkey, item.Account.Data.GetBinary())
		if err != nil {
			c.logger.Warn("failed to decode open orders account", "pubkey", item.Pubkey, "err", err)
			continue
		}
		out = append(out, oo)
	}
	return out, nil
}

// FindOpenOrdersForOwner implements Client.
func (c *RPC) FindOpenOrdersForOwner(ctx context.Context, owner, programID solana.PublicKey) ([]model.OpenOrdersAccount, error) {
	return c.findOpenOrders(ctx, programID, []rpc.RPCFilter{
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: OpenOrdersOwnerOffset, Bytes: solana.Base58(owner.Bytes())}},
	})
}

// LoadOrdersForOwner implements Client.
func (c *RPC) LoadOrdersForOwner(ctx context.Context, market *model.Market, owner solana.PublicKey) ([]model.Order, error) {
	accounts, err := c.findOpenOrders(ctx, market.ProgramID, []rpc.RPCFilter{
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: openOrdersMarketOffset, Bytes: solana.Base58(market.Address.Bytes())}},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: OpenOrdersOwnerOffset, Bytes: solana.Base58(owner.Bytes())}},
	})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return []model.Order{}, nil
	}

	bids, err := c.loadSlab(ctx, market, true)
	if err != nil {
		return nil, err
	}
	asks, err := c.loadSlab(ctx, market, false)
	if err != nil {
		return nil, err
	}

	return FilterOrders(market, owner, accounts, bids, asks), nil
}

// FilterOrders returns the slab orders that belong to one of accounts.
func FilterOrders(market *model.Market, owner solana.PublicKey, accounts []model.OpenOrdersAccount, bids, asks []SlabOrder) []model.Order {
	mine := make(map[solana.PublicKey]struct{}, len(accounts))
	for _, a := range accounts {
		mine[a.Address] = struct{}{}
	}

	out := make([]model.Order, 0)
	collect := func(orders []SlabOrder, isBids bool) {
		for _, o := range orders {
			if _, ok := mine[o.OpenOrders]; !ok {
				continue
			}
			out = append(out, model.Order{
				OrderID:     o.OrderID.String(),
				OpenOrders:  o.OpenOrders,
				Side:        orderSide(isBids),
				Price:       market.PriceLotsToNumber(o.PriceLots),
				Size:        market.BaseSizeLotsToNumber(o.QuantityLots),
				ClientID:    o.ClientOrderID,
				MarketOwner: owner,
			})
		}
	}
	collect(bids, true)
	collect(asks, false)
	return out
}

// GetTokenAccounts implements Client.
func (c *RPC) GetTokenAccounts(ctx context.Context, owner solana.PublicKey) ([]model.TokenAccount, error) {
	balance, err := c.rpc.GetBalance(ctx, owner, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("get balance %s: %w", owner, err)
	}

	resp, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &solana.TokenProgramID},
		&rpc.GetTokenAccountsOpts{Commitment: c.commitment, Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return nil, fmt.Errorf("get token accounts %s: %w", owner, err)
	}

	out := []model.TokenAccount{{
		Pubkey:        owner,
		EffectiveMint: WrappedSOLMint,
		Account: &model.AccountData{
			Lamports: balance.Value,
			Owner:    solana.SystemProgramID,
		},
	}}

	for _, item := range resp.Value {
		if item == nil {
			continue
		}
		ta := model.TokenAccount{Pubkey: item.Pubkey}
		if item.Account.Data != nil {
			data := item.Account.Data.GetBinary()
			info, err := DecodeTokenAccount(data)
			if err != nil {
				c.logger.Warn("failed to decode token account", "pubkey", item.Pubkey, "err", err)
				continue
			}
			ta.EffectiveMint = info.Mint
			ta.Account = &model.AccountData{
				Lamports: item.Account.Lamports,
				Owner:    item.Account.Owner,
				Data:     data,
			}
		}
		out = append(out, ta)
	}
	return out, nil
}

// GetMintInfos implements Client.
func (c *RPC) GetMintInfos(ctx context.Context, mints []solana.PublicKey) (map[solana.PublicKey]model.MintInfo, error) {
	out := make(map[solana.PublicKey]model.MintInfo, len(mints))

	for start := 0; start < len(mints); start += maxMultipleAccounts {
		end := min(start+maxMultipleAccounts, len(mints))
		batch := mints[start:end]

		resp, err := c.rpc.GetMultipleAccountsWithOpts(ctx, batch, &rpc.GetMultipleAccountsOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		})
		if err != nil {
			return nil, fmt.Errorf("get mints: %w", err)
		}

		for i, acc := range resp.Value {
			if i >= len(batch) || acc == nil || acc.Data == nil {
				continue
			}
			decimals, err := DecodeMintDecimals(acc.Data.GetBinary())
			if err != nil {
				c.logger.Debug("skipping undecodable mint", "mint", batch[i], "err", err)
				continue
			}
			out[batch[i]] = model.MintInfo{Decimals: decimals}
		}
	}
	return out, nil
}
