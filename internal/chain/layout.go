package chain

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/model"
)

// Account flag bits shared by every Serum account.
const (
	flagInitialized uint64 = 1 << 0
	flagMarket      uint64 = 1 << 1
	flagOpenOrders  uint64 = 1 << 2
	flagBids        uint64 = 1 << 5
	flagAsks        uint64 = 1 << 6
)

// Serum accounts begin with a 5-byte "serum" pad followed by the flags word.
const (
	headPad     = 5
	flagsOffset = headPad
	bodyOffset  = headPad + 8
)

// Market state (v2/v3) offsets.
const (
	marketOwnAddressOffset   = 13
	marketBaseMintOffset     = 53
	marketQuoteMintOffset    = 85
	marketBidsOffset         = 285
	marketAsksOffset         = 317
	marketBaseLotSizeOffset  = 349
	marketQuoteLotSizeOffset = 357
	marketMinSize            = 365
)

// Open orders offsets.
const (
	OpenOrdersSize = 3228

	openOrdersMarketOffset     = 13
	OpenOrdersOwnerOffset      = 45
	openOrdersBaseFreeOffset   = 77
	openOrdersBaseTotalOffset  = 85
	openOrdersQuoteFreeOffset  = 93
	openOrdersQuoteTotalOffset = 101
	openOrdersMinSize          = 109
)

// Slab offsets.
const (
	slabHeaderSize = 32
	slabNodesStart = bodyOffset + slabHeaderSize
	slabNodeSize   = 72

	slabTagLeaf = 2
)

// SPL token layouts.
const (
	mintDecimalsOffset = 44
	mintMinSize        = 45

	tokenAccountMintOffset   = 0
	tokenAccountOwnerOffset  = 32
	tokenAccountAmountOffset = 64
	tokenAccountMinSize      = 72
)

func readFlags(data []byte) (uint64, error) {
	if len(data) < bodyOffset {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidAccount, len(data))
	}
	return binary.LittleEndian.Uint64(data[flagsOffset:bodyOffset]), nil
}

func readKey(data []byte, off int) solana.PublicKey {
	return solana.PublicKeyFromBytes(data[off : off+32])
}

func readU64(data []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(data[off : off+8])
}

// DecodeMarket decodes a market state account. Decimals are left zero.
func DecodeMarket(address, programID solana.PublicKey, data []byte) (*model.Market, error) {
	flags, err := readFlags(data)
	if err != nil {
		return nil, err
	}
	if len(data) < marketMinSize {
		return nil, fmt.Errorf("%w: market is %d bytes", ErrInvalidAccount, len(data))
	}
	if flags&flagInitialized == 0 || flags&flagMarket == 0 {
		return nil, fmt.Errorf("%w: not a market (flags %#x)", ErrInvalidAccount, flags)
	}

	own := readKey(data, marketOwnAddressOffset)
	if !address.IsZero() && !own.Equals(address) {
		return nil, fmt.Errorf("%w: market address mismatch %s", ErrInvalidAccount, own)
	}

	return &model.Market{
		Address:      own,
		ProgramID:    programID,
		BaseMint:     readKey(data, marketBaseMintOffset),
		QuoteMint:    readKey(data, marketQuoteMintOffset),
		Bids:         readKey(data, marketBidsOffset),
		Asks:         readKey(data, marketAsksOffset),
		BaseLotSize:  readU64(data, marketBaseLotSizeOffset),
		QuoteLotSize: readU64(data, marketQuoteLotSizeOffset),
	}, nil
}

// DecodeOpenOrders decodes an open orders account.
func DecodeOpenOrders(address solana.PublicKey, data []byte) (model.OpenOrdersAccount, error) {
	flags, err := readFlags(data)
	if err != nil {
		return model.OpenOrdersAccount{}, err
	}
	if len(data) < openOrdersMinSize {
		return model.OpenOrdersAccount{}, fmt.Errorf("%w: open orders is %d bytes", ErrInvalidAccount, len(data))
	}
	if flags&flagOpenOrders == 0 {
		return model.OpenOrdersAccount{}, fmt.Errorf("%w: not open orders (flags %#x)", ErrInvalidAccount, flags)
	}

	return model.OpenOrdersAccount{
		Address:         address,
		Market:          readKey(data, openOrdersMarketOffset),
		Owner:           readKey(data, OpenOrdersOwnerOffset),
		BaseTokenFree:   readU64(data, openOrdersBaseFreeOffset),
		BaseTokenTotal:  readU64(data, openOrdersBaseTotalOffset),
		QuoteTokenFree:  readU64(data, openOrdersQuoteFreeOffset),
		QuoteTokenTotal: readU64(data, openOrdersQuoteTotalOffset),
	}, nil
}

// SlabOrder is a leaf of an order book slab.
type SlabOrder struct {
	OrderID       *big.Int
	PriceLots     uint64
	QuantityLots  uint64
	OpenOrders    solana.PublicKey
	ClientOrderID uint64
}

// DecodeSlab returns every leaf of a bids or asks slab in storage order.
func DecodeSlab(data []byte) (bids bool, orders []SlabOrder, err error) {
	flags, err := readFlags(data)
	if err != nil {
		return false, nil, err
	}
	switch {
	case flags&flagBids != 0:
		bids = true
	case flags&flagAsks != 0:
	default:
		return false, nil, fmt.Errorf("%w: not a slab (flags %#x)", ErrInvalidAccount, flags)
	}
	if len(data) < slabNodesStart {
		return false, nil, fmt.Errorf("%w: slab is %d bytes", ErrInvalidAccount, len(data))
	}

	bumpIndex := int(binary.LittleEndian.Uint32(data[bodyOffset : bodyOffset+4]))
	for i := 0; i < bumpIndex; i++ {
		off := slabNodesStart + i*slabNodeSize
		if off+slabNodeSize > len(data) {
			break
		}
		node := data[off : off+slabNodeSize]
		if binary.LittleEndian.Uint32(node[0:4]) != slabTagLeaf {
			continue
		}
		orders = append(orders, decodeLeaf(node))
	}
	return bids, orders, nil
}

// Leaf: tag u32, ownerSlot u8, feeTier u8, pad 2, key u128, owner, quantity u64, clientOrderId u64.
func decodeLeaf(node []byte) SlabOrder {
	key := node[8:24]

	// Big-endian copy of the little-endian u128 key.
	be := make([]byte, 16)
	for i := range key {
		be[15-i] = key[i]
	}

	return SlabOrder{
		OrderID:       new(big.Int).SetBytes(be),
		PriceLots:     binary.LittleEndian.Uint64(key[8:16]),
		OpenOrders:    solana.PublicKeyFromBytes(node[24:56]),
		QuantityLots:  binary.LittleEndian.Uint64(node[56:64]),
		ClientOrderID: binary.LittleEndian.Uint64(node[64:72]),
	}
}

// AggregateL2 sums slab orders by price and converts them to human units,
// best level first, truncated to depth levels when depth > 0.
func AggregateL2(market *model.Market, bids bool, orders []SlabOrder, depth int) model.OrderBook {
	sizes := make(map[uint64]uint64)
	for _, o := range orders {
		sizes[o.PriceLots] += o.QuantityLots
	}

	prices := make([]uint64, 0, len(sizes))
	for p := range sizes {
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool {
		if bids {
			return prices[i] > prices[j]
		}
		return prices[i] < prices[j]
	})
	if depth > 0 && len(prices) > depth {
		prices = prices[:depth]
	}

	levels := make([]model.PriceLevel, 0, len(prices))
	for _, p := range prices {
		levels = append(levels, model.PriceLevel{
			Price: market.PriceLotsToNumber(p),
			Size:  market.BaseSizeLotsToNumber(sizes[p]),
		})
	}

	return model.OrderBook{
		IsBids:   bids,
		TickSize: market.TickSize(),
		Levels:   levels,
	}
}

// DecodeMintDecimals returns the decimals of an SPL mint account.
func DecodeMintDecimals(data []byte) (uint8, error) {
	if len(data) < mintMinSize {
		return 0, fmt.Errorf("%w: mint is %d bytes", ErrInvalidAccount, len(data))
	}
	return data[mintDecimalsOffset], nil
}

// TokenAccountInfo is the decoded head of an SPL token account.
type TokenAccountInfo struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// DecodeTokenAccount decodes an SPL token account.
func DecodeTokenAccount(data []byte) (TokenAccountInfo, error) {
	if len(data) < tokenAccountMinSize {
		return TokenAccountInfo{}, fmt.Errorf("%w: token account is %d bytes", ErrInvalidAccount, len(data))
	}
	return TokenAccountInfo{
		Mint:   readKey(data, tokenAccountMintOffset),
		Owner:  readKey(data, tokenAccountOwnerOffset),
		Amount: readU64(data, tokenAccountAmountOffset),
	}, nil
}

// orderSide maps a slab side to the dashboard's side label.
func orderSide(bids bool) string {
	if bids {
		return "buy"
	}
	return "sell"
}
