package pricing

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/rickgao/serum-dashboard/internal/model"
)

// ErrInsufficientLiquidity is returned when the book cannot price the
// requested cost: an empty book, a non-positive cost, or nothing spent.
var ErrInsufficientLiquidity = errors.New("insufficient liquidity")

// Slippage bounds applied to a marketable buy price.
const (
	levelSlippage = 1.02
	bestSlippage  = 1.05
)

// DefaultBookDepth is the number of levels read for a price walk.
const DefaultBookDepth = 1000

// MarketOrderPrice returns a price at which a market order of the given
// quote cost should fill.
//
// For a bids book this returns the tick size without walking. For asks, the
// walk stops at the first level whose cumulative cost exceeds cost, and the
// result is min(level*1.02, bestAsk*1.05). When tickDecimals is positive the
// result is floored to that many decimals.
func MarketOrderPrice(book model.OrderBook, cost float64, tickDecimals *int) (float64, error) {
	if book.IsBids {
		return book.TickSize, nil
	}
	if len(book.Levels) == 0 {
		return 0, ErrInsufficientLiquidity
	}

	var spent, price float64
	for _, level := range book.Levels {
		price = level.Price
		levelCost := level.Price * level.Size
		if spent+levelCost > cost {
			break
		}
		spent += levelCost
	}

	send := math.Min(price*levelSlippage, book.Levels[0].Price*bestSlippage)
	return format(send, tickDecimals), nil
}

// ExpectedFillPrice returns the average price a market order of the given
// cost would fill at. Cost is quote units for asks and base units for bids.
func ExpectedFillPrice(book model.OrderBook, cost float64, tickDecimals *int) (float64, error) {
	if !(cost > 0) || math.IsInf(cost, 0) || len(book.Levels) == 0 {
		return 0, ErrInsufficientLiquidity
	}

	var spent, weighted float64
	for _, level := range book.Levels {
		levelCost := level.Size
		if !book.IsBids {
			levelCost *= level.Price
		}
		if spent+levelCost > cost {
			weighted += (cost - spent) * level.Price
			spent = cost
			break
		}
		weighted += levelCost * level.Price
		spent += levelCost
	}

	if spent == 0 {
		return 0, ErrInsufficientLiquidity
	}

	avg := weighted / math.Min(cost, spent)
	return format(avg, tickDecimals), nil
}

func format(v float64, tickDecimals *int) float64 {
	if tickDecimals == nil || *tickDecimals <= 0 {
		return v
	}
	return FloorToDecimal(v, *tickDecimals)
}

// FloorToDecimal rounds v toward negative infinity at the given number of decimals.
func FloorToDecimal(v float64, decimals int) float64 {
	return decimal.NewFromFloat(v).RoundFloor(int32(decimals)).InexactFloat64()
}

// TickDecimals returns the number of decimals needed to represent tick.
func TickDecimals(tick float64) int {
	if tick <= 0 || math.IsNaN(tick) || math.IsInf(tick, 0) {
		return 0
	}
	d := decimal.NewFromFloat(tick)
	if exp := d.Exponent(); exp < 0 {
		return int(-exp)
	}
	return 0
}
