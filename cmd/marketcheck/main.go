// marketcheck loads one Serum market over RPC and prints its book and a
// market-order quote. Useful for checking an RPC endpoint or a custom market.
//
// Usage: go run ./cmd/marketcheck --market 9aruV2p8cRWxybx6wMsJwPFqeN7eQVPR74RrxdM3DNdu --cost 100
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rickgao/serum-dashboard/internal/chain"
	"github.com/rickgao/serum-dashboard/internal/config"
	"github.com/rickgao/serum-dashboard/internal/market"
	"github.com/rickgao/serum-dashboard/internal/model"
	"github.com/rickgao/serum-dashboard/internal/pricing"
)

func main() {
	rpcURL := flag.String("rpc", config.DefaultRPCURL, "Solana RPC endpoint")
	address := flag.String("market", "", "market address (default SRM/USDT)")
	programFlag := flag.String("program", "", "DEX program ID (required for markets outside the registry)")
	cost := flag.Float64("cost", 100, "quote amount to price a buy with")
	levels := flag.Int("levels", 5, "book levels to print per side")
	timeout := flag.Duration("timeout", 60*time.Second, "overall timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	registry, err := market.NewRegistry(market.Config{}, logger)
	if err != nil {
		log.Fatalf("load registry: %v", err)
	}

	info, err := resolve(registry, *address, *programFlag)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := chain.NewRPC(*rpcURL, config.DefaultCommitment, logger)
	defer client.Close()

	fmt.Println("=== Market ===")
	m, err := client.LoadMarket(ctx, info.Address, info.ProgramID)
	if err != nil {
		log.Fatalf("LoadMarket failed: %v", err)
	}
	details, _ := registry.MarketDetails(info.Address, nil, m.BaseMint, m.QuoteMint)
	fmt.Printf("Name:       %s\n", info.Name)
	fmt.Printf("Address:    %s\n", info.Address)
	fmt.Printf("Program:    %s (deprecated: %v)\n", info.ProgramID, info.Deprecated)
	fmt.Printf("Base:       %s %s (%d decimals)\n", details.BaseCurrency, m.BaseMint, m.BaseDecimals)
	fmt.Printf("Quote:      %s %s (%d decimals)\n", details.QuoteCurrency, m.QuoteMint, m.QuoteDecimals)
	fmt.Printf("Tick size:  %v\n", m.TickSize())
	fmt.Printf("Min size:   %v\n", m.BaseSizeLotsToNumber(1))

	asks, err := client.LoadOrderBook(ctx, m, false, pricing.DefaultBookDepth)
	if err != nil {
		log.Fatalf("LoadOrderBook(asks) failed: %v", err)
	}
	bids, err := client.LoadOrderBook(ctx, m, true, pricing.DefaultBookDepth)
	if err != nil {
		log.Fatalf("LoadOrderBook(bids) failed: %v", err)
	}

	fmt.Println("\n=== Asks ===")
	printLevels(asks, *levels)
	fmt.Println("\n=== Bids ===")
	printLevels(bids, *levels)

	fmt.Printf("\n=== Buy quote for %v %s ===\n", *cost, details.QuoteCurrency)
	decimals := pricing.TickDecimals(m.TickSize())
	price, err := pricing.MarketOrderPrice(asks, *cost, &decimals)
	if err != nil {
		log.Fatalf("MarketOrderPrice failed: %v", err)
	}
	fill, err := pricing.ExpectedFillPrice(asks, *cost, &decimals)
	if err != nil {
		log.Fatalf("ExpectedFillPrice failed: %v", err)
	}
	fmt.Printf("Market price:        %v\n", price)
	fmt.Printf("Expected fill price: %v\n", fill)

	fmt.Println("\n=== Done ===")
}

func resolve(registry *market.Registry, address, program string) (model.MarketInfo, error) {
	if address == "" {
		info, ok := registry.DefaultMarket()
		if !ok {
			return model.MarketInfo{}, fmt.Errorf("no default market in registry")
		}
		return info, nil
	}

	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return model.MarketInfo{}, fmt.Errorf("invalid market address: %w", err)
	}
	if info, ok := registry.Find(pk); ok {
		return info, nil
	}
	if program == "" {
		return model.MarketInfo{}, fmt.Errorf("market %s not in registry; pass --program", address)
	}
	return market.ParseCustomMarket(model.CustomMarketInfo{Address: address, ProgramID: program, Name: "custom"})
}

func printLevels(book model.OrderBook, n int) {
	if len(book.Levels) == 0 {
		fmt.Println("(empty)")
		return
	}
	if n > len(book.Levels) {
		n = len(book.Levels)
	}
	for _, l := range book.Levels[:n] {
		fmt.Printf("  %14.6f  %14.6f\n", l.Price, l.Size)
	}
	fmt.Printf("  (%d levels total)\n", len(book.Levels))
}
