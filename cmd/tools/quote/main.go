package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"github.com/tommytrillva/memecoinbot/internal/marketdata"
	"github.com/tommytrillva/memecoinbot/internal/ops"
	"github.com/tommytrillva/memecoinbot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	envPath := flag.String("env", ".env", "Path to .env file")
	mint := flag.String("mint", "", "Token mint address")
	kind := flag.String("kind", "quote", "metadata|quote|candles")
	timeframe := flag.String("timeframe", "1m", "Candle timeframe")
	limit := flag.Int("limit", 100, "Candle count")
	flag.Parse()

	log := logger.Default()
	if *mint == "" {
		fmt.Fprintln(os.Stderr, "-mint is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := ops.LoadDotEnv(*envPath); err != nil {
		log.Errorf("load env failed: %+v", err)
		os.Exit(1)
	}
	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Errorf("config load failed: %+v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := marketdata.NewClient(loaded.MarketData, marketdata.Options{
		Fetcher: marketdata.NewHTTPFetcher(&http.Client{Timeout: loaded.HTTPTimeout}),
		Logger:  log,
	})
	defer client.Close()

	result, err := fetch(ctx, client, *kind, *mint, *timeframe, *limit)
	if err != nil {
		log.Errorf("fetch %s failed: %+v", *kind, err)
		os.Exit(1)
	}

	out, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Errorf("encode result failed: %+v", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func fetch(ctx context.Context, client *marketdata.Client, kind, mint, timeframe string, limit int) (any, error) {
	switch kind {
	case "metadata":
		return client.FetchTokenMetadata(ctx, mint, nil)
	case "quote":
		return client.FetchTokenQuote(ctx, mint, nil)
	case "candles":
		return client.FetchHistoricalCandles(ctx, mint, timeframe, limit, nil)
	default:
		return nil, errors.Errorf("unknown kind %q", kind)
	}
}
