package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"log/slog"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/zex-fi/zexbridge/internal/addresssync"
	"github.com/zex-fi/zexbridge/internal/chainclient"
	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/deriver"
	"github.com/zex-fi/zexbridge/internal/exchange"
	"github.com/zex-fi/zexbridge/internal/logging"
	"github.com/zex-fi/zexbridge/internal/models"
	"github.com/zex-fi/zexbridge/internal/observer"
	"github.com/zex-fi/zexbridge/internal/resilience"
	"github.com/zex-fi/zexbridge/internal/store/mongostore"
)

// observer runs one Observer goroutine per configured chain, advancing each
// chain's cursor and deriving newly-registered deposit addresses as the
// exchange's user ID range grows (spec §4.4).
func main() {
	if err := run(); err != nil {
		slog.Error("observer exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logCloser.Close()

	slog.Info("observer service starting", "chains", cfg.ChainTags, "environment", cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close(context.Background())

	exchangeClient := exchange.New(cfg.ExchangeBaseURL, cfg.ExchangeAPIKey, &http.Client{Timeout: config.ExchangeRequestTimeout})

	var wg sync.WaitGroup
	for tag, cc := range cfg.Chains {
		chainTag := models.ChainTag(tag)

		if err := store.EnsureAddressIndexes(ctx, tag); err != nil {
			return fmt.Errorf("ensure address indexes for %s: %w", tag, err)
		}

		chain, syncer, err := buildChain(chainTag, cc, exchangeClient, store)
		if err != nil {
			return fmt.Errorf("build chain %s: %w", tag, err)
		}

		batchSize := cc.BatchBlockSize
		if batchSize == 0 {
			batchSize = config.DefaultEVMBatchBlockSize
			if cc.Kind == "BTC" {
				batchSize = config.DefaultBTCBatchBlockSize
			}
		}

		obs := observer.New(chainTag, chain, store, syncer, batchSize, config.DefaultObserverDelay)

		wg.Add(1)
		go func() {
			defer wg.Done()
			obs.Run(ctx)
		}()
	}

	waitForShutdown()
	slog.Info("observer service shutting down", "timeout", config.ShutdownTimeout)
	cancel()
	wg.Wait()
	slog.Info("observer service stopped")
	return nil
}

// buildChain constructs the ChainClient and AddressSyncer pair for one
// configured chain, branching on Kind the same way the rest of the bridge's
// daemons do (spec §4.1/§4.2).
func buildChain(chainTag models.ChainTag, cc config.ChainConfig, exchangeClient *exchange.Client, store *mongostore.Store) (observer.ChainSource, observer.AddressSyncer, error) {
	limiter := resilience.NewRateLimiter(string(chainTag), config.ExchangeRateLimitRPS)
	breaker := resilience.NewCircuitBreaker(config.DefaultCircuitThreshold, config.DefaultCircuitCooldown)

	switch cc.Kind {
	case "EVM":
		backend, err := ethclient.Dial(cc.RPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", cc.RPCURL, err)
		}
		evmDeriver, err := deriver.NewEVM(cc.FactoryAddress, cc.BytecodeHash)
		if err != nil {
			return nil, nil, err
		}
		client := chainclient.NewEVM(chainTag, backend, cc.FinalizeBlockCount, limiter, breaker)
		syncer := addresssync.New(evmDeriver, exchangeClient, store)
		return client, syncer, nil

	case "BTC":
		btcDeriver, err := deriver.NewBTC(cc.MasterPubKey, cc.NetworkMode)
		if err != nil {
			return nil, nil, err
		}
		httpClient := &http.Client{Timeout: config.ExchangeRequestTimeout}
		client := chainclient.NewBTC(chainTag, httpClient, []string{cc.RPCURL}, []*resilience.RateLimiter{limiter}, breaker, btcDeriver.Params, cc.FinalizeBlockCount)
		syncer := addresssync.New(btcDeriver, exchangeClient, store)
		return client, syncer, nil

	default:
		return nil, nil, fmt.Errorf("unknown chain kind %q", cc.Kind)
	}
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
