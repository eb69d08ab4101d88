package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/zex-fi/zexbridge/internal/chainclient"
	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/deriver"
	"github.com/zex-fi/zexbridge/internal/logging"
	"github.com/zex-fi/zexbridge/internal/models"
	"github.com/zex-fi/zexbridge/internal/resilience"
	"github.com/zex-fi/zexbridge/internal/store/mongostore"
	"github.com/zex-fi/zexbridge/internal/vault"
)

// vaultsweeper runs one VaultDepositor goroutine per configured EVM chain,
// sweeping VERIFIED deposits into the vault on a fixed interval (spec §4.6).
// BTC has no vault sweep step: its deposits stay as UTXOs on the per-user
// Taproot addresses and BTCWithdrawer spends them directly (change goes to
// the vault address), so there's nothing for this daemon to do on a BTC chain.
func main() {
	if err := run(); err != nil {
		slog.Error("vaultsweeper exited with error", "error", err)
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

	slog.Info("vaultsweeper service starting", "chains", cfg.ChainTags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close(context.Background())

	senderKey, err := deriver.LoadECDSAKeyFile(cfg.WithdrawerKeyFile)
	if err != nil {
		return fmt.Errorf("load withdrawer key: %w", err)
	}

	var wg sync.WaitGroup
	for tag, cc := range cfg.Chains {
		if cc.Kind != "EVM" {
			continue
		}
		chainTag := models.ChainTag(tag)

		backend, err := ethclient.Dial(cc.RPCURL)
		if err != nil {
			return fmt.Errorf("dial %s: %w", cc.RPCURL, err)
		}
		limiter := resilience.NewRateLimiter(tag, config.ExchangeRateLimitRPS)
		breaker := resilience.NewCircuitBreaker(config.DefaultCircuitThreshold, config.DefaultCircuitCooldown)
		client := chainclient.NewEVM(chainTag, backend, cc.FinalizeBlockCount, limiter, breaker)

		signer := vault.NewEVMSigner(senderKey, big.NewInt(cc.ChainID), client)
		depositor := vault.New(chainTag, client, client, client, signer, store, common.HexToAddress(cc.SenderAddress), config.WithdrawPollInterval)

		wg.Add(1)
		go func() {
			defer wg.Done()
			depositor.Run(ctx)
		}()
	}

	waitForShutdown()
	slog.Info("vaultsweeper service shutting down", "timeout", config.ShutdownTimeout)
	cancel()
	wg.Wait()
	slog.Info("vaultsweeper service stopped")
	return nil
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
