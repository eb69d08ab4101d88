package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/zex-fi/zexbridge/internal/chainclient"
	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/deriver"
	"github.com/zex-fi/zexbridge/internal/exchange"
	"github.com/zex-fi/zexbridge/internal/logging"
	"github.com/zex-fi/zexbridge/internal/models"
	"github.com/zex-fi/zexbridge/internal/resilience"
	"github.com/zex-fi/zexbridge/internal/signingagg"
	"github.com/zex-fi/zexbridge/internal/store/mongostore"
	"github.com/zex-fi/zexbridge/internal/vault"
	"github.com/zex-fi/zexbridge/internal/withdraw"
)

// withdrawer runs one WithdrawCoordinator goroutine per configured chain,
// draining PENDING/PROCESSING withdraws against either the external
// threshold-signing aggregator (EVM) or local Taproot key-path signing (BTC)
// (spec §4.7).
func main() {
	if err := run(); err != nil {
		slog.Error("withdrawer exited with error", "error", err)
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

	slog.Info("withdrawer service starting", "chains", cfg.ChainTags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close(context.Background())

	exchangeClient := exchange.New(cfg.ExchangeBaseURL, cfg.ExchangeAPIKey, &http.Client{Timeout: config.ExchangeRequestTimeout})

	parties, err := loadParties(cfg.DKGPartyFile)
	if err != nil {
		return fmt.Errorf("load DKG parties: %w", err)
	}

	shieldKey, err := deriver.LoadECDSAKeyFile(cfg.ShieldKeyFile)
	if err != nil {
		return fmt.Errorf("load shield key: %w", err)
	}
	// WithdrawerKeyFile holds one secp256k1 secret, loaded as both curve
	// wrappers: btcec for BTC Taproot key-path signing, ecdsa for signing
	// the EVM withdraw(...) broadcast transaction itself.
	btcMasterKey, err := deriver.LoadBTCKeyFile(cfg.WithdrawerKeyFile)
	if err != nil {
		return fmt.Errorf("load BTC withdrawer key: %w", err)
	}
	evmSenderKey, err := deriver.LoadECDSAKeyFile(cfg.WithdrawerKeyFile)
	if err != nil {
		return fmt.Errorf("load EVM withdrawer key: %w", err)
	}

	aggClient := signingagg.New(cfg.SigningAggregatorURL, &http.Client{Timeout: config.SigningAggRequestTimeout})

	var wg sync.WaitGroup
	for tag, cc := range cfg.Chains {
		chainTag := models.ChainTag(tag)

		processor, err := buildProcessor(chainTag, cc, parties, aggClient, shieldKey, evmSenderKey, btcMasterKey, store)
		if err != nil {
			return fmt.Errorf("build withdraw processor for %s: %w", tag, err)
		}

		coordinator := withdraw.NewCoordinator(chainTag, exchangeClient, store, processor, config.WithdrawPollInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			coordinator.Run(ctx)
		}()
	}

	waitForShutdown()
	slog.Info("withdrawer service shutting down", "timeout", config.ShutdownTimeout)
	cancel()
	wg.Wait()
	slog.Info("withdrawer service stopped")
	return nil
}

func loadParties(path string) (map[string]signingagg.Party, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open DKG party file %q: %w", path, err)
	}
	defer f.Close()
	return signingagg.LoadParties(f)
}

func buildProcessor(chainTag models.ChainTag, cc config.ChainConfig, parties map[string]signingagg.Party, aggClient *signingagg.Client, shieldKey *ecdsa.PrivateKey, evmSenderKey *ecdsa.PrivateKey, btcMasterKey *btcec.PrivateKey, store *mongostore.Store) (withdraw.ChainProcessor, error) {
	limiter := resilience.NewRateLimiter(string(chainTag), config.SigningAggRateLimitRPS)
	breaker := resilience.NewCircuitBreaker(config.DefaultCircuitThreshold, config.DefaultCircuitCooldown)

	switch cc.Kind {
	case "EVM":
		party, ok := parties[cc.DKGParty]
		if !ok {
			return nil, fmt.Errorf("unknown DKG party %q", cc.DKGParty)
		}
		backend, err := ethclient.Dial(cc.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", cc.RPCURL, err)
		}
		client := chainclient.NewEVM(chainTag, backend, cc.FinalizeBlockCount, limiter, breaker)
		signer := vault.NewEVMSigner(evmSenderKey, big.NewInt(cc.ChainID), client)
		sender := common.HexToAddress(cc.SenderAddress)
		return withdraw.NewEVMWithdrawer(client, aggClient, common.HexToAddress(cc.VaultAddress), party.DKGKey, party.Name, shieldKey, signer, client, sender), nil

	case "BTC":
		btcDeriver, err := deriver.NewBTC(cc.MasterPubKey, cc.NetworkMode)
		if err != nil {
			return nil, err
		}
		vaultAddr, err := btcutil.DecodeAddress(cc.VaultAddress, btcDeriver.Params)
		if err != nil {
			return nil, fmt.Errorf("decode BTC vault address %q: %w", cc.VaultAddress, err)
		}
		httpClient := &http.Client{Timeout: config.ExchangeRequestTimeout}
		client := chainclient.NewBTC(chainTag, httpClient, []string{cc.RPCURL}, []*resilience.RateLimiter{limiter}, breaker, btcDeriver.Params, cc.FinalizeBlockCount)
		return withdraw.NewBTCWithdrawer(client, store, vaultAddr, btcMasterKey, btcDeriver.Params), nil

	default:
		return nil, fmt.Errorf("unknown chain kind %q", cc.Kind)
	}
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
