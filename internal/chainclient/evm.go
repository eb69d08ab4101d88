package chainclient

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/models"
	"github.com/zex-fi/zexbridge/internal/resilience"
)

// erc20TransferTopic0 is keccak256("Transfer(address,address,uint256)").
const erc20TransferTopic0 = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// decimalsSelector is the 4-byte selector for decimals().
var decimalsSelector = mustDecodeHex("313ce567")

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// EthBackend is the minimal ethclient surface EVM depends on, so tests can
// substitute an in-memory fake instead of dialing a real RPC endpoint.
type EthBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// EVM is the ChainClient variant for EVM-family chains.
type EVM struct {
	chainTag           models.ChainTag
	backend            EthBackend
	finalizeBlockCount uint64
	limiter            *resilience.RateLimiter
	breaker            *resilience.CircuitBreaker

	mu       sync.Mutex
	decimals map[string]int
}

// NewEVM constructs an EVM ChainClient variant.
func NewEVM(chainTag models.ChainTag, backend EthBackend, finalizeBlockCount uint64, limiter *resilience.RateLimiter, breaker *resilience.CircuitBreaker) *EVM {
	return &EVM{
		chainTag:           chainTag,
		backend:            backend,
		finalizeBlockCount: finalizeBlockCount,
		limiter:            limiter,
		breaker:            breaker,
		decimals:           make(map[string]int),
	}
}

func (e *EVM) ChainTag() models.ChainTag  { return e.chainTag }
func (e *EVM) Kind() models.ChainKind     { return models.ChainKindEVM }

func (e *EVM) guard(ctx context.Context) error {
	if !e.breaker.Allow() {
		return fmt.Errorf("%w: circuit open for chain %s", config.ErrProviderUnavailable, e.chainTag)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	return nil
}

func (e *EVM) LatestBlock(ctx context.Context) (uint64, error) {
	if err := e.guard(ctx); err != nil {
		return 0, err
	}
	n, err := e.backend.BlockNumber(ctx)
	if err != nil {
		e.breaker.RecordFailure()
		return 0, fmt.Errorf("%w: %s", config.ErrProviderUnavailable, err)
	}
	e.breaker.RecordSuccess()
	return n, nil
}

func (e *EVM) FinalizedBlock(ctx context.Context) (uint64, error) {
	latest, err := e.LatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	if latest < e.finalizeBlockCount {
		return 0, nil
	}
	return latest - e.finalizeBlockCount, nil
}

// ExtractTransfers separates native-value transfers (tx.To with value>0)
// from ERC-20 Transfer event logs, matching spec §4.1's EVM behavior.
func (e *EVM) ExtractTransfers(ctx context.Context, blockNumber uint64) ([]models.RawTransfer, error) {
	if err := e.guard(ctx); err != nil {
		return nil, err
	}

	block, err := e.backend.BlockByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		e.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: block %d: %s", config.ErrBlockNotFound, blockNumber, err)
	}

	var transfers []models.RawTransfer
	for _, txn := range block.Transactions() {
		if txn.To() == nil || txn.Value().Sign() <= 0 {
			continue
		}
		transfers = append(transfers, models.RawTransfer{
			TxHash:      txn.Hash().Hex(),
			BlockNumber: blockNumber,
			ChainTag:    e.chainTag,
			To:          strings.ToLower(txn.To().Hex()),
			Token:       models.NativeTokenSentinel,
			Value:       txn.Value(),
			Index:       0,
		})
	}

	logs, err := e.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(blockNumber),
		ToBlock:   new(big.Int).SetUint64(blockNumber),
		Topics:    [][]common.Hash{{common.HexToHash(erc20TransferTopic0)}},
	})
	if err != nil {
		e.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: filter logs block %d: %s", config.ErrProviderUnavailable, blockNumber, err)
	}
	e.breaker.RecordSuccess()

	for _, l := range logs {
		if len(l.Topics) < 3 || len(l.Data) < 32 {
			continue // malformed log, spec §7 Schema error: skip, no retry
		}
		to := common.HexToAddress(l.Topics[2].Hex())
		value := new(big.Int).SetBytes(l.Data[:32])
		transfers = append(transfers, models.RawTransfer{
			TxHash:      l.TxHash.Hex(),
			BlockNumber: blockNumber,
			ChainTag:    e.chainTag,
			To:          strings.ToLower(to.Hex()),
			Token:       strings.ToLower(l.Address.Hex()),
			Value:       value,
			Index:       uint32(l.Index),
		})
	}

	if transfers == nil {
		transfers = []models.RawTransfer{}
	}
	return transfers, nil
}

func (e *EVM) TokenDecimals(ctx context.Context, token string) (int, error) {
	if token == models.NativeTokenSentinel {
		return 18, nil
	}

	e.mu.Lock()
	if d, ok := e.decimals[token]; ok {
		e.mu.Unlock()
		return d, nil
	}
	e.mu.Unlock()

	if err := e.guard(ctx); err != nil {
		return 0, err
	}

	addr := common.HexToAddress(token)
	result, err := e.backend.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: decimalsSelector}, nil)
	if err != nil {
		e.breaker.RecordFailure()
		return 0, fmt.Errorf("%w: decimals() call on %s: %s", config.ErrProviderUnavailable, token, err)
	}
	e.breaker.RecordSuccess()
	if len(result) < 32 {
		return 0, fmt.Errorf("%w: decimals() returned %d bytes", config.ErrMalformedPayload, len(result))
	}
	decimals := int(new(big.Int).SetBytes(result[len(result)-32:]).Int64())

	e.mu.Lock()
	e.decimals[token] = decimals
	e.mu.Unlock()

	slog.Debug("token decimals cached", "chain", e.chainTag, "token", token, "decimals", decimals)
	return decimals, nil
}

func (e *EVM) SendRaw(ctx context.Context, raw []byte) (string, error) {
	if err := e.guard(ctx); err != nil {
		return "", err
	}
	var txn types.Transaction
	if err := txn.UnmarshalBinary(raw); err != nil {
		return "", fmt.Errorf("%w: decode raw transaction: %s", config.ErrMalformedPayload, err)
	}
	if err := e.backend.SendTransaction(ctx, &txn); err != nil {
		e.breaker.RecordFailure()
		return "", fmt.Errorf("%w: %s", config.ErrTxReverted, err)
	}
	e.breaker.RecordSuccess()
	return txn.Hash().Hex(), nil
}

func (e *EVM) FeeEstimate(ctx context.Context) (*models.FeeEstimate, error) {
	if err := e.guard(ctx); err != nil {
		return nil, err
	}
	price, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		e.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %s", config.ErrProviderUnavailable, err)
	}
	e.breaker.RecordSuccess()
	return &models.FeeEstimate{ChainTag: e.chainTag, Rate: price}, nil
}

func (e *EVM) Healthy(ctx context.Context) error {
	_, err := e.LatestBlock(ctx)
	return err
}

// TxReceiptStatus reports whether a mined receipt indicates success,
// used by VaultDepositor to distinguish a reverted deploy/transfer from one
// still pending.
func (e *EVM) TxReceiptStatus(ctx context.Context, txHash string) (mined bool, success bool, err error) {
	if err := e.guard(ctx); err != nil {
		return false, false, err
	}
	receipt, err := e.backend.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return false, false, nil // not yet mined; not a failure
	}
	return true, receipt.Status == types.ReceiptStatusSuccessful, nil
}

// HasCode reports whether address already has deployed contract code,
// VaultDepositor's CONTRACT_DEPLOY vs TOKEN_TRANSFER decision (spec §4.6).
func (e *EVM) HasCode(ctx context.Context, address string) (bool, error) {
	if err := e.guard(ctx); err != nil {
		return false, err
	}
	code, err := e.backend.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		e.breaker.RecordFailure()
		return false, fmt.Errorf("%w: code at %s: %s", config.ErrProviderUnavailable, address, err)
	}
	e.breaker.RecordSuccess()
	return len(code) > 0, nil
}

// PendingNonce returns sender's next nonce including pending transactions,
// read once per VaultDepositor batch (spec §4.6).
func (e *EVM) PendingNonce(ctx context.Context, sender common.Address) (uint64, error) {
	if err := e.guard(ctx); err != nil {
		return 0, err
	}
	nonce, err := e.backend.PendingNonceAt(ctx, sender)
	if err != nil {
		e.breaker.RecordFailure()
		return 0, fmt.Errorf("%w: pending nonce for %s: %s", config.ErrProviderUnavailable, sender.Hex(), err)
	}
	e.breaker.RecordSuccess()
	return nonce, nil
}
