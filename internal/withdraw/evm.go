package withdraw

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/evmabi"
	"github.com/zex-fi/zexbridge/internal/models"
)

// ErrWithdrawDifferentHash is returned when the validator-reported hash
// does not match the hash computed locally over the same withdraw
// parameters (spec §4.7 step 4).
var ErrWithdrawDifferentHash = errors.New("withdraw: validator hash differs from locally computed hash")

// SigningAggregator is the subset of the signing aggregator client the EVM
// coordinator depends on.
type SigningAggregator interface {
	RequestNonces(ctx context.Context, party string, k int) ([]string, error)
	RequestSignature(ctx context.Context, dkgKey string, nonces []string, data []byte, party string) (*models.SignRequestResult, error)
}

// EVMChain is the subset of chainclient.Client the EVM coordinator needs to
// broadcast a signed withdraw call and check on its receipt.
type EVMChain interface {
	SendRaw(ctx context.Context, raw []byte) (string, error)
	TxReceiptStatus(ctx context.Context, txHash string) (mined, success bool, err error)
}

// TxSigner builds and signs the vault's withdraw(...) call, the same
// build-and-sign shape vault.TxSigner uses for sweep calls.
type TxSigner interface {
	SignCall(to common.Address, nonce uint64, gasLimit uint64, data []byte) ([]byte, error)
}

// NonceSource reads the withdrawer's pending nonce once per withdraw.
type NonceSource interface {
	PendingNonce(ctx context.Context, sender common.Address) (uint64, error)
}

// EVMWithdrawer processes PENDING EVM withdraws against the threshold
// signing aggregator (spec §4.7 EVM path).
type EVMWithdrawer struct {
	chain        EVMChain
	agg          SigningAggregator
	vaultAddress common.Address
	dkgKey       string
	party        string
	shieldKey    *ecdsa.PrivateKey
	signer       TxSigner
	nonces       NonceSource
	sender       common.Address
}

// NewEVMWithdrawer constructs an EVMWithdrawer for one chain. sender is the
// address signer signs from, used to read the pending nonce before each
// broadcast.
func NewEVMWithdrawer(chain EVMChain, agg SigningAggregator, vaultAddress common.Address, dkgKey, party string, shieldKey *ecdsa.PrivateKey, signer TxSigner, nonces NonceSource, sender common.Address) *EVMWithdrawer {
	return &EVMWithdrawer{chain: chain, agg: agg, vaultAddress: vaultAddress, dkgKey: dkgKey, party: party, shieldKey: shieldKey, signer: signer, nonces: nonces, sender: sender}
}

// Process advances one withdraw toward SUCCESSFUL or REJECTED, following
// spec §4.7's five-step EVM flow: a PENDING request is signed and broadcast,
// moving it to PROCESSING with its tx hash recorded; a PROCESSING request is
// checked against its already-broadcast receipt. Callers persist the
// returned request via Store regardless of outcome.
func (w *EVMWithdrawer) Process(ctx context.Context, req models.WithdrawRequest) (models.WithdrawRequest, error) {
	if req.Status == models.WithdrawProcessing {
		return w.awaitReceipt(ctx, req)
	}
	if req.Status != models.WithdrawPending {
		return req, fmt.Errorf("evm withdraw: nonce %d is %s, not PENDING", req.Nonce, req.Status)
	}

	nonces, err := w.agg.RequestNonces(ctx, w.party, config.SigningAggregatorNonces)
	if err != nil {
		return req, fmt.Errorf("request nonces: %w", err)
	}

	requestPayload := identifyWithdraw(req.ChainTag, req.Nonce)
	result, err := w.agg.RequestSignature(ctx, w.dkgKey, nonces, requestPayload, w.party)
	if err != nil {
		return req, fmt.Errorf("request signature: %w", err)
	}

	token := common.HexToAddress(req.TokenAddress)
	recipient := common.HexToAddress(req.Recipient)
	localHash := evmabi.HashWithdraw(token, req.Amount(), recipient, req.Nonce)

	if !bytesEqual(localHash, result.MessageHash) {
		slog.Warn("withdraw hash mismatch", "chain", req.ChainTag, "nonce", req.Nonce)
		req.Status = models.WithdrawRejected
		return req, ErrWithdrawDifferentHash
	}

	shieldSig, err := crypto.Sign(localHash, w.shieldKey)
	if err != nil {
		return req, fmt.Errorf("shield sign: %w", err)
	}

	callData := evmabi.EncodeWithdraw(token, req.Amount(), recipient, req.Nonce, result.Signature, shieldSig)

	nonce, err := w.nonces.PendingNonce(ctx, w.sender)
	if err != nil {
		return req, fmt.Errorf("pending nonce: %w", err)
	}

	raw, err := w.signer.SignCall(w.vaultAddress, nonce, config.WithdrawGasLimit, callData)
	if err != nil {
		return req, fmt.Errorf("sign withdraw call: %w", err)
	}

	txHash, err := w.chain.SendRaw(ctx, raw)
	if err != nil {
		return req, fmt.Errorf("broadcast withdraw: %w", err)
	}

	req.Status = models.WithdrawProcessing
	req.TxHash = txHash
	return req, nil
}

// awaitReceipt checks a broadcast withdraw's receipt. An unmined receipt
// leaves req PROCESSING for the next coordinator tick; a reverted receipt
// is terminal (REJECTED); only a mined, successful receipt advances to
// SUCCESSFUL (spec §4.7 step 5).
func (w *EVMWithdrawer) awaitReceipt(ctx context.Context, req models.WithdrawRequest) (models.WithdrawRequest, error) {
	mined, success, err := w.chain.TxReceiptStatus(ctx, req.TxHash)
	if err != nil {
		return req, fmt.Errorf("receipt status: %w", err)
	}
	if !mined {
		return req, nil
	}
	if !success {
		slog.Warn("withdraw tx reverted", "chain", req.ChainTag, "nonce", req.Nonce, "tx", req.TxHash)
		req.Status = models.WithdrawRejected
		return req, nil
	}

	req.Status = models.WithdrawSuccessful
	return req, nil
}

// identifyWithdraw is the (chain_tag, withdraw_nonce) payload every
// validator uses to independently fetch and hash the same withdraw
// (spec §4.7 step 2).
func identifyWithdraw(chainTag models.ChainTag, nonce uint64) []byte {
	return []byte(fmt.Sprintf("%s:%d", chainTag, nonce))
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
