package vault

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/models"
)

// GasPricer is the minimal chain capability EVMSigner needs to price a call.
type GasPricer interface {
	FeeEstimate(ctx context.Context) (*models.FeeEstimate, error)
}

// EVMSigner builds and signs the zero-value vault calls SweepBatch issues,
// buffering the suggested gas price the same 20% the teacher buffers BSC
// transfers (tx/bsc_tx.go's BufferedGasPrice).
type EVMSigner struct {
	privKey *ecdsa.PrivateKey
	chainID *big.Int
	gas     GasPricer
}

// NewEVMSigner constructs a signer for one EVM chain's sender key.
func NewEVMSigner(privKey *ecdsa.PrivateKey, chainID *big.Int, gas GasPricer) *EVMSigner {
	return &EVMSigner{privKey: privKey, chainID: chainID, gas: gas}
}

// SignCall builds a zero-value legacy transaction calling to with data, signs
// it for chainID, and returns the RLP-encoded raw bytes for SendRaw.
func (s *EVMSigner) SignCall(to common.Address, nonce uint64, gasLimit uint64, data []byte) ([]byte, error) {
	fee, err := s.gas.FeeEstimate(context.Background())
	if err != nil {
		return nil, fmt.Errorf("fee estimate: %w", err)
	}
	gasPrice := bufferedGasPrice(fee.Rate)

	txn := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(txn, types.NewEIP155Signer(s.chainID), s.privKey)
	if err != nil {
		return nil, fmt.Errorf("sign vault call: %w", err)
	}
	return signed.MarshalBinary()
}

func bufferedGasPrice(suggested *big.Int) *big.Int {
	buffered := new(big.Int).Mul(suggested, big.NewInt(config.EVMGasPriceBufferNumerator))
	return buffered.Div(buffered, big.NewInt(config.EVMGasPriceBufferDenominator))
}
