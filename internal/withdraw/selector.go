// Package withdraw implements the WithdrawCoordinator (spec §4.7): EVM
// withdraws via the external threshold-signing aggregator, BTC withdraws via
// local Taproot key-path signing over Store-tracked UTXOs.
package withdraw

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/models"
)

// ErrNotEnoughInputs is returned by SelectUTXOs when the candidate set is
// exhausted without covering amount+fee.
var ErrNotEnoughInputs = errors.New("withdraw: not enough UTXOs to cover amount and fee")

// EstimateVsize approximates a Taproot transaction's virtual size in bytes
// given its input/output counts, then pads by BTCInputSigPaddingBytes per
// input to stay safely over the true size (spec §4.8).
func EstimateVsize(numInputs, numOutputs int) int64 {
	weight := int64(config.BTCTxOverheadWU) +
		int64(numInputs)*int64(config.BTCP2TRInputWitWU+config.BTCP2TRInputNonWitWU) +
		int64(numOutputs)*int64(config.BTCP2TROutputWU)
	vsize := (weight + 3) / 4
	return vsize + int64(numInputs)*config.BTCInputSigPaddingBytes
}

// SelectUTXOs walks candidates oldest-first, accumulating until the running
// total covers amount plus the fee of the transaction built from exactly the
// UTXOs chosen so far (2 outputs: recipient + change). Deterministic given
// candidate order, amount and satPerByte.
func SelectUTXOs(candidates []models.UTXO, amount *big.Int, satPerByte int64) ([]models.UTXO, int64, error) {
	chosen := make([]models.UTXO, 0, len(candidates))
	acc := int64(0)

	for _, u := range candidates {
		chosen = append(chosen, u)
		acc += u.Amount

		fee := EstimateVsize(len(chosen), 2) * satPerByte
		need := new(big.Int).Add(amount, big.NewInt(fee))
		if big.NewInt(acc).Cmp(need) >= 0 {
			return chosen, fee, nil
		}
	}

	return nil, 0, fmt.Errorf("%w: need %s, have %d across %d candidates", ErrNotEnoughInputs, amount, acc, len(candidates))
}
