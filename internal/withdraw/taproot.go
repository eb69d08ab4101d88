package withdraw

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// SigningInput is one Taproot input to sign: the UTXO's prevout script and
// value, plus the salt (user_id) its deposit address was derived with.
type SigningInput struct {
	PkScript []byte
	Amount   int64
	Salt     [8]byte
}

// SignTaprootKeyPath signs every input of tx key-path-only (BIP-341, no
// script witness), tweaking masterPriv by each input's own salt before
// signing — this is the inverse of AddressDeriver's per-user tweak, so the
// signature validates against exactly the P2TR output that salt produced.
func SignTaprootKeyPath(tx *wire.MsgTx, inputs []SigningInput, masterPriv *btcec.PrivateKey) error {
	if len(tx.TxIn) != len(inputs) {
		return fmt.Errorf("taproot sign: %d tx inputs but %d signing inputs", len(tx.TxIn), len(inputs))
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range inputs {
		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, &wire.TxOut{
			Value:    in.Amount,
			PkScript: in.PkScript,
		})
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i, in := range inputs {
		digest, err := txscript.CalcTaprootSignatureHash(sigHashes, txscript.SigHashDefault, tx, i, fetcher)
		if err != nil {
			return fmt.Errorf("taproot sighash for input %d: %w", i, err)
		}

		tweaked := txscript.TweakTaprootPrivKey(*masterPriv, in.Salt[:])

		sig, err := schnorr.Sign(tweaked, digest)
		if err != nil {
			return fmt.Errorf("schnorr sign input %d: %w", i, err)
		}

		tx.TxIn[i].Witness = wire.TxWitness{sig.Serialize()}
	}
	return nil
}
