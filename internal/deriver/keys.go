// Package deriver implements deterministic per-user deposit address derivation
// and the signer key loading the withdraw coordinator depends on. Address
// derivation is pure: no I/O, no randomness, same output on every machine.
package deriver

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zex-fi/zexbridge/internal/config"
)

// LoadECDSAKeyFile reads a hex-encoded secp256k1 private key from path,
// trimming whitespace and an optional "0x" prefix. Used for the withdrawer
// and shield signer keys (spec §6): each is a single static key, not an HD
// wallet, so the file holds exactly one key rather than a mnemonic.
func LoadECDSAKeyFile(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		return nil, config.ErrKeyFileNotSet
	}

	slog.Info("reading signer key from file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file %q: %w", path, err)
	}

	hexKey := strings.TrimSpace(string(data))
	hexKey = strings.TrimPrefix(hexKey, "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("%w: key file %q is empty", config.ErrKeyDerivation, path)
	}

	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: key file %q is not valid hex: %s", config.ErrKeyDerivation, path, err)
	}

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", config.ErrKeyDerivation, err)
	}

	slog.Info("signer key loaded", "address", crypto.PubkeyToAddress(key.PublicKey).Hex())
	return key, nil
}

// LoadBTCKeyFile reads a hex-encoded secp256k1 private key from path, the
// BTC vault's master key used for Taproot key-path signing (spec §4.9).
// Same file format as LoadECDSAKeyFile, decoded into the btcec curve type
// txscript's Taproot helpers expect.
func LoadBTCKeyFile(path string) (*btcec.PrivateKey, error) {
	if path == "" {
		return nil, config.ErrKeyFileNotSet
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file %q: %w", path, err)
	}

	hexKey := strings.TrimSpace(string(data))
	hexKey = strings.TrimPrefix(hexKey, "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("%w: key file %q is empty", config.ErrKeyDerivation, path)
	}

	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: key file %q is not valid hex: %s", config.ErrKeyDerivation, path, err)
	}

	priv, _ := btcec.PrivKeyFromBytes(raw)
	slog.Info("BTC signer key loaded")
	return priv, nil
}
