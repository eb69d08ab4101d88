package deriver

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// BTC derives per-user Taproot (P2TR) deposit addresses by tweaking a
// configured master x-only public key with a tagged hash over the user's
// salt (BIP-341 key-path tweak, spec §4.2). Pure: no I/O, no state.
type BTC struct {
	MasterPubKey *btcec.PublicKey
	Params       *chaincfg.Params
}

// NewBTC constructs a BTC deriver from a hex-encoded compressed or x-only
// master public key and a network mode ("mainnet" or "testnet").
func NewBTC(masterPubKeyHex, networkMode string) (*BTC, error) {
	raw, err := hex.DecodeString(masterPubKeyHex)
	if err != nil {
		return nil, fmt.Errorf("deriver: master pubkey is not valid hex: %w", err)
	}

	pub, err := btcec.ParsePubKey(normalizeToCompressed(raw))
	if err != nil {
		return nil, fmt.Errorf("deriver: invalid master pubkey: %w", err)
	}

	return &BTC{
		MasterPubKey: pub,
		Params:       NetworkParams(networkMode),
	}, nil
}

// NetworkParams returns the chaincfg.Params for the given network mode.
func NetworkParams(networkMode string) *chaincfg.Params {
	if networkMode == "testnet" {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// Derive computes the tweaked P2TR address for userID. s is the big-endian
// 8-byte encoding of user_id; t = tagged_hash("TapTweak", P ‖ s); the
// output key is P tweaked by scalar t with even-Y normalization, exactly as
// a key-path-only (script-tree-less) BIP-341 output.
func (b *BTC) Derive(userID uint64) (btcutil.Address, error) {
	var salt [8]byte
	binary.BigEndian.PutUint64(salt[:], userID)

	outputKey := txscript.ComputeTaprootOutputKey(b.MasterPubKey, salt[:])

	addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), b.Params)
	if err != nil {
		return nil, fmt.Errorf("deriver: build taproot address: %w", err)
	}
	return addr, nil
}

// DeriveAddress is Derive's string-encoded form, satisfying
// addresssync.Deriver so Observer's address backlog sync can treat EVM and
// BTC chains uniformly.
func (b *BTC) DeriveAddress(userID uint64) (string, error) {
	addr, err := b.Derive(userID)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// normalizeToCompressed accepts either a 32-byte x-only key (assumed
// even-Y, per BIP-340) or a 33-byte compressed key and returns a
// 33-byte compressed encoding btcec.ParsePubKey accepts.
func normalizeToCompressed(raw []byte) []byte {
	if len(raw) == 32 {
		out := make([]byte, 33)
		out[0] = 0x02
		copy(out[1:], raw)
		return out
	}
	return raw
}
