package deriver

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EVM derives CREATE2 per-user deposit addresses from a configured factory
// and init-code hash. Pure: no I/O, no state.
type EVM struct {
	Factory      common.Address
	BytecodeHash common.Hash
}

// NewEVM constructs an EVM deriver from hex-encoded factory and bytecode hash
// strings as configured per chain.
func NewEVM(factoryHex, bytecodeHashHex string) (*EVM, error) {
	if !common.IsHexAddress(factoryHex) {
		return nil, fmt.Errorf("deriver: invalid factory address %q", factoryHex)
	}
	return &EVM{
		Factory:      common.HexToAddress(factoryHex),
		BytecodeHash: common.HexToHash(bytecodeHashHex),
	}, nil
}

// Derive computes the CREATE2 address for userID:
// keccak256(0xff ‖ factory ‖ zero-pad(salt,32) ‖ bytecode_hash)[-20:].
func (e *EVM) Derive(userID uint64) common.Address {
	salt := userIDToSalt(userID)

	buf := make([]byte, 0, 1+20+32+32)
	buf = append(buf, 0xff)
	buf = append(buf, e.Factory.Bytes()...)
	buf = append(buf, salt[:]...)
	buf = append(buf, e.BytecodeHash.Bytes()...)

	hash := crypto.Keccak256(buf)
	return common.BytesToAddress(hash[12:])
}

// DeriveAddress is Derive's string-encoded form, satisfying
// addresssync.Deriver so Observer's address backlog sync can treat EVM and
// BTC chains uniformly.
func (e *EVM) DeriveAddress(userID uint64) (string, error) {
	return strings.ToLower(e.Derive(userID).Hex()), nil
}

// userIDToSalt encodes user_id big-endian into the 32-byte CREATE2 salt,
// right-aligned with zero bytes on the left.
func userIDToSalt(userID uint64) [32]byte {
	var salt [32]byte
	big.NewInt(0).SetUint64(userID).FillBytes(salt[:])
	return salt
}
