// Package evmabi hand-encodes the small, fixed set of contract calls the
// bridge makes (factory deploy, vault transfer/withdraw), the same manual
// selector + left-pad style the teacher uses for BEP-20 calls rather than
// pulling in a full ABI/binding generator for four call shapes.
package evmabi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Selector returns the 4-byte function selector for a Solidity signature
// such as "transfer(address,uint256)".
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

func padAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

func padUint256(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func padBytes32(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

var (
	deploySelector             = Selector("deploy(uint256)")
	transferNativeSelector     = Selector("transferNativeToken(uint256)")
	transferERC20Selector      = Selector("transferERC20(address,uint256)")
	withdrawSelector           = Selector("withdraw(address,uint256,address,uint256,bytes,bytes)")
)

// EncodeDeploy encodes factory.deploy(salt) where salt is the user_id
// (spec §4.6 CONTRACT_DEPLOY).
func EncodeDeploy(salt uint64) []byte {
	data := make([]byte, 0, 36)
	data = append(data, deploySelector...)
	data = append(data, padUint256(new(big.Int).SetUint64(salt))...)
	return data
}

// EncodeTransferNativeToken encodes user_deposit.transferNativeToken(value)
// (spec §4.6 TOKEN_TRANSFER, native sentinel).
func EncodeTransferNativeToken(value *big.Int) []byte {
	data := make([]byte, 0, 36)
	data = append(data, transferNativeSelector...)
	data = append(data, padUint256(value)...)
	return data
}

// EncodeTransferERC20 encodes user_deposit.transferERC20(token, value)
// (spec §4.6 TOKEN_TRANSFER, ERC-20 path).
func EncodeTransferERC20(token common.Address, value *big.Int) []byte {
	data := make([]byte, 0, 68)
	data = append(data, transferERC20Selector...)
	data = append(data, padAddress(token)...)
	data = append(data, padUint256(value)...)
	return data
}

// EncodeWithdraw encodes the vault withdraw(token, amount, recipient, nonce,
// aggregateSignature, shieldSignature) call (spec §4.7 step 5). Signature
// bytes are ABI-encoded as dynamic `bytes` parameters with a static head
// (offset pointers) followed by the tail (length-prefixed payloads),
// matching standard Solidity ABI encoding for trailing dynamic args.
func EncodeWithdraw(token common.Address, amount *big.Int, recipient common.Address, nonce uint64, aggSig, shieldSig []byte) []byte {
	const headWords = 6 // token, amount, recipient, nonce, offset(aggSig), offset(shieldSig)
	aggSigOffset := int64(headWords * 32)
	aggSigTailLen := int64(32 + len(aggSig) + pad32Len(len(aggSig)))
	shieldSigOffset := aggSigOffset + aggSigTailLen

	data := make([]byte, 0, 256)
	data = append(data, withdrawSelector...)
	data = append(data, padAddress(token)...)
	data = append(data, padUint256(amount)...)
	data = append(data, padAddress(recipient)...)
	data = append(data, padUint256(new(big.Int).SetUint64(nonce))...)
	data = append(data, padUint256(big.NewInt(aggSigOffset))...)
	data = append(data, padUint256(big.NewInt(shieldSigOffset))...)
	data = append(data, encodeDynamicBytes(aggSig)...)
	data = append(data, encodeDynamicBytes(shieldSig)...)
	return data
}

func pad32Len(n int) int {
	rem := n % 32
	if rem == 0 {
		return 0
	}
	return 32 - rem
}

func encodeDynamicBytes(b []byte) []byte {
	out := padUint256(new(big.Int).SetUint64(uint64(len(b))))
	padded := make([]byte, len(b)+pad32Len(len(b)))
	copy(padded, b)
	return append(out, padded...)
}

var _ = padBytes32 // reserved for fixed bytes32 params if the vault ABI grows one

// withdrawTypeHash is keccak256("Withdraw(address token,uint256 amount,address recipient,uint256 nonce)"),
// the EIP-712 struct type hash for a withdraw request.
var withdrawTypeHash = crypto.Keccak256([]byte("Withdraw(address token,uint256 amount,address recipient,uint256 nonce)"))

// HashWithdraw computes the canonical withdraw hash both the validators and
// this node must agree on before a signature is trusted (spec §4.7 step 4):
// keccak256 over the EIP-712 struct hash of (token, amount, recipient, nonce).
func HashWithdraw(token common.Address, amount *big.Int, recipient common.Address, nonce uint64) []byte {
	data := make([]byte, 0, 160)
	data = append(data, withdrawTypeHash...)
	data = append(data, padAddress(token)...)
	data = append(data, padUint256(amount)...)
	data = append(data, padAddress(recipient)...)
	data = append(data, padUint256(new(big.Int).SetUint64(nonce))...)
	return crypto.Keccak256(data)
}
