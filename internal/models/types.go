// Package models holds the shared entity types persisted by Store and
// passed between ChainClient, Observer, Finalizer, VaultDepositor and
// WithdrawCoordinator.
package models

import "math/big"

// ChainTag identifies one configured chain, e.g. "ETH", "OPT", "BTC".
type ChainTag string

// ChainKind discriminates the two variant families ChainClient, AddressDeriver
// and WithdrawCoordinator dispatch on.
type ChainKind string

const (
	ChainKindEVM ChainKind = "EVM"
	ChainKindBTC ChainKind = "BTC"
)

// Network selects mainnet or testnet parameters (BTC chaincfg.Params, vault
// addresses, …), loaded once at boot.
type Network string

const (
	NetworkProd Network = "PROD"
	NetworkDev  Network = "DEV"
)

// NativeTokenSentinel represents a chain's native asset (ETH/BNB/…) inside
// Transfer/WithdrawRequest token fields.
const NativeTokenSentinel = "0x0000000000000000000000000000000000000000"

// TransferStatus is the UserTransfer lifecycle state (spec §4.5).
type TransferStatus string

const (
	StatusPending    TransferStatus = "PENDING"
	StatusFinalized  TransferStatus = "FINALIZED"
	StatusReorg      TransferStatus = "REORG"
	StatusVerified   TransferStatus = "VERIFIED"
	StatusSuccessful TransferStatus = "SUCCESSFUL"
	StatusRejected   TransferStatus = "REJECTED"
)

// WithdrawStatus is the WithdrawRequest lifecycle state (spec §4.7).
type WithdrawStatus string

const (
	WithdrawPending    WithdrawStatus = "PENDING"
	WithdrawProcessing WithdrawStatus = "PROCESSING"
	WithdrawSuccessful WithdrawStatus = "SUCCESSFUL"
	WithdrawRejected   WithdrawStatus = "REJECTED"
)

// UTXOStatus tracks whether a BTC output has been assigned to a withdraw.
type UTXOStatus string

const (
	UTXOUnspent UTXOStatus = "UNSPENT"
	UTXOSpend   UTXOStatus = "SPEND"
)

// UserAddress is a deterministically-derived per-user deposit address.
// (UserID, ChainTag) and (Address, ChainTag) are each unique, enforced by
// Store indexes rather than by this type.
type UserAddress struct {
	UserID   uint64   `bson:"userId"`
	Address  string   `bson:"address"`
	ChainTag ChainTag `bson:"chainTag"`
	IsActive bool     `bson:"isActive"`
}

// RawTransfer is what ChainClient.ExtractTransfers yields before it is
// matched against the tracked-address set and enriched into a UserTransfer.
type RawTransfer struct {
	TxHash      string
	BlockNumber uint64
	ChainTag    ChainTag
	To          string
	Token       string
	Value       *big.Int
	// Index disambiguates multiple transfers within one tx (BTC vout index;
	// log index for EVM ERC-20 transfers; 0 for EVM native transfers).
	Index uint32
}

// UserTransfer is a RawTransfer once matched to a tracked address, carrying
// the deposit through the finalization state machine. (TxHash, ChainTag,
// Index) is unique.
type UserTransfer struct {
	TxHash      string         `bson:"txHash"`
	BlockNumber uint64         `bson:"blockNumber"`
	ChainTag    ChainTag       `bson:"chainTag"`
	Index       uint32         `bson:"index"`
	To          string         `bson:"to"`
	Token       string         `bson:"token"`
	ValueStr    string         `bson:"value"`
	UserID      uint64         `bson:"userId"`
	Decimals    int            `bson:"decimals"`
	Status      TransferStatus `bson:"status"`
}

// Value parses the stored base-units string into a big.Int. Returns nil on
// malformed data, which callers should treat as a Schema error.
func (u UserTransfer) Value() *big.Int {
	v, ok := new(big.Int).SetString(u.ValueStr, 10)
	if !ok {
		return nil
	}
	return v
}

// NewUserTransfer builds a PENDING UserTransfer from a matched RawTransfer.
func NewUserTransfer(rt RawTransfer, userID uint64, decimals int) UserTransfer {
	value := rt.Value
	if value == nil {
		value = big.NewInt(0)
	}
	return UserTransfer{
		TxHash:      rt.TxHash,
		BlockNumber: rt.BlockNumber,
		ChainTag:    rt.ChainTag,
		Index:       rt.Index,
		To:          rt.To,
		Token:       rt.Token,
		ValueStr:    value.String(),
		UserID:      userID,
		Decimals:    decimals,
		Status:      StatusPending,
	}
}

// ChainCursor is the monotonic last-observed-block marker per chain.
type ChainCursor struct {
	ChainTag          ChainTag `bson:"chainTag"`
	LastObservedBlock uint64   `bson:"lastObservedBlock"`
}

// Token caches a single (chain, token address) decimals lookup.
type Token struct {
	ChainTag ChainTag `bson:"chainTag"`
	Address  string   `bson:"address"`
	Decimals int      `bson:"decimals"`
}

// WithdrawRequest is pulled from the exchange and advanced by
// WithdrawCoordinator. TokenAddress is EVM-only; the BTC path uses Amount
// (satoshis) directly and ignores it. (Nonce, ChainTag) is unique.
type WithdrawRequest struct {
	Nonce        uint64         `bson:"nonce"`
	ChainTag     ChainTag       `bson:"chainTag"`
	UserID       uint64         `bson:"userId"`
	Recipient    string         `bson:"recipient"`
	TokenAddress string         `bson:"tokenAddress,omitempty"`
	AmountStr    string         `bson:"amount"`
	Status       WithdrawStatus `bson:"status"`
	TxHash       string         `bson:"txHash,omitempty"`

	// BTC extension (spec §3).
	UTXOs      []UTXO `bson:"utxos,omitempty"`
	SatPerByte int64  `bson:"satPerByte,omitempty"`
}

// Amount parses AmountStr into a big.Int.
func (w WithdrawRequest) Amount() *big.Int {
	v, ok := new(big.Int).SetString(w.AmountStr, 10)
	if !ok {
		return nil
	}
	return v
}

// IsTerminal reports whether Status can no longer change.
func (w WithdrawRequest) IsTerminal() bool {
	return w.Status == WithdrawSuccessful || w.Status == WithdrawRejected
}

// UTXO is a confirmed BTC output observed on a tracked address.
// (TxHash, Index) is unique; Amount must be > 0.
type UTXO struct {
	TxHash  string     `bson:"txHash"`
	Index   uint32     `bson:"index"`
	Address string     `bson:"address"`
	Amount  int64      `bson:"amount"` // satoshis
	Salt    uint64     `bson:"salt"`   // user_id the address was derived from
	Status  UTXOStatus `bson:"status"`
}

// FeeEstimate is the result of ChainClient.FeeEstimate: sat/vByte for BTC,
// wei gas price for EVM.
type FeeEstimate struct {
	ChainTag ChainTag
	Rate     *big.Int
}

// SignRequestResult is the aggregate response from the external signing
// party (spec §4.7, §6).
type SignRequestResult struct {
	Result      string
	MessageHash []byte
	Signature   []byte
	Nonce       uint64
}
