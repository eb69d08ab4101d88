package config

import "errors"

// Sentinel errors, grouped by error kind (spec §7). Callers wrap these with
// fmt.Errorf("...: %w", ...) rather than constructing ad-hoc error strings.
var (
	// Transient — retry with bounded delay, preserve state.
	ErrProviderRateLimit   = errors.New("provider rate limit exceeded")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrBlockNotFound       = errors.New("block not found")
	ErrReceiptTimeout      = errors.New("receipt polling timeout")

	// Schema — malformed payload, do not retry as-is.
	ErrMalformedPayload = errors.New("malformed payload")
	ErrMalformedValue   = errors.New("stored value is not a valid integer")

	// Consistency — terminal for the affected request.
	ErrWithdrawHashMismatch = errors.New("withdraw hash does not match validator message_hash")
	ErrUTXOAlreadySpent    = errors.New("UTXO already assigned to a withdraw")
	ErrDuplicateNonce      = errors.New("nonce already recorded for this chain")

	// Contract — EVM revert, decoded from ABI.
	ErrTxReverted        = errors.New("transaction reverted")
	ErrVaultCallReverted = errors.New("vault contract call reverted")

	// Validator — non-SUCCESSFUL aggregator response, retry next poll.
	ErrSigningNotSuccessful = errors.New("signing aggregator did not return SUCCESSFUL")
	ErrNonceRequestFailed   = errors.New("signing aggregator nonce request failed")

	// Assertion — invariant violation, treated as a bug; task sleeps and retries.
	ErrUTXOsUnset          = errors.New("BTC withdraw request missing selected UTXOs")
	ErrCursorRegression    = errors.New("observer cursor would regress")
	ErrPositionalMismatch  = errors.New("broadcast result count does not match request count")

	// Config / derivation.
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrKeyFileNotSet    = errors.New("private key file path not configured")
	ErrKeyDerivation    = errors.New("key derivation failed")
	ErrChainNotConfigured = errors.New("chain not configured")

	// BTC fee / selection.
	ErrInsufficientUTXO = errors.New("insufficient UTXO value to cover amount and fee")
	ErrDustOutput       = errors.New("output below dust threshold")
	ErrTxTooLarge       = errors.New("transaction exceeds maximum weight")

	// EVM gas / nonce.
	ErrInsufficientGas = errors.New("insufficient gas for transaction")
	ErrNonceTooLow     = errors.New("nonce too low")
)

// Error codes, surfaced in structured log events (spec §7: logs are the only
// operator-visible error surface).
const (
	ErrorProviderRateLimit   = "ERROR_PROVIDER_RATE_LIMIT"
	ErrorProviderUnavailable = "ERROR_PROVIDER_UNAVAILABLE"
	ErrorBlockNotFound       = "ERROR_BLOCK_NOT_FOUND"
	ErrorReceiptTimeout      = "ERROR_RECEIPT_TIMEOUT"
	ErrorMalformedPayload    = "ERROR_MALFORMED_PAYLOAD"
	ErrorWithdrawHashMismatch = "ERROR_WITHDRAW_HASH_MISMATCH"
	ErrorUTXOAlreadySpent    = "ERROR_UTXO_ALREADY_SPENT"
	ErrorDuplicateNonce      = "ERROR_DUPLICATE_NONCE"
	ErrorTxReverted          = "ERROR_TX_REVERTED"
	ErrorSigningNotSuccessful = "ERROR_SIGNING_NOT_SUCCESSFUL"
	ErrorUTXOsUnset          = "ERROR_UTXOS_UNSET"
	ErrorCursorRegression    = "ERROR_CURSOR_REGRESSION"
	ErrorInvalidConfig       = "ERROR_INVALID_CONFIG"
	ErrorKeyDerivation       = "ERROR_KEY_DERIVATION"
	ErrorInsufficientUTXO    = "ERROR_INSUFFICIENT_UTXO"
	ErrorDustOutput          = "ERROR_DUST_OUTPUT"
	ErrorTxTooLarge          = "ERROR_TX_TOO_LARGE"
	ErrorInsufficientGas     = "ERROR_INSUFFICIENT_GAS"
	ErrorNonceTooLow         = "ERROR_NONCE_TOO_LOW"
)
