package config

import "time"

// Observer
const (
	DefaultEVMBatchBlockSize = 25 // 20-30 per spec §2
	DefaultBTCBatchBlockSize = 1
	DefaultObserverDelay     = 12 * time.Second
	MaxDelayPerBlockBatch    = 20 * time.Second
	ObserverFanOut           = 8
	ObserverRetryBackoff     = 60 * time.Second
	NewAddressBacklogLimit   = 1_000 // bounded work per Observer iteration, spec §4.4 step 3
)

// Finalization
const (
	DefaultEVMFinalizeBlockCount = 12
	DefaultBTCFinalizeBlockCount = 6
	FinalizerSweepInterval       = 30 * time.Second
)

// VaultDepositor
const (
	WithdrawBatchSize      = 20
	VaultDeployGasLimit    = 300_000
	VaultSweepGasLimit     = 150_000
	ReceiptWaitTimeout     = 2 * time.Minute
	ReceiptPollInterval    = 5 * time.Second
)

// WithdrawCoordinator
const (
	WithdrawPollInterval    = 10 * time.Second
	SigningAggregatorNonces = 1 // k=1 per withdraw, spec §4.7
	ShieldSigDomain         = "zexbridge-shield-v1"
	WithdrawGasLimit        = 200_000
)

// BTC fee / UTXO selection (spec §4.8)
const (
	BTCDefaultFeeRateSatPerVByte = 10
	BTCMinFeeRateSatPerVByte     = 1
	BTCInputSigPaddingBytes      = 30 // overestimate per input, spec §4.8
	BTCTxOverheadWU              = 42 // version + locktime + segwit marker/flag, approximate
	BTCP2TROutputWU              = 43 * 4
	BTCP2TRInputWitWU            = 66 + 16 // schnorr sig + witness count/stack overhead
	BTCP2TRInputNonWitWU         = 41 * 4
)

// Taproot (BIP-341, spec §4.2/§4.9)
const (
	TapTweakTag = "TapTweak"
)

// EVM gas pricing (vault sweep/deploy and withdraw broadcast)
const (
	EVMGasPriceBufferNumerator   = 120 // 20% headroom over SuggestGasPrice, teacher's BSC buffer idiom
	EVMGasPriceBufferDenominator = 100
)

// Exchange / signing aggregator HTTP clients
const (
	ExchangeRequestTimeout   = 15 * time.Second
	SigningAggRequestTimeout = 20 * time.Second
	ExchangeRateLimitRPS     = 10
	SigningAggRateLimitRPS   = 5
	ExchangeWithdrawPageSize = 100
)

// Resilience
const (
	CircuitClosed             = "closed"
	CircuitOpen               = "open"
	CircuitHalfOpen           = "half-open"
	CircuitBreakerHalfOpenMax = 1
	DefaultCircuitThreshold   = 5
	DefaultCircuitCooldown    = 30 * time.Second
)

// Logging
const (
	LogDir         = "./logs"
	LogFilePattern = "zexbridge-%s-%s.log" // date, level
	LogMaxAgeDays  = 30
)

// Process lifecycle
const (
	ShutdownTimeout = 10 * time.Second
)
