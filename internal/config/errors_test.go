package config

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors_WrapAndUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("chain OPT: %w", ErrWithdrawHashMismatch)

	if !errors.Is(wrapped, ErrWithdrawHashMismatch) {
		t.Error("expected errors.Is to find ErrWithdrawHashMismatch through wrapping")
	}
	if errors.Is(wrapped, ErrUTXOAlreadySpent) {
		t.Error("expected errors.Is to not match an unrelated sentinel")
	}
}

func TestSentinelErrors_DistinctKinds(t *testing.T) {
	kinds := []error{
		ErrProviderRateLimit,
		ErrProviderUnavailable,
		ErrMalformedPayload,
		ErrWithdrawHashMismatch,
		ErrUTXOAlreadySpent,
		ErrTxReverted,
		ErrSigningNotSuccessful,
		ErrUTXOsUnset,
		ErrInvalidConfig,
	}
	seen := make(map[string]bool, len(kinds))
	for _, err := range kinds {
		msg := err.Error()
		if seen[msg] {
			t.Fatalf("duplicate sentinel error message: %q", msg)
		}
		seen[msg] = true
	}
}

func TestSentinelErrors_MultiLayerWrap(t *testing.T) {
	err := fmt.Errorf("observer: %w", fmt.Errorf("cursor advance: %w", ErrCursorRegression))
	if !errors.Is(err, ErrCursorRegression) {
		t.Error("expected errors.Is to unwrap through multiple fmt.Errorf layers")
	}
}
