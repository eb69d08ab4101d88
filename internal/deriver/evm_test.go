package deriver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEVM_Derive_Deterministic(t *testing.T) {
	d, err := NewEVM("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	require.NoError(t, err)

	a1 := d.Derive(42)
	a2 := d.Derive(42)
	require.Equal(t, a1, a2, "derive(user_id) must be pure and deterministic")
}

func TestEVM_Derive_DistinctUsers(t *testing.T) {
	d, err := NewEVM("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	require.NoError(t, err)

	require.NotEqual(t, d.Derive(1), d.Derive(2))
}

func TestNewEVM_InvalidFactory(t *testing.T) {
	_, err := NewEVM("not-an-address", "0xbb")
	require.Error(t, err)
}

func TestUserIDToSalt_ZeroPadded(t *testing.T) {
	salt := userIDToSalt(42)
	require.Len(t, salt, 32)
	for i := 0; i < 24; i++ {
		require.Zero(t, salt[i])
	}
}
