package deriver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// a valid compressed secp256k1 pubkey (generator point G).
const testMasterPubKey = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func TestBTC_Derive_Deterministic(t *testing.T) {
	d, err := NewBTC(testMasterPubKey, "testnet")
	require.NoError(t, err)

	a1, err := d.Derive(7)
	require.NoError(t, err)
	a2, err := d.Derive(7)
	require.NoError(t, err)

	require.Equal(t, a1.EncodeAddress(), a2.EncodeAddress())
}

func TestBTC_Derive_DistinctUsers(t *testing.T) {
	d, err := NewBTC(testMasterPubKey, "testnet")
	require.NoError(t, err)

	a1, err := d.Derive(1)
	require.NoError(t, err)
	a2, err := d.Derive(2)
	require.NoError(t, err)

	require.NotEqual(t, a1.EncodeAddress(), a2.EncodeAddress())
}

func TestBTC_Derive_NetworkSelectsPrefix(t *testing.T) {
	mainnet, err := NewBTC(testMasterPubKey, "mainnet")
	require.NoError(t, err)
	testnet, err := NewBTC(testMasterPubKey, "testnet")
	require.NoError(t, err)

	mainAddr, err := mainnet.Derive(1)
	require.NoError(t, err)
	testAddr, err := testnet.Derive(1)
	require.NoError(t, err)

	require.NotEqual(t, mainAddr.EncodeAddress(), testAddr.EncodeAddress())
}

func TestNewBTC_InvalidHex(t *testing.T) {
	_, err := NewBTC("not-hex", "testnet")
	require.Error(t, err)
}
