package signingagg

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestNonces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req nonceRequest
		json.NewDecoder(r.Body).Decode(&req)
		require.Equal(t, "validators-eth", req.Party)
		require.Equal(t, 1, req.K)
		json.NewEncoder(w).Encode(nonceResponse{Nonces: []string{"n1"}})
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	nonces, err := c.RequestNonces(t.Context(), "validators-eth", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"n1"}, nonces)
}

func TestRequestSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req signRequest
		json.NewDecoder(r.Body).Decode(&req)
		require.NotEmpty(t, req.CorrelationID)
		json.NewEncoder(w).Encode(signResponse{Result: "ok", MessageHash: []byte{1, 2}, Signature: []byte{3, 4}, Nonce: 5})
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	result, err := c.RequestSignature(t.Context(), "dkg-1", []string{"n1"}, []byte("payload"), "validators-eth")
	require.NoError(t, err)
	require.Equal(t, "ok", result.Result)
	require.Equal(t, uint64(5), result.Nonce)
}

func TestLoadParties(t *testing.T) {
	raw := `{"validators-eth": {"name": "validators-eth", "dkgKey": "dkg-1", "validators": ["v1","v2","v3"], "threshold": 2}}`
	parties, err := LoadParties(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "dkg-1", parties["validators-eth"].DKGKey)
}
