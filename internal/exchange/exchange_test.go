package exchange

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/models"
)

func TestLatestUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/latest-id", r.URL.Path)
		json.NewEncoder(w).Encode(42)
	}))
	defer srv.Close()

	c := New(srv.URL, "", srv.Client())
	id, err := c.LatestUserID(t.Context())
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)
}

func TestAllPendingWithdraws_PagesUntilShortPage(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		offset := r.URL.Query().Get("offset")
		if offset == "0" {
			full := make([]models.WithdrawRequest, config.ExchangeWithdrawPageSize)
			json.NewEncoder(w).Encode(full)
			return
		}
		json.NewEncoder(w).Encode([]models.WithdrawRequest{{Nonce: 1}})
	}))
	defer srv.Close()

	c := New(srv.URL, "key", srv.Client())
	all, err := c.AllPendingWithdraws(t.Context(), "ETH")
	require.NoError(t, err)
	require.Len(t, all, config.ExchangeWithdrawPageSize+1)
	require.Equal(t, 2, calls)
}

func TestUserAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/7/assets", r.URL.Path)
		json.NewEncoder(w).Encode([]Asset{{Token: "ETH", Balance: "1000"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "", srv.Client())
	assets, err := c.UserAssets(t.Context(), 7)
	require.NoError(t, err)
	require.Equal(t, "ETH", assets[0].Token)
}
