package raydium

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/main/pairs", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"ammId":"amm1","baseMint":"SOL","quoteMint":"USDC","baseReserve":"1200.5","quoteReserve":180000},
			{"id":"id2","baseMint":"RAY","quoteMint":"USDC"},
			{"baseMint":"X","quoteMint":"Y"},
			{"id":"bad","baseMint":"A","quoteMint":"B","baseReserve":"abc"},
			42
		]`))
	}))
	defer srv.Close()

	src := New(srv.URL+"/v2/", DefaultFee, 0, srv.Client())
	pools, err := src.FetchPools(context.Background())
	require.NoError(t, err)
	require.Len(t, pools, 2)

	assert.Equal(t, "amm1", pools[0].ID)
	assert.InDelta(t, 1200.5, pools[0].ReserveA, 1e-9)
	assert.InDelta(t, 180000, pools[0].ReserveB, 1e-9)
	assert.InDelta(t, DefaultFee, pools[0].FeeRate, 1e-12)

	assert.Equal(t, "id2", pools[1].ID)
	assert.InDelta(t, DefaultReserve, pools[1].ReserveA, 1e-9)
}

func TestFetchPoolsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, DefaultFee, 0, srv.Client()).FetchPools(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestFetchPoolsMalformedDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, DefaultFee, 0, srv.Client()).FetchPools(context.Background())
	assert.Error(t, err)
}
