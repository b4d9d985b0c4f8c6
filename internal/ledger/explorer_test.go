package ledger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExplorer(t *testing.T, handler http.HandlerFunc) *Explorer {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	endpoint, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return NewExplorer(endpoint, 5*time.Second)
}

func TestExplorerFetchTransactions(t *testing.T) {
	e := testExplorer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/addr/1NZUB9DXeeSzvcfRvaRSnmgAm3yP1RRADT/txs", r.URL.Path)
		w.Write([]byte(`[
			{"txid": "tx-1", "amount": 100000, "confirmations": 3, "blockheight": 700001},
			{"txid": "tx-2", "amount": 50000, "confirmations": 0, "blockheight": -1}
		]`))
	})

	txs, err := e.FetchTransactions(context.Background(), "1NZUB9DXeeSzvcfRvaRSnmgAm3yP1RRADT")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, Transaction{TID: "tx-1", Amount: 100000, Confirmations: 3, BlockHeight: 700001}, txs[0])
	assert.Equal(t, Transaction{TID: "tx-2", Amount: 50000, BlockHeight: -1}, txs[1])
}

func TestExplorerHeight(t *testing.T) {
	e := testExplorer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/status", r.URL.Path)
		w.Write([]byte(`{"height": 700123}`))
	})

	height, err := e.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(700123), height)
}

func TestExplorerErrorStatus(t *testing.T) {
	e := testExplorer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := e.FetchTransactions(context.Background(), "addr")
	assert.Error(t, err)
	_, err = e.Height(context.Background())
	assert.Error(t, err)
}

func TestAddressService(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/addresses/42", r.URL.Path)
			w.Write([]byte(`{"address": "1NZUB9DXeeSzvcfRvaRSnmgAm3yP1RRADT"}`))
		}))
		t.Cleanup(srv.Close)
		endpoint, err := url.Parse(srv.URL)
		require.NoError(t, err)

		address, err := NewAddressService(endpoint, 5*time.Second).NewAddress(42)
		require.NoError(t, err)
		assert.Equal(t, "1NZUB9DXeeSzvcfRvaRSnmgAm3yP1RRADT", address)
	})

	t.Run("empty address rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		t.Cleanup(srv.Close)
		endpoint, err := url.Parse(srv.URL)
		require.NoError(t, err)

		_, err = NewAddressService(endpoint, 5*time.Second).NewAddress(1)
		assert.Error(t, err)
	})

	t.Run("error status rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)
		endpoint, err := url.Parse(srv.URL)
		require.NoError(t, err)

		_, err = NewAddressService(endpoint, 5*time.Second).NewAddress(1)
		assert.Error(t, err)
	})
}
