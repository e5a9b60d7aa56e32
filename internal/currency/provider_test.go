package currency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zeroTime time.Time

func TestParseRates(t *testing.T) {
	body := []byte(`{"base":"CNY","rates":{"CNY":1,"USD":0.1389,"EUR":"n/a","JPY":20.91,"XXX":0}}`)

	rates, err := ParseRates(body, "")
	require.NoError(t, err)
	assert.Len(t, rates, 3)
	assert.InDelta(t, 0.1389, rates[USD], 1e-12)
	assert.InDelta(t, 20.91, rates[JPY], 1e-12)
}

func TestParseRates_Errors(t *testing.T) {
	_, err := ParseRates([]byte(`not json`), "rates")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseRates([]byte(`{"result":"error","error-type":"unsupported-code"}`), "rates")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseRates([]byte(`{"rates":{}}`), "rates")
	assert.ErrorIs(t, err, ErrNoRates)

	_, err = ParseRates([]byte(`{"data":{"rates":[1,2]}}`), "data.rates")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestHTTPFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"result":"success","rates":{"USD":0.14,"HKD":1.09}}`))
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.Client(), time.Second)
	rates, err := f.FetchRates(context.Background(), Provider{Name: "test", URL: server.URL})
	require.NoError(t, err)
	assert.InDelta(t, 1.09, rates[HKD], 1e-12)
}

func TestHTTPFetcher_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.Client(), time.Second)
	_, err := f.FetchRates(context.Background(), Provider{Name: "down", URL: server.URL})
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}
