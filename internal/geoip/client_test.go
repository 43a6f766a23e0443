package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newClient(endpoint string) *Client {
	return New(Params{
		Cfg: config.Config{GeoIP: config.GeoIPConfig{Endpoint: endpoint, Timeout: time.Second}},
		Log: zap.NewNop(),
	})
}

func TestSuggestCountry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/81.193.1.1/json/":
			_, _ = w.Write([]byte(`{"ip":"81.193.1.1","country_code":"pt","country_name":"Portugal"}`))
		case "/8.8.8.8/json/":
			_, _ = w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := newClient(srv.URL + "/")
	ctx := context.Background()

	code, ok := c.SuggestCountry(ctx, "81.193.1.1")
	assert.True(t, ok)
	assert.Equal(t, "PT", code)

	_, ok = c.SuggestCountry(ctx, "8.8.8.8")
	assert.False(t, ok)

	_, ok = c.SuggestCountry(ctx, "1.1.1.1")
	assert.False(t, ok)

	before := calls.Load()
	for _, ip := range []string{"", "not-an-ip", "127.0.0.1", "10.0.0.4"} {
		_, ok = c.SuggestCountry(ctx, ip)
		assert.False(t, ok, ip)
	}
	assert.Equal(t, before, calls.Load())
}

func TestSuggestCountryTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Params{
		Cfg: config.Config{GeoIP: config.GeoIPConfig{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}},
		Log: zap.NewNop(),
	})
	_, ok := c.SuggestCountry(context.Background(), "81.193.1.1")
	assert.False(t, ok)
}

func TestSuggestCountryDisabled(t *testing.T) {
	var c *Client
	_, ok := c.SuggestCountry(context.Background(), "81.193.1.1")
	assert.False(t, ok)

	_, ok = newClient("").SuggestCountry(context.Background(), "81.193.1.1")
	assert.False(t, ok)
}
