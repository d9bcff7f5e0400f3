package brightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"startup-hunter-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_Unconfigured(t *testing.T) {
	c := NewClient(Config{}, logger.NewNopLogger())
	assert.False(t, c.Configured())

	res := c.Collect(context.Background(), "pets")
	require.True(t, res.IsFallback())
	require.Len(t, res.Value, 5)
	assert.Contains(t, res.Value[0]["title"], "pets")
}

func TestCollect_MergesSourcesAndDropsFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req serpRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "serp_api1", req.Zone)
		assert.Equal(t, "raw", req.Format)

		if strings.Contains(req.URL, "reddit") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var organic []map[string]string
		for i := 0; i < 12; i++ {
			organic = append(organic, map[string]string{"title": fmt.Sprintf("t%d", i), "link": "https://x", "snippet": "s"})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"organic": organic})
	}))
	defer srv.Close()

	c := NewClient(Config{Token: "tok", Endpoint: srv.URL, Timeout: 5 * time.Second}, logger.NewNopLogger())
	res := c.Collect(context.Background(), "pets")

	require.True(t, res.IsOk())
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Len(t, res.Value, 30)

	sources := map[interface{}]int{}
	for _, item := range res.Value {
		sources[item["source"]]++
		assert.Equal(t, "https://x", item["url"])
	}
	assert.Equal(t, 10, sources["Product Hunt"])
	assert.Equal(t, 0, sources["Reddit"])
}

func TestCollect_AllEmptyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Token: "tok", Endpoint: srv.URL}, logger.NewNopLogger())
	res := c.Collect(context.Background(), "fintech")
	require.True(t, res.IsFallback())
	assert.Equal(t, "no results from any source", res.Reason)
}

func TestCollect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(Config{Token: "tok", Endpoint: "http://127.0.0.1:1"}, logger.NewNopLogger())
	res := c.Collect(ctx, "pets")
	assert.True(t, res.IsErr())
}
