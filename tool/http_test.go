package tool

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	ai "github.com/bigduu/conductor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchWith(t *testing.T, reg Registration, url string) (string, error) {
	t.Helper()
	return reg.Handler(context.Background(), ai.ToolCall{
		ID:        "call-1",
		Name:      "http_fetch",
		Arguments: fmt.Sprintf(`{"url":%q}`, url),
	})
}

func TestHTTPFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprint(w, "response body")
		case "/fail":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	reg := HTTPFetch()
	assert.Equal(t, "http_fetch", reg.Tool.Name)
	assert.False(t, reg.Tool.RequiresApproval)

	t.Run("fetches body", func(t *testing.T) {
		out, err := fetchWith(t, reg, server.URL+"/ok")
		require.NoError(t, err)
		assert.Equal(t, "response body", out)
	})

	t.Run("reports error statuses", func(t *testing.T) {
		_, err := fetchWith(t, reg, server.URL+"/fail")
		assert.ErrorContains(t, err, "status 500")
	})

	t.Run("caps response size", func(t *testing.T) {
		big := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for i := 0; i < 100; i++ {
				fmt.Fprint(w, "0123456789")
			}
		}))
		defer big.Close()

		capped := HTTPFetch(WithMaxResponseSize(10))
		out, err := fetchWith(t, capped, big.URL)
		require.NoError(t, err)
		assert.Len(t, out, 10)
	})
}

func TestHTTPFetchHostFiltering(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	t.Run("blocked host rejected", func(t *testing.T) {
		reg := HTTPFetch(WithBlockedHosts("127.0.0.1"))
		_, err := fetchWith(t, reg, server.URL)
		assert.ErrorContains(t, err, "blocked")
	})

	t.Run("allow list enforced", func(t *testing.T) {
		reg := HTTPFetch(WithAllowedHosts("example.com"))
		_, err := fetchWith(t, reg, server.URL)
		assert.ErrorContains(t, err, "not in allowed list")
	})

	t.Run("allowed host passes", func(t *testing.T) {
		reg := HTTPFetch(WithAllowedHosts("127.0.0.1"))
		out, err := fetchWith(t, reg, server.URL)
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	})
}
