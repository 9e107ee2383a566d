package firecrawl_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/medprice"
	"github.com/fwojciec/medprice/firecrawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Search(t *testing.T) {
	t.Parallel()

	t.Run("sends query with inline extraction and decodes records", func(t *testing.T) {
		t.Parallel()

		var gotBody map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/search", r.URL.Path)
			assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

			_, _ = w.Write([]byte(`{
				"success": true,
				"data": {"web": [
					{"url": "https://www.1mg.com/drugs/dolo-650", "title": "Dolo 650",
					 "json": {"brand_name": "Dolo 650", "price": "₹30.50", "manufacturer": "Micro Labs"}},
					{"metadata": {"sourceURL": "https://pharmeasy.in/dolo", "title": "Dolo"}, "json": null},
					{"title": "no url"}
				]}
			}`))
		}))
		defer server.Close()

		client := firecrawl.NewClient("fc-key", firecrawl.WithBaseURL(server.URL+"/"))

		candidates, err := client.Search(context.Background(), "dolo 650 medicine price India", 5)
		require.NoError(t, err)

		assert.Equal(t, "dolo 650 medicine price India", gotBody["query"])
		assert.InDelta(t, 5, gotBody["limit"], 0)
		formats := gotBody["scrapeOptions"].(map[string]any)["formats"].([]any)
		require.Len(t, formats, 1)
		assert.Equal(t, "json", formats[0].(map[string]any)["type"])

		require.Len(t, candidates, 2)
		assert.Equal(t, "https://www.1mg.com/drugs/dolo-650", candidates[0].URL)
		require.NotNil(t, candidates[0].Record)
		assert.InDelta(t, 30.5, candidates[0].Record.Price, 0.001)
		assert.Equal(t, "Micro Labs", candidates[0].Record.Manufacturer)

		assert.Equal(t, "https://pharmeasy.in/dolo", candidates[1].URL)
		assert.Equal(t, "Dolo", candidates[1].Title)
		assert.Nil(t, candidates[1].Record)
	})

	t.Run("unsuccessful response is an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": false, "error": "bad query"}`))
		}))
		defer server.Close()

		_, err := firecrawl.NewClient("k", firecrawl.WithBaseURL(server.URL)).Search(context.Background(), "q", 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad query")
	})

	t.Run("rate limiting is reported as unavailable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success": false, "error": "Rate limit exceeded"}`))
		}))
		defer server.Close()

		_, err := firecrawl.NewClient("k", firecrawl.WithBaseURL(server.URL)).Search(context.Background(), "q", 5)
		assert.Equal(t, medprice.EUNAVAILABLE, medprice.ErrorCode(err))
		assert.Contains(t, medprice.ErrorMessage(err), "Rate limit exceeded")
	})

	t.Run("client errors keep the status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("nope"))
		}))
		defer server.Close()

		_, err := firecrawl.NewClient("k", firecrawl.WithBaseURL(server.URL)).Search(context.Background(), "q", 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 400")
	})
}

func TestClient_Scrape(t *testing.T) {
	t.Parallel()

	t.Run("returns the extracted record", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/scrape", r.URL.Path)
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://pharmeasy.in/dolo", body["url"])

			_, _ = w.Write([]byte(`{"success": true, "data": {"json": {"name": "Dolo 650", "mrp": 31, "in_stock": "Out of stock"}}}`))
		}))
		defer server.Close()

		rec, err := firecrawl.NewClient("k", firecrawl.WithBaseURL(server.URL)).Scrape(context.Background(), "https://pharmeasy.in/dolo")
		require.NoError(t, err)

		require.NotNil(t, rec)
		assert.Equal(t, "Dolo 650", rec.Name)
		assert.InDelta(t, 31, rec.Price, 0.001)
		assert.False(t, rec.Available())
	})

	t.Run("page without extraction returns nil", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": true, "data": {"metadata": {}}}`))
		}))
		defer server.Close()

		rec, err := firecrawl.NewClient("k", firecrawl.WithBaseURL(server.URL)).Scrape(context.Background(), "https://example.com")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": true}`))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := firecrawl.NewClient("k", firecrawl.WithBaseURL(server.URL)).Scrape(ctx, "https://example.com")
		require.Error(t, err)
	})
}
