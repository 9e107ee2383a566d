package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/medprice"
	"github.com/fwojciec/medprice/mock"
	mpslog "github.com/fwojciec/medprice/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggingSearchProvider_Search(t *testing.T) {
	t.Parallel()

	t.Run("logs counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.SearchProvider{
			SearchFn: func(context.Context, string, int) ([]*medprice.Candidate, error) {
				return []*medprice.Candidate{
					{URL: "https://a", Record: &medprice.Record{Name: "Dolo", Price: 30}},
					{URL: "https://b"},
				}, nil
			},
		}

		p := mpslog.NewLoggingSearchProvider(inner, newLogger(&buf))
		got, err := p.Search(context.Background(), "dolo 650", 5)

		require.NoError(t, err)
		assert.Len(t, got, 2)
		output := buf.String()
		assert.Contains(t, output, "msg=search")
		assert.Contains(t, output, `query="dolo 650"`)
		assert.Contains(t, output, "count=2")
		assert.Contains(t, output, "inline=1")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.SearchProvider{
			SearchFn: func(context.Context, string, int) ([]*medprice.Candidate, error) {
				return nil, errors.New("quota exceeded")
			},
		}

		p := mpslog.NewLoggingSearchProvider(inner, newLogger(&buf))
		_, err := p.Search(context.Background(), "q", 5)

		require.Error(t, err)
		assert.Contains(t, buf.String(), `err="quota exceeded"`)
		assert.Contains(t, buf.String(), "count=0")
	})
}

func TestLoggingScraper_Scrape(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := &mock.Scraper{
		ScrapeFn: func(context.Context, string) (*medprice.Record, error) {
			return &medprice.Record{Name: "Dolo 650", Price: 30.5}, nil
		},
	}

	s := mpslog.NewLoggingScraper(inner, newLogger(&buf))
	rec, err := s.Scrape(context.Background(), "https://www.1mg.com/drugs/dolo")

	require.NoError(t, err)
	assert.Equal(t, "Dolo 650", rec.Name)
	output := buf.String()
	assert.Contains(t, output, "msg=scrape")
	assert.Contains(t, output, "url=https://www.1mg.com/drugs/dolo")
	assert.Contains(t, output, `record="Dolo 650 @ 30.50"`)
}

func TestLoggingScraper_NilRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := &mock.Scraper{
		ScrapeFn: func(context.Context, string) (*medprice.Record, error) { return nil, nil },
	}

	_, err := mpslog.NewLoggingScraper(inner, newLogger(&buf)).Scrape(context.Background(), "https://x")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "record=<nil>")
}

func TestLoggingFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("logs fetch with bytes and duration", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) (string, error) {
				return "<html>content</html>", nil
			},
		}

		fetcher := mpslog.NewLoggingFetcher(inner, newLogger(&buf))
		html, err := fetcher.Fetch(context.Background(), "https://example.com/p")

		require.NoError(t, err)
		assert.Equal(t, "<html>content</html>", html)
		output := buf.String()
		assert.Contains(t, output, "fetch")
		assert.Contains(t, output, "url=https://example.com/p")
		assert.Contains(t, output, "bytes=20")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs error on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) (string, error) {
				return "", errors.New("network error")
			},
		}

		fetcher := mpslog.NewLoggingFetcher(inner, newLogger(&buf))
		_, err := fetcher.Fetch(context.Background(), "https://example.com/p")

		require.Error(t, err)
		assert.Contains(t, buf.String(), "err=\"network error\"")
	})

	t.Run("silent at info level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) (string, error) { return "x", nil },
		}

		fetcher := mpslog.NewLoggingFetcher(inner, slog.New(slog.NewTextHandler(&buf, nil)))
		_, err := fetcher.Fetch(context.Background(), "https://example.com/p")

		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})
}

func TestLoggingFetcher_Close(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	closeCalled := false
	inner := &mock.Fetcher{
		CloseFn: func() error {
			closeCalled = true
			return nil
		},
	}

	err := mpslog.NewLoggingFetcher(inner, newLogger(&buf)).Close()

	require.NoError(t, err)
	assert.True(t, closeCalled)
}

func TestLoggingRecordExtractor_ExtractRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := &mock.RecordExtractor{
		ExtractRecordFn: func(context.Context, string, string) (*medprice.Record, error) {
			return &medprice.Record{Name: "Crocin"}, nil
		},
	}

	e := mpslog.NewLoggingRecordExtractor(inner, "gemini", newLogger(&buf))
	rec, err := e.ExtractRecord(context.Background(), "https://x", "# page")

	require.NoError(t, err)
	assert.Equal(t, "Crocin", rec.Name)
	output := buf.String()
	assert.Contains(t, output, "extractor=gemini")
	assert.Contains(t, output, "bytes=6")
	assert.Contains(t, output, "valid=false")
}
