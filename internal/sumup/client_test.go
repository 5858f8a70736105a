package sumup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brightonpier/sales-etl/internal/etl"
	"github.com/brightonpier/sales-etl/internal/retry"
)

func testWindow(t *testing.T) etl.Window {
	t.Helper()
	w, err := etl.NewWindow(
		time.Date(2023, 12, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return w
}

func newTestClient(url string, attempts int) *Client {
	return NewClient(Config{
		BaseURL: url,
		APIKey:  "test-token",
		Retry:   retry.Policy{MaxAttempts: attempts, Delay: time.Millisecond},
	})
}

func TestFetch_FollowsNextCursor(t *testing.T) {
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		switch pages.Add(1) {
		case 1:
			require.Equal(t, "2023-12-03", r.URL.Query().Get("from"))
			require.Equal(t, "2024-01-03", r.URL.Query().Get("to"))
			fmt.Fprint(w, `{
				"items": [
					{"id": "tx-1", "timestamp": "2023-12-04T10:00:00.000Z", "status": "SUCCESSFUL", "amount": 4.50},
					{"id": "tx-2", "timestamp": "2023-12-04T10:05:00.000Z", "status": "FAILED", "amount": 2.00}
				],
				"links": [{"rel": "next", "href": "oldest_time=2023-12-04T10%3A05%3A00&limit=10"}]
			}`)
		case 2:
			require.Equal(t, "2023-12-04T10:05:00", r.URL.Query().Get("oldest_time"))
			fmt.Fprint(w, `{"items": [{"id": "tx-3", "timestamp": "2023-12-05T09:00:00.000Z", "status": "SUCCESSFUL", "amount": 12.00}], "links": []}`)
		default:
			t.Error("unexpected extra page request")
		}
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL, 1).Fetch(context.Background(), testWindow(t))
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "tx-1", got[0].ID)
	require.Equal(t, "tx-3", got[2].ID)
	require.EqualValues(t, 2, pages.Load())
}

func TestFetch_EmptyItemsPageIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [], "links": []}`)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL, 1).Fetch(context.Background(), testWindow(t))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFetch_MissingItemsKeyFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"links": []}`)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL, 1).Fetch(context.Background(), testWindow(t))
	require.ErrorIs(t, err, etl.ErrProtocol)
	require.Empty(t, got)
}

func TestFetch_ServerErrorOnSecondPageFailsClosed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, `{
				"items": [{"id": "tx-1", "timestamp": "2023-12-04T10:00:00.000Z", "status": "SUCCESSFUL", "amount": 4.50}],
				"links": [{"rel": "next", "href": "oldest_time=x"}]
			}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL, 3).Fetch(context.Background(), testWindow(t))
	require.Error(t, err)
	// Partial results are surfaced alongside the error; the runner decides
	// what to do with them (it aborts).
	require.Len(t, got, 1)
	// Page 1 succeeded once, page 2 was retried to exhaustion.
	require.EqualValues(t, 4, calls.Load())
}

func TestFetch_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Fetch(context.Background(), testWindow(t))
	require.Error(t, err)
	require.False(t, errors.Is(err, etl.ErrProtocol))
	require.EqualValues(t, 1, calls.Load())
}
