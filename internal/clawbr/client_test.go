package clawbr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listingServer serves n completed debates named d0..d(n-1) through /debates.
func listingServer(t *testing.T, n int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/debates" {
			t.Errorf("Expected path /debates, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		assert.Equal(t, "completed", q.Get("status"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		debates := []map[string]string{}
		for i := offset; i < n && i < offset+limit; i++ {
			debates = append(debates, map[string]string{"slug": fmt.Sprintf("d%d", i)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"debates":    debates,
			"pagination": map[string]int{"limit": limit, "offset": offset, "total": n},
		})
	}))
}

func TestFetchAllCompleted_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		wantCalls int32
	}{
		{"empty", 0, 3, 1},
		{"single short page", 2, 3, 1},
		{"exact multiple needs trailing empty page", 6, 3, 3},
		{"several pages", 7, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := listingServer(t, tt.total, &calls)
			defer srv.Close()

			c := NewClient(srv.URL, ClientConfig{PageSize: tt.pageSize, Timeout: 5 * time.Second})
			got, err := c.FetchAllCompleted(context.Background())
			require.NoError(t, err)

			require.Len(t, got, tt.total)
			for i, s := range got {
				assert.Equal(t, fmt.Sprintf("d%d", i), s.Key())
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestFetchAllCompleted_ErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientConfig{})
	_, err := c.FetchAllCompleted(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "boom", se.Body)
}

func TestFetchAllCompleted_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientConfig{})
	_, err := c.FetchAllCompleted(context.Background())
	assert.ErrorContains(t, err, "decode")
}

func TestFetchDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		switch r.URL.Path {
		case "/debates/is-go-fun":
			_, _ = w.Write([]byte(`{
				"slug": "is-go-fun",
				"category": "Tech",
				"votes": {
					"total": 3, "challenger": 2, "opponent": 1,
					"details": [
						{"voter": {"name": "ada"}, "side": "challenger"},
						{"voter": {"name": "bob"}, "side": "challenger"},
						{"voter": {"name": "cy"}, "side": "opponent"}
					]
				}
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", ClientConfig{})

	d, err := c.FetchDetail(context.Background(), "is-go-fun")
	require.NoError(t, err)
	assert.Equal(t, "Tech", d.CategoryName())
	assert.Equal(t, 3, d.Votes.Total)
	require.Len(t, d.Votes.Details, 3)
	assert.Equal(t, "cy", d.Votes.Details[2].VoterName())

	_, err = c.FetchDetail(context.Background(), "missing")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestFetchDetail_EscapesIdentifier(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"votes":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientConfig{})
	_, err := c.FetchDetail(context.Background(), "a/b c")
	require.NoError(t, err)
	assert.Equal(t, "/debates/a%2Fb%20c", gotPath)
}

func TestFetchDetail_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"votes":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchDetail(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
