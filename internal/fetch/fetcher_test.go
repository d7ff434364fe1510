package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCollyFetcher_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("<html><body>artikel</body></html>"))
		case "/slow":
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		default:
			http.Error(w, "nope", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		f := NewCollyFetcher(Config{UserAgent: "presscrawl-test", Timeout: 2 * time.Second})
		body, err := f.Fetch(context.Background(), srv.URL+"/ok")
		require.NoError(t, err)
		require.Contains(t, string(body), "artikel")
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		f := NewCollyFetcher(Config{Timeout: 2 * time.Second})
		_, err := f.Fetch(context.Background(), srv.URL+"/missing")
		require.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		f := NewCollyFetcher(Config{Timeout: 50 * time.Millisecond})
		_, err := f.Fetch(context.Background(), srv.URL+"/slow")
		require.Error(t, err)
	})

	t.Run("repeat fetch of same url", func(t *testing.T) {
		t.Parallel()
		f := NewCollyFetcher(Config{Timeout: 2 * time.Second})
		for range 2 {
			body, err := f.Fetch(context.Background(), srv.URL+"/ok")
			require.NoError(t, err)
			require.NotEmpty(t, body)
		}
	})
}
