package httputil_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/adapters/httputil"
)

func TestRetry(t *testing.T) {
	t.Run("stops on success", func(t *testing.T) {
		calls := 0
		err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			if calls < 2 {
				return &httputil.RetryableError{Err: errors.New("flaky")}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("permanent error", func(t *testing.T) {
		calls := 0
		err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			return errors.New("bad request")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := httputil.Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			return &httputil.RetryableError{Err: errors.New("down")}
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := httputil.Retry(ctx, 3, time.Hour, func() error {
			return &httputil.RetryableError{Err: errors.New("down")}
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_Get(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky":
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = io.WriteString(w, "ok")
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := httputil.NewClient(5*time.Second).WithRetry(3, time.Millisecond)

	var body string
	err := client.Get(context.Background(), srv.URL+"/flaky", func(r io.Reader) error {
		data, err := io.ReadAll(r)
		body = string(data)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int32(2), hits.Load())

	err = client.Get(context.Background(), srv.URL+"/missing", func(io.Reader) error { return nil })
	require.ErrorIs(t, err, httputil.ErrNotFound)

	err = client.Get(context.Background(), srv.URL+"/forbidden", func(io.Reader) error { return nil })
	require.ErrorIs(t, err, httputil.ErrNetwork)
	assert.NotErrorIs(t, err, httputil.ErrNotFound)
}
