package retry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) RetryConfig {
	return RetryConfig{MaxRetries: retries, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestExecuteWithRetry_RecoversFromServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewNetworkRetrier(fastConfig(3)).WrapHTTPClient(server.Client())
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, strings.NewReader("payload"))
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestExecuteWithRetry_Exhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	r := NewNetworkRetrier(fastConfig(2))
	_, err := r.ExecuteWithRetry(context.Background(), func(ctx context.Context) (*http.Response, error) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		return server.Client().Do(req)
	})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, se.Error(), "slow down")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestExecuteWithRetry_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	r := NewNetworkRetrier(fastConfig(3))
	resp, err := r.ExecuteWithRetry(context.Background(), func(ctx context.Context) (*http.Response, error) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		return server.Client().Do(req)
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestExecuteWithRetry_PermanentError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := NewNetworkRetrier(fastConfig(3)).ExecuteWithRetry(context.Background(), func(context.Context) (*http.Response, error) {
		calls++
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestClassifyError(t *testing.T) {
	r := NewNetworkRetrier(DefaultRetryConfig())

	assert.Equal(t, ErrorTypeNetwork, r.classifyError(errors.New("dial tcp: connection refused"), nil))
	assert.Equal(t, ErrorTypePermanent, r.classifyError(context.Canceled, nil))
	assert.Equal(t, ErrorTypeServerError, r.classifyError(nil, &http.Response{StatusCode: 502}))
	assert.Equal(t, ErrorTypeRetryableHTTP, r.classifyError(nil, &http.Response{StatusCode: 429}))
	assert.Equal(t, ErrorTypeClientError, r.classifyError(nil, &http.Response{StatusCode: 404}))
	assert.Equal(t, ErrorTypeNone, r.classifyError(nil, &http.Response{StatusCode: 200}))
}
