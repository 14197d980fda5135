package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/airnode/internal/errors"
	"codeberg.org/mutker/airnode/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestyClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "60000", r.URL.Query().Get("timeout"))
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	c := transport.NewRestyClient(time.Second)
	status, body, err := c.Get(context.Background(), srv.URL+"/rpc?timeout=60000", time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":1}`, string(body))
}

func TestRestyClientGetTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := transport.NewRestyClient(time.Second)

	start := time.Now()
	_, _, err := c.Get(context.Background(), srv.URL, 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, transport.ErrRequestFailed))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRestyClientPost(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		got.Store(string(body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := transport.NewRestyClient(time.Second)
	status, _, err := c.Post(context.Background(), srv.URL,
		map[string]string{"Content-Type": "application/json"}, []byte(`{"setValue":180}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, `{"setValue":180}`, got.Load())
}

func TestRestyClientNonSuccessIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusRequestTimeout)
	}))
	defer srv.Close()

	c := transport.NewRestyClient(time.Second)
	status, _, err := c.Get(context.Background(), srv.URL, time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusRequestTimeout, status)
}

func TestInterfaceLinkUnknownInterface(t *testing.T) {
	assert.False(t, transport.InterfaceLink{Name: "does-not-exist0"}.Associated())
}

func TestResolverLocalhost(t *testing.T) {
	r := transport.NewNetResolver(2 * time.Second)
	assert.NoError(t, r.Resolve(context.Background(), "localhost"))
}

func TestResolverCancelled(t *testing.T) {
	r := transport.NewNetResolver(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Resolve(ctx, "example.invalid")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, transport.ErrResolveFailed))
}

type flipLink struct {
	calls int32
	after int32
}

func (l *flipLink) Associated() bool {
	return atomic.AddInt32(&l.calls, 1) > l.after
}

func TestWaitAssociated(t *testing.T) {
	link := &flipLink{after: 2}
	assert.True(t, transport.WaitAssociated(context.Background(), link, time.Millisecond, time.Second))

	never := &flipLink{after: 1 << 30}
	assert.False(t, transport.WaitAssociated(context.Background(), never, time.Millisecond, 20*time.Millisecond))
}
