package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/casegen/pkg/infra/middleware"
)

func testOptions() *Options {
	opts := NewOptions()
	opts.Addr = "127.0.0.1:0"
	opts.Mode = gin.TestMode
	opts.ShutdownTimeout = 2 * time.Second
	return opts
}

func TestServerLifecycle(t *testing.T) {
	s := NewServer(testOptions())
	s.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/ping", s.Addr()))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "pong" &&
			resp.Header.Get(middleware.HeaderXRequestID) != ""
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerNoRoute(t *testing.T) {
	s := NewServer(testOptions())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	resp, err := http.Get(fmt.Sprintf("http://%s/missing", s.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerStartTwice(t *testing.T) {
	s := NewServer(testOptions())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())
	assert.Error(t, s.Start(context.Background()))
}

func TestServerBindFailure(t *testing.T) {
	first := NewServer(testOptions())
	require.NoError(t, first.Start(context.Background()))
	defer first.Stop(context.Background())

	opts := testOptions()
	opts.Addr = first.Addr()
	assert.Error(t, NewServer(opts).Start(context.Background()))
}
