package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentregistry/internal/bootstrap"
	"github.com/yigit/studentregistry/internal/config"
)

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return fmt.Sprint(l.Addr().(*net.TCPAddr).Port)
}

func TestServerRunAndShutdown(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = freePort(t)
	cfg.Server.Mode = "test"
	cfg.Server.ReadTimeout = "5s"
	cfg.Server.WriteTimeout = "5s"
	cfg.Storage.Driver = config.StorageDriverMemory

	storage, err := bootstrap.SetupStorage(cfg, zerolog.Nop())
	require.NoError(t, err)
	deps, err := bootstrap.BuildDependencies(cfg, storage, zerolog.Nop())
	require.NoError(t, err)

	srv := New(cfg, bootstrap.SetupRouter(cfg, deps, zerolog.Nop()), storage, deps.FeedHub, zerolog.Nop())
	assert.Equal(t, 5*time.Second, srv.http.ReadTimeout)

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	url := "http://127.0.0.1:" + cfg.Server.Port + "/ping"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

type countingCloser struct {
	closed atomic.Int32
}

func (c *countingCloser) Close() error {
	c.closed.Add(1)
	return nil
}

func TestServerRunReleasesResourcesWhenListenFails(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := &config.Config{}
	cfg.Server.Port = fmt.Sprint(busy.Addr().(*net.TCPAddr).Port)
	cfg.Server.Mode = "test"
	cfg.Storage.Driver = config.StorageDriverMemory

	storage, err := bootstrap.SetupStorage(cfg, zerolog.Nop())
	require.NoError(t, err)
	feed := &countingCloser{}

	srv := New(cfg, bootstrap.SetupRouter(cfg, &bootstrap.Dependencies{}, zerolog.Nop()), storage, feed, zerolog.Nop())

	err = srv.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error starting server")
	assert.Equal(t, int32(1), feed.closed.Load())

	// A later Shutdown must not close the feed twice.
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.Equal(t, int32(1), feed.closed.Load())
}
