package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/kataras/iris/v12"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"nw-social/web"
)

type recordingDB struct {
	disconnected atomic.Bool
}

func (d *recordingDB) Disconnect(_ context.Context) error {
	d.disconnected.Store(true)
	return nil
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRunDrainsRequestsAndDisconnects(t *testing.T) {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)

	r := web.NewRouter(web.Options{Logger: logger})
	r.Init()

	release := make(chan struct{})
	r.App.Get("/slow", func(ctx iris.Context) {
		<-release
		ctx.StatusCode(iris.StatusOK)
	})

	addr := freeAddr(t)
	db := &recordingDB{}
	signals := make(chan os.Signal, 1)
	returned := make(chan error, 1)
	go func() { returned <- run(r, db, addr, signals) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	slow := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + addr + "/slow")
		if err != nil {
			slow <- 0
			return
		}
		resp.Body.Close()
		slow <- resp.StatusCode
	}()
	// let the slow request reach its handler
	time.Sleep(100 * time.Millisecond)

	signals <- syscall.SIGTERM

	select {
	case <-returned:
		t.Fatal("run returned while a request was still in flight")
	case <-time.After(200 * time.Millisecond):
	}
	require.False(t, db.disconnected.Load())

	close(release)
	require.Equal(t, http.StatusOK, <-slow)

	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after shutdown")
	}
	require.True(t, db.disconnected.Load())
}
