package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "tunnelgate/internal/core/errors"
	corelog "tunnelgate/internal/core/log"
	"tunnelgate/internal/health"
	"tunnelgate/internal/tunnel"
)

// flakyListener 前几次 Accept 返回错误
type flakyListener struct {
	net.Listener
	failures atomic.Int32
}

func (f *flakyListener) Accept() (net.Conn, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("accept: too many open files")
	}
	return f.Listener.Accept()
}

func echoTarget(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				io.Copy(c, c)
			}()
		}
	}()
	return ln.Addr().String()
}

func newTestListener(t *testing.T, ctx context.Context) *Listener {
	t.Helper()
	l := NewListener(ctx, &ListenerConfig{
		Host:   "127.0.0.1",
		Port:   0,
		Tunnel: tunnel.Options{Logger: corelog.NewNopLogger()},
	})
	t.Cleanup(func() { l.Close() })
	return l
}

// handshake 通过代理建立隧道并返回客户端连接
func handshake(t *testing.T, proxyAddr, target string) net.Conn {
	t.Helper()
	c, err := net.Dial("tcp", proxyAddr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, err = c.Write([]byte("CONNECT " + target + " HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	ack := make([]byte, len(tunnel.ConnectEstablished))
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(c, ack)
	require.NoError(t, err)
	require.Equal(t, string(tunnel.ConnectEstablished), string(ack))
	_ = c.SetReadDeadline(time.Time{})
	return c
}

func assertEcho(t *testing.T, c net.Conn, msg string) {
	t.Helper()
	_, err := c.Write([]byte(msg))
	require.NoError(t, err)
	buf := make([]byte, len(msg))
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(c, buf)
	require.NoError(t, err)
	assert.Equal(t, msg, string(buf))
}

func TestListener_ServesConnect(t *testing.T) {
	target := echoTarget(t)
	l := newTestListener(t, context.Background())
	require.NoError(t, l.Start())

	c := handshake(t, l.GetListenAddr(), target)
	assertEcho(t, c, "hello through the tunnel")
}

func TestListener_AcceptErrorsDoNotStopLoop(t *testing.T) {
	target := echoTarget(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	flaky := &flakyListener{Listener: ln}
	flaky.failures.Store(5)

	l := newTestListener(t, context.Background())
	l.Attach(flaky)
	go l.Serve()

	c := handshake(t, ln.Addr().String(), target)
	assertEcho(t, c, "still serving")
	assert.True(t, l.IsAccepting())
}

func TestListener_StalledHandshakeDoesNotBlockOthers(t *testing.T) {
	target := echoTarget(t)
	l := newTestListener(t, context.Background())
	require.NoError(t, l.Start())

	// 只建立 TCP 连接，不发送请求
	stalled, err := net.Dial("tcp", l.GetListenAddr())
	require.NoError(t, err)
	defer stalled.Close()

	// handshake 自带 2 秒读超时
	c := handshake(t, l.GetListenAddr(), target)
	assertEcho(t, c, "independent")
}

func TestListener_CloseStopsServe(t *testing.T) {
	l := newTestListener(t, context.Background())
	require.NoError(t, l.Listen())

	served := make(chan error, 1)
	go func() { served <- l.Serve() }()
	assert.Eventually(t, l.IsAccepting, time.Second, 5*time.Millisecond)

	l.Close()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve should return after Close")
	}
	assert.False(t, l.IsAccepting())
}

func TestListener_ContextCancelEndsTunnels(t *testing.T) {
	target := echoTarget(t)
	ctx, cancel := context.WithCancel(context.Background())
	l := newTestListener(t, ctx)
	require.NoError(t, l.Listen())

	served := make(chan error, 1)
	go func() { served <- l.Serve() }()

	c := handshake(t, l.GetListenAddr(), target)
	cancel()

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve should return on cancellation")
	}

	// 隧道随共享 context 一起关闭
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := c.Read(make([]byte, 1))
	require.Error(t, err)
	var netErr net.Error
	assert.False(t, errors.As(err, &netErr) && netErr.Timeout(), "tunnel still open: %v", err)
}

func TestListener_MaxConnections(t *testing.T) {
	target := echoTarget(t)
	l := NewListener(context.Background(), &ListenerConfig{
		Host:           "127.0.0.1",
		MaxConnections: 1,
		Tunnel:         tunnel.Options{Logger: corelog.NewNopLogger()},
	})
	defer l.Close()
	require.NoError(t, l.Start())

	first, err := net.Dial("tcp", l.GetListenAddr())
	require.NoError(t, err)

	second, err := net.Dial("tcp", l.GetListenAddr())
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Write([]byte("CONNECT " + target + " HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	// 第一个连接占用名额期间，第二个不会被接受
	_ = second.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err = second.Read(make([]byte, 1))
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected timeout, got %v", err)

	first.Close()

	ack := make([]byte, len(tunnel.ConnectEstablished))
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(second, ack)
	require.NoError(t, err)
	assert.Equal(t, string(tunnel.ConnectEstablished), string(ack))
}

func TestListener_PortConflict(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	port := occupied.Addr().(*net.TCPAddr).Port
	l := NewListener(context.Background(), &ListenerConfig{Host: "127.0.0.1", Port: port})
	defer l.Close()

	err = l.Listen()
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodePortConflict), "got %v", err)
}

func TestListener_ServeWithoutListen(t *testing.T) {
	l := newTestListener(t, context.Background())
	assert.Error(t, l.Serve())
}

func TestListener_AttachAfterClose(t *testing.T) {
	l := newTestListener(t, context.Background())
	l.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	l.Attach(ln)

	_, err = ln.Accept()
	assert.ErrorIs(t, err, net.ErrClosed)
	assert.NoError(t, l.Serve())
}

func TestListener_CancelWhileAttaching(t *testing.T) {
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		l := newTestListener(t, ctx)

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		done := make(chan struct{})
		go func() {
			defer close(done)
			cancel()
		}()
		l.Attach(ln)
		<-done

		// 无论先后，取消后套接字都会被关闭；关闭会唤醒阻塞中的 Accept
		_ = ln.(*net.TCPListener).SetDeadline(time.Now().Add(2 * time.Second))
		_, err = ln.Accept()
		assert.ErrorIs(t, err, net.ErrClosed)
		assert.NoError(t, l.Serve())
	}
}

func TestListener_HealthChecker(t *testing.T) {
	l := newTestListener(t, context.Background())
	checker := l.HealthChecker()

	h, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.ComponentStatusUnhealthy, h.Status)

	require.NoError(t, l.Start())
	assert.Eventually(t, func() bool {
		h, _ := checker.Check(context.Background())
		return h.Status == health.ComponentStatusHealthy
	}, time.Second, 5*time.Millisecond)

	// 关闭后接受循环退出，检查随即变为不健康
	l.Close()
	assert.Eventually(t, func() bool {
		h, _ := checker.Check(context.Background())
		return h.Status == health.ComponentStatusUnhealthy && h.Message == "not accepting"
	}, time.Second, 5*time.Millisecond)
}

func TestListenerConfig_Addr(t *testing.T) {
	cfg := &ListenerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}
