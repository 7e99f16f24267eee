// Package server 接受客户端连接并为每个连接启动 CONNECT 隧道
package server

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"tunnelgate/internal/core/dispose"
	coreerrors "tunnelgate/internal/core/errors"
	corelog "tunnelgate/internal/core/log"
	"tunnelgate/internal/health"
	"tunnelgate/internal/tunnel"
)

// accept 出错后的退避区间
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// ListenerConfig 监听器配置
type ListenerConfig struct {
	Host           string
	Port           int
	MaxConnections int  // 0 表示不限制
	ReusePort      bool // SO_REUSEPORT

	Tunnel tunnel.Options
}

// Addr 监听地址
func (c *ListenerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Listener CONNECT 代理监听器
// 每个连接交给独立的隧道处理，接受循环不等待隧道
type Listener struct {
	*dispose.ServiceBase

	config     *ListenerConfig
	tunnelOpts *tunnel.Options

	mu        sync.Mutex
	listener  net.Listener
	accepting atomic.Bool
	errLog     rate.Sometimes
}

// NewListener 创建监听器，ctx 取消时关闭监听并结束所有隧道
func NewListener(ctx context.Context, config *ListenerConfig) *Listener {
	l := &Listener{
		ServiceBase: dispose.NewService("ConnectListener", ctx),
		config:      config,
		tunnelOpts:  config.Tunnel.WithDefaults(),
		errLog:      rate.Sometimes{Interval: time.Second},
	}

	l.AddCleanHandler(func() error {
		if ln := l.netListener(); ln != nil {
			return ln.Close()
		}
		return nil
	})

	return l
}

// Listen 绑定监听端口
func (l *Listener) Listen() error {
	addr := l.config.Addr()
	lc := net.ListenConfig{}
	if l.config.ReusePort {
		lc.Control = reusePortControl
	}

	ln, err := lc.Listen(l.Ctx(), "tcp", addr)
	if err != nil {
		if strings.Contains(err.Error(), "address already in use") {
			return coreerrors.Wrapf(err, coreerrors.CodePortConflict, "port %s is already in use", addr)
		}
		return coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "failed to start listener on %s", addr)
	}

	l.Attach(ln)
	corelog.Infof("ConnectListener: listening on %s", ln.Addr())
	return nil
}

// Attach 使用已有的监听套接字，监听器已关闭时直接关闭 ln
func (l *Listener) Attach(ln net.Listener) {
	if l.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, l.config.MaxConnections)
	}
	l.mu.Lock()
	l.listener = ln
	l.mu.Unlock()

	if l.IsClosed() {
		ln.Close()
	}
}

func (l *Listener) netListener() net.Listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listener
}

// Start 绑定端口并在后台运行接受循环
func (l *Listener) Start() error {
	if err := l.Listen(); err != nil {
		return err
	}
	go l.Serve()
	return nil
}

// GetListenAddr 获取实际监听地址
func (l *Listener) GetListenAddr() string {
	if ln := l.netListener(); ln != nil {
		return ln.Addr().String()
	}
	return l.config.Addr()
}

// IsAccepting 接受循环是否在运行
func (l *Listener) IsAccepting() bool {
	return l.accepting.Load()
}

// Serve 接受循环，直到监听器关闭或 context 取消才返回
// accept 错误不会结束循环
func (l *Listener) Serve() error {
	ln := l.netListener()
	if ln == nil {
		return coreerrors.New(coreerrors.CodeInternal, "listener not bound")
	}

	ctx := l.Ctx()
	l.accepting.Store(true)
	defer l.accepting.Store(false)

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if l.IsClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			l.errLog.Do(func() {
				corelog.Warnf("ConnectListener: accept error: %v; retrying in %v", err, delay)
			})

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		delay = 0

		tun := tunnel.New(conn, l.tunnelOpts)
		go tun.Start(ctx)
	}
}

// HealthChecker 报告接受循环状态
func (l *Listener) HealthChecker() health.HealthChecker {
	return health.CheckerFunc(func(ctx context.Context) (*health.ComponentHealth, error) {
		h := &health.ComponentHealth{
			Name:      "listener",
			Status:    health.ComponentStatusHealthy,
			Message:   "accepting on " + l.GetListenAddr(),
			LastCheck: time.Now(),
		}
		if !l.IsAccepting() {
			h.Status = health.ComponentStatusUnhealthy
			h.Message = "not accepting"
		}
		return h, nil
	})
}
