// Package tunnel 实现单个 CONNECT 隧道：握手、连接目标、双向转发
package tunnel

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tunnelgate/internal/config/schema"
	coreerrors "tunnelgate/internal/core/errors"
	corelog "tunnelgate/internal/core/log"
	"tunnelgate/internal/protocol/httpconnect"
	"tunnelgate/internal/resolver"
	"tunnelgate/internal/utils/iocopy"
)

// ConnectEstablished 目标连接建立后写给客户端的应答
var ConnectEstablished = []byte("HTTP/1.1 200 OK\r\n\r\n")

// Dialer 建立到目标的出站连接，*net.Dialer 满足该接口
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Options 隧道参数，由监听器创建一次后所有隧道共享
type Options struct {
	RequestLimit     int
	RelayMode        string
	HandshakeTimeout time.Duration
	DialTimeout      time.Duration

	Resolver resolver.Resolver
	Dialer   Dialer
	Pool     *iocopy.BufferPool
	Logger   corelog.Logger
}

// WithDefaults 返回补齐默认值的副本
func (o *Options) WithDefaults() *Options {
	out := *o
	if out.RequestLimit <= 0 {
		out.RequestLimit = httpconnect.DefaultRequestLimit
	}
	if out.RelayMode == "" {
		out.RelayMode = schema.RelayModeIndependent
	}
	if out.Resolver == nil {
		out.Resolver = resolver.NewNetResolver(nil)
	}
	if out.Dialer == nil {
		out.Dialer = &net.Dialer{}
	}
	if out.Pool == nil {
		out.Pool = iocopy.NewBufferPool(iocopy.DefaultBufferSize)
	}
	if out.Logger == nil {
		out.Logger = corelog.Default()
	}
	return &out
}

// Tunnel 一个客户端连接及其目标连接
// 生命周期由引用计数决定：握手持有 1 个，两个转发方向各持有 1 个，归零时关闭两端连接
type Tunnel struct {
	id     string
	client net.Conn
	opts   *Options
	logger corelog.Logger

	mu     sync.Mutex
	target net.Conn
	closed bool

	refs      atomic.Int32
	state     atomic.Int32
	stopAfter func() bool
	done      chan struct{}
}

// New 为已接受的客户端连接创建隧道
func New(client net.Conn, opts *Options) *Tunnel {
	if opts == nil {
		opts = &Options{}
	}
	id := uuid.NewString()
	o := opts.WithDefaults()
	return &Tunnel{
		id:     id,
		client: client,
		opts:   o,
		logger: o.Logger.WithFields(map[string]interface{}{
			"tunnel_id": id,
			"client":    client.RemoteAddr().String(),
		}),
		done: make(chan struct{}),
	}
}

func (t *Tunnel) ID() string { return t.id }

func (t *Tunnel) State() State { return State(t.state.Load()) }

// Done 两端连接都关闭后关闭
func (t *Tunnel) Done() <-chan struct{} { return t.done }

// Start 执行握手并启动两个转发方向，不等待转发结束
// 握手失败时关闭客户端连接并返回错误，不向客户端写任何应答
func (t *Tunnel) Start(ctx context.Context) error {
	t.refs.Store(1)
	t.stopAfter = context.AfterFunc(ctx, t.closeConns)

	if err := t.handshake(ctx); err != nil {
		t.setState(StateAborted)
		t.logHandshakeError(err)
		t.release()
		return err
	}

	t.mu.Lock()
	target := t.target
	t.mu.Unlock()

	t.refs.Add(2)
	t.setState(StateRelaying)
	go t.relay("client->target", target, t.client)
	go t.relay("target->client", t.client, target)

	t.release()
	return nil
}

func (t *Tunnel) handshake(ctx context.Context) error {
	if t.opts.HandshakeTimeout > 0 {
		_ = t.client.SetReadDeadline(time.Now().Add(t.opts.HandshakeTimeout))
	}
	req, err := httpconnect.ReadRequest(t.client, t.opts.RequestLimit)
	if err != nil {
		return err
	}
	if t.opts.HandshakeTimeout > 0 {
		_ = t.client.SetReadDeadline(time.Time{})
	}
	t.setState(StateRequestRead)

	target, err := httpconnect.ParseRequest(req.Raw)
	if err != nil {
		return err
	}

	endpoints, err := t.opts.Resolver.Resolve(ctx, target.Host, target.Port)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		return coreerrors.Newf(coreerrors.CodeResolutionFailure, "no endpoints for %s", target)
	}
	t.setState(StateTargetResolved)

	// 只尝试第一个候选端点
	dialCtx := ctx
	if t.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, t.opts.DialTimeout)
		defer cancel()
	}
	conn, err := t.opts.Dialer.DialContext(dialCtx, "tcp", endpoints[0])
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeConnectFailure, "dial %s (%s)", target, endpoints[0])
	}
	if err := t.setTarget(conn); err != nil {
		return err
	}
	t.setState(StateTargetConnected)

	// 目标连接建立之后才应答
	if _, err := t.client.Write(ConnectEstablished); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeRelayIO, "write connect acknowledgment")
	}

	if len(req.Residual) > 0 {
		if _, err := conn.Write(req.Residual); err != nil {
			return coreerrors.Wrap(err, coreerrors.CodeRelayIO, "forward early payload")
		}
	}

	t.logger.Infof("tunnel established to %s via %s", target, endpoints[0])
	return nil
}

func (t *Tunnel) setTarget(conn net.Conn) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		conn.Close()
		return coreerrors.New(coreerrors.CodeServiceClosed, "tunnel closed during dial")
	}
	t.target = conn
	return nil
}

// relay 单个方向的转发循环，出错即停止，错误不向外传播
func (t *Tunnel) relay(direction string, dst io.Writer, src io.Reader) {
	defer t.release()

	n, err := iocopy.Pump(dst, src, t.opts.Pool)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		t.logger.WithError(coreerrors.Wrap(err, coreerrors.CodeRelayIO, direction)).
			Debugf("%s stopped after %d bytes", direction, n)
	} else {
		t.logger.Debugf("%s finished after %d bytes", direction, n)
	}

	if t.opts.RelayMode == schema.RelayModeLinked {
		t.closeConns()
	}
}

func (t *Tunnel) release() {
	if t.refs.Add(-1) != 0 {
		return
	}
	t.closeConns()
	if t.stopAfter != nil {
		t.stopAfter()
	}
	if t.State() != StateAborted {
		t.setState(StateClosed)
		t.logger.Info("tunnel closed")
	}
	close(t.done)
}

// closeConns 关闭两端连接，可重复调用
func (t *Tunnel) closeConns() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.client.Close()
	if t.target != nil {
		t.target.Close()
	}
}

func (t *Tunnel) setState(s State) {
	t.state.Store(int32(s))
}

func (t *Tunnel) logHandshakeError(err error) {
	code := coreerrors.GetCode(err)
	l := t.logger.WithField("code", string(code)).WithError(err)
	switch code {
	case coreerrors.CodeMalformedRequest, coreerrors.CodeUnsupportedMethod:
		l.Debug("handshake rejected")
	default:
		l.Warn("handshake failed")
	}
}
