// Package server 组装配置、日志、监听器与健康服务并运行代理
package server

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tunnelgate/internal/config/schema"
	"tunnelgate/internal/core/dispose"
	corelog "tunnelgate/internal/core/log"
	"tunnelgate/internal/health"
	"tunnelgate/internal/resolver"
	proxy "tunnelgate/internal/server"
	"tunnelgate/internal/tunnel"
	"tunnelgate/internal/utils/iocopy"
)

// Server 代理进程
type Server struct {
	config     *schema.Root
	configPath string

	listener *proxy.Listener
	health   *health.Service
}

// New 创建服务器
func New(config *schema.Root, configPath string) *Server {
	return &Server{
		config:     config,
		configPath: configPath,
	}
}

// SetupLogging 按配置初始化全局日志，并把 dispose 的日志接到同一个 logger
func SetupLogging(cfg schema.LogConfig) error {
	if err := corelog.Init(corelog.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		File:   cfg.File,
	}); err != nil {
		return err
	}

	dispose.SetLogger(func(level, format string, args ...interface{}) {
		switch level {
		case "debug":
			corelog.Debugf(format, args...)
		case "warn":
			corelog.Warnf(format, args...)
		case "error":
			corelog.Errorf(format, args...)
		default:
			corelog.Infof(format, args...)
		}
	})
	return nil
}

// buildResolver 根据配置决定是否启用解析缓存
func buildResolver(cfg schema.ResolverConfig) resolver.Resolver {
	var r resolver.Resolver = resolver.NewNetResolver(nil)
	if cfg.CacheEnabled {
		r = resolver.NewCachedResolver(r, cfg.CacheSize, cfg.CacheTTL)
	}
	return r
}

// listenerConfig 把配置转换为监听器参数
func listenerConfig(cfg *schema.Root) *proxy.ListenerConfig {
	return &proxy.ListenerConfig{
		Host:           cfg.Proxy.Host,
		Port:           cfg.Proxy.Port,
		MaxConnections: cfg.Proxy.MaxConnections,
		ReusePort:      cfg.Proxy.ReusePort,
		Tunnel: tunnel.Options{
			RequestLimit:     cfg.Proxy.RequestLimit,
			RelayMode:        cfg.Proxy.RelayMode,
			HandshakeTimeout: cfg.Proxy.HandshakeTimeout,
			DialTimeout:      cfg.Proxy.DialTimeout,
			Resolver:         buildResolver(cfg.Resolver),
			Pool:             iocopy.NewBufferPool(cfg.Proxy.BufferSize),
			Logger:           corelog.Default(),
		},
	}
}

// ListenAddr 代理实际监听地址，Run 绑定端口之前为空
func (s *Server) ListenAddr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.GetListenAddr()
}

// HealthAddr 健康服务实际监听地址
func (s *Server) HealthAddr() string {
	if s.health == nil {
		return ""
	}
	return s.health.Addr()
}

// Bind 绑定代理端口和（可选的）健康端口
// ctx 取消时两者都会关闭
func (s *Server) Bind(ctx context.Context) error {
	s.listener = proxy.NewListener(ctx, listenerConfig(s.config))
	if err := s.listener.Listen(); err != nil {
		s.listener.Close()
		return err
	}

	if s.config.Health.Enabled {
		s.health = health.NewService(ctx)
		s.health.RegisterChecker("listener", s.listener.HealthChecker())
		if err := s.health.Listen(s.config.Health.Listen); err != nil {
			s.listener.Close()
			s.health.Close()
			return err
		}
	}
	return nil
}

// Run 运行直到 ctx 取消或某个服务出错，未调用 Bind 时先绑定端口
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.listener == nil {
		if err := s.Bind(gctx); err != nil {
			return fmt.Errorf("failed to bind: %w", err)
		}
	}

	g.Go(s.listener.Serve)
	if s.health != nil {
		g.Go(s.health.Serve)
	}

	g.Go(func() error {
		<-gctx.Done()
		corelog.Info("Shutting down...")
		if s.health != nil {
			s.health.MarkDraining()
		}
		s.listener.Close()
		if s.health != nil {
			s.health.Close()
		}
		return nil
	})

	corelog.Infof("tunnelgate proxy serving on %s (relay mode %s)", s.ListenAddr(), s.config.Proxy.RelayMode)
	return g.Wait()
}
