package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"tunnelgate/internal/core/dispose"
	coreerrors "tunnelgate/internal/core/errors"
	corelog "tunnelgate/internal/core/log"
)

const checkTimeout = 3 * time.Second

// ReadyResponse /readyz 响应体
type ReadyResponse struct {
	Status     ComponentStatus             `json:"status"`
	Draining   bool                        `json:"draining,omitempty"`
	Timestamp  time.Time                   `json:"timestamp"`
	Components map[string]*ComponentHealth `json:"components"`
}

// Service 健康探针 HTTP 服务
// /healthz 运行中恒为 200；/readyz 所有组件健康时 200，否则 503
type Service struct {
	*dispose.ServiceBase

	checker  *CompositeHealthChecker
	router   *mux.Router
	server   *http.Server
	listener net.Listener
	draining atomic.Bool
}

// NewService 创建健康服务
func NewService(ctx context.Context) *Service {
	s := &Service{
		ServiceBase: dispose.NewService("HealthService", ctx),
		checker:     NewCompositeHealthChecker(checkTimeout),
		router:      mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.AddCleanHandler(func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})

	return s
}

// RegisterChecker 注册参与 /readyz 的组件
func (s *Service) RegisterChecker(name string, checker HealthChecker) {
	s.checker.RegisterChecker(name, checker)
}

// MarkDraining 关闭前调用，/readyz 随即返回 503
func (s *Service) MarkDraining() {
	s.draining.Store(true)
}

// Handler 返回路由，便于测试
func (s *Service) Handler() http.Handler {
	return s.router
}

// Listen 绑定监听地址
func (s *Service) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "failed to start health endpoint on %s", addr)
	}
	s.listener = ln
	corelog.Infof("HealthService: listening on %s", ln.Addr())
	return nil
}

// Addr 实际监听地址
func (s *Service) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve 阻塞处理请求，服务关闭后返回 nil
func (s *Service) Serve() error {
	if s.listener == nil {
		return coreerrors.New(coreerrors.CodeInternal, "health service not listening")
	}
	if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return coreerrors.Wrap(err, coreerrors.CodeNetworkError, "health endpoint stopped")
	}
	return nil
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleReadyz(w http.ResponseWriter, r *http.Request) {
	components := s.checker.CheckAll(r.Context())
	resp := ReadyResponse{
		Status:     OverallStatus(components),
		Draining:   s.draining.Load(),
		Timestamp:  time.Now(),
		Components: components,
	}

	code := http.StatusOK
	if resp.Draining || resp.Status != ComponentStatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
