// Package health 提供组件健康检查与 HTTP 探针
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ComponentStatus 组件状态
type ComponentStatus string

const (
	ComponentStatusHealthy   ComponentStatus = "healthy"
	ComponentStatusDegraded  ComponentStatus = "degraded"  // 降级，部分功能不可用
	ComponentStatusUnhealthy ComponentStatus = "unhealthy" // 不健康，完全不可用
)

// ComponentHealth 组件健康信息
type ComponentHealth struct {
	Name      string          `json:"name"`
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LastCheck time.Time       `json:"last_check"`
}

// HealthChecker 健康检查器接口
type HealthChecker interface {
	// Check 执行健康检查，返回组件健康信息
	Check(ctx context.Context) (*ComponentHealth, error)
}

// CheckerFunc 函数适配为 HealthChecker
type CheckerFunc func(ctx context.Context) (*ComponentHealth, error)

func (f CheckerFunc) Check(ctx context.Context) (*ComponentHealth, error) {
	return f(ctx)
}

// CompositeHealthChecker 组合健康检查器
type CompositeHealthChecker struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	timeout  time.Duration
}

// NewCompositeHealthChecker 创建组合健康检查器
func NewCompositeHealthChecker(timeout time.Duration) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checkers: make(map[string]HealthChecker),
		timeout:  timeout,
	}
}

// RegisterChecker 注册健康检查器，同名覆盖
func (c *CompositeHealthChecker) RegisterChecker(name string, checker HealthChecker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkers[name] = checker
}

// CheckAll 检查所有注册的组件
func (c *CompositeHealthChecker) CheckAll(ctx context.Context) map[string]*ComponentHealth {
	c.mu.RLock()
	names := make([]string, 0, len(c.checkers))
	for name := range c.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]HealthChecker, len(c.checkers))
	for k, v := range c.checkers {
		checkers[k] = v
	}
	c.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]*ComponentHealth, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		health, err := checkers[name].Check(checkCtx)
		cancel()

		if err != nil {
			health = &ComponentHealth{
				Name:      name,
				Status:    ComponentStatusUnhealthy,
				Message:   err.Error(),
				LastCheck: time.Now(),
			}
		}

		if health != nil {
			results[name] = health
		}
	}

	return results
}

// OverallStatus 汇总状态：任一不健康即不健康，其次降级
func OverallStatus(results map[string]*ComponentHealth) ComponentStatus {
	hasDegraded := false
	for _, health := range results {
		switch health.Status {
		case ComponentStatusUnhealthy:
			return ComponentStatusUnhealthy
		case ComponentStatusDegraded:
			hasDegraded = true
		}
	}
	if hasDegraded {
		return ComponentStatusDegraded
	}
	return ComponentStatusHealthy
}

// GetOverallStatus 获取整体健康状态
func (c *CompositeHealthChecker) GetOverallStatus(ctx context.Context) ComponentStatus {
	return OverallStatus(c.CheckAll(ctx))
}
