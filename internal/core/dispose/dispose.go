package dispose

import (
	"context"
	"fmt"
	"sync"
)

// DisposeError 清理过程中的错误信息
type DisposeError struct {
	HandlerIndex int
	Err          error
}

func (e *DisposeError) Error() string {
	return fmt.Sprintf("cleanup handler[%d] failed: %v", e.HandlerIndex, e.Err)
}

// DisposeResult 清理结果
type DisposeResult struct {
	Errors []*DisposeError
}

func (r *DisposeResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *DisposeResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	return fmt.Sprintf("dispose cleanup failed with %d errors", len(r.Errors))
}

// Disposable 统一的资源释放接口
type Disposable interface {
	Dispose() error
}

// Dispose 资源管理结构体
// 父 context 取消或显式 Close 时按注册顺序执行清理处理器，且只执行一次
type Dispose struct {
	mu            sync.Mutex
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
	stopAfter     func() bool
	cleanHandlers []func() error
	errors        []*DisposeError
}

// NewDispose 创建并初始化 Dispose
func NewDispose(parent context.Context, onClose func() error) *Dispose {
	d := &Dispose{}
	d.SetCtx(parent, onClose)
	return d
}

func (d *Dispose) Ctx() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx
}

func (d *Dispose) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// SetCtx 绑定父 context，只能调用一次
func (d *Dispose) SetCtx(parent context.Context, onClose func() error) {
	if parent == nil {
		parent = context.Background()
	}

	d.mu.Lock()
	if d.ctx != nil {
		d.mu.Unlock()
		Warn("ctx already set")
		return
	}
	d.ctx, d.cancel = context.WithCancel(parent)
	ctx := d.ctx
	d.mu.Unlock()

	if onClose != nil {
		d.AddCleanHandler(onClose)
	}

	stop := context.AfterFunc(ctx, func() {
		if result := d.Close(); result.HasErrors() {
			Errorf("context cancellation cleanup failed: %v", result.Error())
		}
	})

	d.mu.Lock()
	d.stopAfter = stop
	d.mu.Unlock()
}

// AddCleanHandler 添加清理处理器
func (d *Dispose) AddCleanHandler(f func() error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleanHandlers = append(d.cleanHandlers, f)
}

// Close 关闭并返回清理结果
func (d *Dispose) Close() *DisposeResult {
	d.mu.Lock()
	if d.closed {
		errs := d.errors
		d.mu.Unlock()
		return &DisposeResult{Errors: errs}
	}
	d.closed = true
	handlers := make([]func() error, len(d.cleanHandlers))
	copy(handlers, d.cleanHandlers)
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	result := &DisposeResult{}
	for i, handler := range handlers {
		if err := handler(); err != nil {
			result.Errors = append(result.Errors, &DisposeError{HandlerIndex: i, Err: err})
			Errorf("cleanup handler[%d] failed: %v", i, err)
		}
	}

	d.mu.Lock()
	d.errors = result.Errors
	d.mu.Unlock()
	return result
}

// CloseWithError 关闭并返回第一个清理错误
func (d *Dispose) CloseWithError() error {
	result := d.Close()
	if result.HasErrors() {
		return result.Errors[0].Err
	}
	return nil
}
