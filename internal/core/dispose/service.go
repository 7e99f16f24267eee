package dispose

import "context"

// ServiceBase 标准服务基类，供监听器等长生命周期组件嵌入
type ServiceBase struct {
	Dispose
	name string
}

// NewService 创建服务基类并绑定父 context
func NewService(name string, parentCtx context.Context) *ServiceBase {
	s := &ServiceBase{name: name}
	s.SetCtx(parentCtx, func() error {
		Debugf("%s resources cleaned up", s.name)
		return nil
	})
	return s
}

// GetName 获取服务名称
func (s *ServiceBase) GetName() string {
	return s.name
}
