package resolver

import (
	"context"
	"net"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedResolver 在内部解析器之上缓存成功的解析结果
// 失败结果不缓存
type CachedResolver struct {
	next  Resolver
	cache *expirable.LRU[string, []string]
}

// NewCachedResolver 创建带过期 LRU 缓存的解析器
func NewCachedResolver(next Resolver, size int, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		next:  next,
		cache: expirable.NewLRU[string, []string](size, nil, ttl),
	}
}

func (r *CachedResolver) Resolve(ctx context.Context, host, port string) ([]string, error) {
	key := net.JoinHostPort(host, port)
	if endpoints, ok := r.cache.Get(key); ok {
		return endpoints, nil
	}

	endpoints, err := r.next.Resolve(ctx, host, port)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, endpoints)
	return endpoints, nil
}

// Len 当前缓存条目数
func (r *CachedResolver) Len() int {
	return r.cache.Len()
}
