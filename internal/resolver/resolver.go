// Package resolver 将目标 host/port 解析为候选端点
package resolver

import (
	"context"
	"net"
	"strconv"

	coreerrors "tunnelgate/internal/core/errors"
)

// Resolver 解析目标地址，返回 host:port 形式的候选端点
type Resolver interface {
	Resolve(ctx context.Context, host, port string) ([]string, error)
}

// Lookup 底层查询接口，*net.Resolver 满足该接口
type Lookup interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupPort(ctx context.Context, network, service string) (int, error)
}

// NetResolver 基于系统解析器的实现
type NetResolver struct {
	lookup Lookup
}

// NewNetResolver 创建解析器，lookup 为 nil 时使用 net.DefaultResolver
func NewNetResolver(lookup Lookup) *NetResolver {
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	return &NetResolver{lookup: lookup}
}

// Resolve 解析主机和端口（端口可以是服务名）
func (r *NetResolver) Resolve(ctx context.Context, host, port string) ([]string, error) {
	portNum, err := r.resolvePort(ctx, port)
	if err != nil {
		return nil, err
	}

	var addrs []string
	if ip := net.ParseIP(host); ip != nil {
		addrs = []string{host}
	} else {
		addrs, err = r.lookup.LookupHost(ctx, host)
		if err != nil {
			return nil, coreerrors.Wrapf(err, coreerrors.CodeResolutionFailure, "lookup host %q", host)
		}
	}
	if len(addrs) == 0 {
		return nil, coreerrors.Newf(coreerrors.CodeResolutionFailure, "no addresses for host %q", host)
	}

	p := strconv.Itoa(portNum)
	endpoints := make([]string, 0, len(addrs))
	for _, a := range addrs {
		endpoints = append(endpoints, net.JoinHostPort(a, p))
	}
	return endpoints, nil
}

func (r *NetResolver) resolvePort(ctx context.Context, port string) (int, error) {
	if n, err := strconv.Atoi(port); err == nil {
		if n < 0 || n > 65535 {
			return 0, coreerrors.Newf(coreerrors.CodeResolutionFailure, "port %d out of range", n)
		}
		return n, nil
	}
	n, err := r.lookup.LookupPort(ctx, "tcp", port)
	if err != nil {
		return 0, coreerrors.Wrapf(err, coreerrors.CodeResolutionFailure, "lookup port %q", port)
	}
	return n, nil
}
