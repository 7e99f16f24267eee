// Package httpconnect 解析 HTTP CONNECT 请求行
package httpconnect

import (
	"bytes"
	"net"
	"strings"

	coreerrors "tunnelgate/internal/core/errors"
)

const (
	// MethodConnect 唯一支持的方法，大小写敏感
	MethodConnect = "CONNECT"

	// DefaultPort authority 未携带端口时使用
	DefaultPort = "80"
)

var crlf = []byte("\r\n")

// Target CONNECT 请求的目标地址
type Target struct {
	Host string
	Port string // 文本形式，可能是服务名
}

// Address 返回 host:port 形式的地址
func (t *Target) Address() string {
	return net.JoinHostPort(t.Host, t.Port)
}

func (t *Target) String() string {
	return t.Host + ":" + t.Port
}

// ParseRequest 解析请求字节中的第一行
// 只检查请求行，后续头部忽略
func ParseRequest(raw []byte) (*Target, error) {
	idx := bytes.Index(raw, crlf)
	if idx < 0 {
		return nil, coreerrors.New(coreerrors.CodeMalformedRequest, "request line not terminated by CRLF")
	}

	parts := splitTokens(string(raw[:idx]), " ")
	if len(parts) < 3 {
		return nil, coreerrors.Newf(coreerrors.CodeMalformedRequest,
			"request line has %d tokens, want at least 3", len(parts))
	}

	if parts[0] != MethodConnect {
		return nil, coreerrors.Newf(coreerrors.CodeUnsupportedMethod, "unsupported method %q", parts[0])
	}

	authority := splitTokens(parts[1], ":")
	switch len(authority) {
	case 0:
		return nil, coreerrors.New(coreerrors.CodeMalformedRequest, "empty authority")
	case 1:
		return &Target{Host: authority[0], Port: DefaultPort}, nil
	default:
		// 多余的分段忽略，不处理 IPv6 方括号
		return &Target{Host: authority[0], Port: authority[1]}, nil
	}
}

// splitTokens 按单个分隔符切分
// 中间的空段保留，末尾的一个空段丢弃
func splitTokens(s, sep string) []string {
	tokens := strings.Split(s, sep)
	if last := len(tokens) - 1; tokens[last] == "" {
		tokens = tokens[:last]
	}
	return tokens
}
