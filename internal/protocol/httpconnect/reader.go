package httpconnect

import (
	"bytes"
	"io"

	coreerrors "tunnelgate/internal/core/errors"
)

// DefaultRequestLimit 请求读取上限
const DefaultRequestLimit = 1024

var headerEnd = []byte("\r\n\r\n")

// Request 从客户端读到的握手数据
type Request struct {
	// Raw 读到的全部字节（含可能的提前数据）
	Raw []byte

	// Residual 头部结束符之后已经读到的字节，需要先转发给目标
	// 只看停止读取时已在缓冲区中的数据：若头部在之后的分块才到达，
	// 它们连同空行都留在连接上，作为隧道数据原样转发
	Residual []byte
}

// ReadRequest 分块读取直到缓冲区中出现 CRLF
// 达到 limit 仍无 CRLF，或在此之前读出错/EOF，均视为格式错误
func ReadRequest(r io.Reader, limit int) (*Request, error) {
	if limit <= 0 {
		limit = DefaultRequestLimit
	}

	buf := make([]byte, limit)
	n := 0
	for {
		if n == limit {
			return nil, coreerrors.Newf(coreerrors.CodeMalformedRequest,
				"no CRLF within %d bytes", limit)
		}

		m, err := r.Read(buf[n:])
		n += m
		if m > 0 && bytes.Contains(buf[:n], crlf) {
			break
		}
		if err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CodeMalformedRequest, "request read failed before CRLF")
		}
	}

	req := &Request{Raw: buf[:n]}
	if idx := bytes.Index(req.Raw, headerEnd); idx >= 0 {
		if rest := req.Raw[idx+len(headerEnd):]; len(rest) > 0 {
			req.Residual = rest
		}
	}
	return req, nil
}
