// Package iocopy 提供单向数据泵和复用的拷贝缓冲区
package iocopy

import (
	"errors"
	"io"
	"sync"
)

// DefaultBufferSize 默认拷贝缓冲区大小
const DefaultBufferSize = 16 * 1024

var (
	ErrNilReader = errors.New("Reader cannot be nil")
	ErrNilWriter = errors.New("Writer cannot be nil")
)

// BufferPool 固定大小缓冲区池
type BufferPool struct {
	size int
	pool sync.Pool
}

// NewBufferPool 创建缓冲区池，size <= 0 时使用默认大小
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	p := &BufferPool{size: size}
	p.pool.New = func() interface{} {
		buf := make([]byte, size)
		return &buf
	}
	return p
}

// Size 缓冲区容量
func (p *BufferPool) Size() int {
	return p.size
}

// Get 取出一个缓冲区
func (p *BufferPool) Get() *[]byte {
	return p.pool.Get().(*[]byte)
}

// Put 归还缓冲区
func (p *BufferPool) Put(buf *[]byte) {
	if buf == nil || cap(*buf) != p.size {
		return
	}
	*buf = (*buf)[:p.size]
	p.pool.Put(buf)
}

// Pump 从 src 读取写入 dst，直到 EOF 或出错
// 每次读取至多缓冲区容量，写入恰好读到的字节；缓冲区在迭代间复用
// 正常 EOF 返回 nil 错误
func Pump(dst io.Writer, src io.Reader, pool *BufferPool) (int64, error) {
	if src == nil {
		return 0, ErrNilReader
	}
	if dst == nil {
		return 0, ErrNilWriter
	}

	bufPtr := pool.Get()
	defer pool.Put(bufPtr)
	buf := *bufPtr

	var written int64
	for {
		nr, readErr := src.Read(buf)
		if nr > 0 {
			nw, writeErr := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if writeErr != nil {
				return written, writeErr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}
