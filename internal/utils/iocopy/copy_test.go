package iocopy

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader 记录每次 Read 传入的缓冲区长度
type countingReader struct {
	r       io.Reader
	maxRead int
	reads   int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	if len(p) > c.maxRead {
		c.maxRead = len(p)
	}
	return c.r.Read(p)
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return len(p) - 1, nil
}

type failWriter struct{ err error }

func (f failWriter) Write(p []byte) (int, error) { return 0, f.err }

func TestBufferPool(t *testing.T) {
	pool := NewBufferPool(1024)
	assert.Equal(t, 1024, pool.Size())

	buf := pool.Get()
	require.Len(t, *buf, 1024)
	pool.Put(buf)

	// 非本池大小的缓冲区不回收
	other := make([]byte, 10)
	pool.Put(&other)
	assert.Len(t, *pool.Get(), 1024)

	assert.Equal(t, DefaultBufferSize, NewBufferPool(0).Size())
}

func TestPump_LargerThanBuffer(t *testing.T) {
	const bufSize = 4096
	payload := make([]byte, bufSize*10+123)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	src := &countingReader{r: bytes.NewReader(payload)}
	var dst bytes.Buffer

	n, err := Pump(&dst, src, NewBufferPool(bufSize))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, dst.Bytes())
	assert.Equal(t, bufSize, src.maxRead)
	assert.Greater(t, src.reads, 10)
}

func TestPump_SmallReads(t *testing.T) {
	payload := []byte("hello, tunnel")
	var dst bytes.Buffer

	n, err := Pump(&dst, iotest.OneByteReader(bytes.NewReader(payload)), NewBufferPool(8))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, dst.Bytes())
}

func TestPump_ReadError(t *testing.T) {
	boom := errors.New("boom")
	var dst bytes.Buffer

	src := io.MultiReader(bytes.NewReader([]byte("abc")), iotest.ErrReader(boom))
	n, err := Pump(&dst, src, NewBufferPool(16))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "abc", dst.String())
}

func TestPump_WriteError(t *testing.T) {
	boom := errors.New("write failed")
	_, err := Pump(failWriter{err: boom}, bytes.NewReader([]byte("data")), NewBufferPool(16))
	assert.ErrorIs(t, err, boom)
}

func TestPump_ShortWrite(t *testing.T) {
	_, err := Pump(shortWriter{}, bytes.NewReader([]byte("data")), NewBufferPool(16))
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestPump_Nil(t *testing.T) {
	pool := NewBufferPool(16)
	_, err := Pump(nil, bytes.NewReader(nil), pool)
	assert.ErrorIs(t, err, ErrNilWriter)

	_, err = Pump(&bytes.Buffer{}, nil, pool)
	assert.ErrorIs(t, err, ErrNilReader)
}
