package httpconnect

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "tunnelgate/internal/core/errors"
)

func TestReadRequest_SingleChunk(t *testing.T) {
	raw := "CONNECT example.com:443 HTTP/1.1\r\nHost: example.com:443\r\n\r\n"
	req, err := ReadRequest(strings.NewReader(raw), DefaultRequestLimit)
	require.NoError(t, err)
	assert.Equal(t, raw, string(req.Raw))
	assert.Nil(t, req.Residual)

	target, err := ParseRequest(req.Raw)
	require.NoError(t, err)
	assert.Equal(t, "example.com", target.Host)
}

func TestReadRequest_ByteByByte(t *testing.T) {
	raw := "CONNECT h:1 HTTP/1.1\r\n"
	req, err := ReadRequest(iotest.OneByteReader(strings.NewReader(raw+"more")), DefaultRequestLimit)
	require.NoError(t, err)
	// 读到 CRLF 即停止
	assert.Equal(t, raw, string(req.Raw))
}

func TestReadRequest_Residual(t *testing.T) {
	raw := "CONNECT h:1 HTTP/1.1\r\n\r\n\x16\x03\x01early"
	req, err := ReadRequest(strings.NewReader(raw), DefaultRequestLimit)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x16\x03\x01early"), req.Residual)
}

func TestReadRequest_LimitReached(t *testing.T) {
	raw := "CONNECT " + strings.Repeat("a", 2000) + " HTTP/1.1\r\n"
	_, err := ReadRequest(strings.NewReader(raw), 1024)
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeMalformedRequest))
}

func TestReadRequest_LimitExactFit(t *testing.T) {
	line := "CONNECT h:1 HTTP/1.1\r\n"
	req, err := ReadRequest(strings.NewReader(line), len(line))
	require.NoError(t, err)
	assert.Equal(t, line, string(req.Raw))
}

func TestReadRequest_EOFBeforeCRLF(t *testing.T) {
	_, err := ReadRequest(strings.NewReader("CONNECT h:1 HTTP/1.1"), DefaultRequestLimit)
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeMalformedRequest))
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadRequest_ReadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ReadRequest(iotest.ErrReader(boom), DefaultRequestLimit)
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeMalformedRequest))
	assert.ErrorIs(t, err, boom)
}

func TestReadRequest_DataWithEOF(t *testing.T) {
	raw := "CONNECT h:1 HTTP/1.1\r\n\r\n"
	req, err := ReadRequest(iotest.DataErrReader(bytes.NewReader([]byte(raw))), DefaultRequestLimit)
	require.NoError(t, err)
	assert.Equal(t, raw, string(req.Raw))
}

func TestReadRequest_DefaultLimit(t *testing.T) {
	raw := strings.Repeat("x", DefaultRequestLimit+10)
	_, err := ReadRequest(strings.NewReader(raw), 0)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeMalformedRequest))
}

// chunkReader 每次 Read 返回一个分块
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func TestReadRequest_HeadersInLaterChunk(t *testing.T) {
	r := &chunkReader{chunks: []string{
		"CONNECT h:1 HTTP/1.1\r\n",
		"Host: h:1\r\n\r\n",
	}}
	req, err := ReadRequest(r, DefaultRequestLimit)
	require.NoError(t, err)
	assert.Equal(t, "CONNECT h:1 HTTP/1.1\r\n", string(req.Raw))
	assert.Nil(t, req.Residual)

	// 后续头部不被消费，留给转发
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Host: h:1\r\n\r\n", string(rest))
}
