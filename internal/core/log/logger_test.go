package log

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNopLogger 测试静默日志
func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()

	logger.Info("test")
	logger.Errorf("test %s", "arg")

	assert.IsType(t, NopLogger{}, logger.WithField("key", "value"))
	assert.IsType(t, NopLogger{}, logger.WithFields(map[string]interface{}{"key": "value"}))
	assert.IsType(t, NopLogger{}, logger.WithError(nil))
	assert.IsType(t, NopLogger{}, logger.WithContext(context.Background()))
}

// mockTestingT 模拟 testing.T
type mockTestingT struct {
	logs []string
}

func (m *mockTestingT) Log(args ...interface{}) {
	m.logs = append(m.logs, args[0].(string))
}

func (m *mockTestingT) Logf(format string, args ...interface{}) {
	m.logs = append(m.logs, format)
}

// TestTestLogger 测试测试日志
func TestTestLogger(t *testing.T) {
	mock := &mockTestingT{}
	logger := NewTestLogger(mock)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	require.Len(t, mock.logs, 4)
	assert.Equal(t, "[INFO] info message", mock.logs[1])

	mock.logs = nil
	logger.WithField("tunnel_id", "abc").Info("opened")
	require.Len(t, mock.logs, 1)
	assert.Equal(t, "[INFO] opened tunnel_id=abc", mock.logs[0])
}

// TestLogrusLogger 测试 logrus 日志
func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	logger := NewLogrusLogger(l)

	logger.Debug("debug message")
	assert.Contains(t, buf.String(), "debug message")

	buf.Reset()
	logger.WithField("key", "value").Info("with field")
	assert.Contains(t, buf.String(), "key=value")

	buf.Reset()
	logger.WithFields(map[string]interface{}{"k1": "v1", "k2": "v2"}).Info("with fields")
	assert.Contains(t, buf.String(), "k1=v1")
	assert.Contains(t, buf.String(), "k2=v2")
}

// TestDefaultLogger 测试默认日志
func TestDefaultLogger(t *testing.T) {
	logger := Default()
	require.NotNil(t, logger)

	nopLogger := NewNopLogger()
	SetDefault(nopLogger)
	assert.Equal(t, nopLogger, Default())

	SetDefault(logger)
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		l, closer, err := New(Config{})
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	})

	t.Run("invalid level", func(t *testing.T) {
		_, _, err := New(Config{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, _, err := New(Config{Format: "xml"})
		assert.Error(t, err)
	})

	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "proxy.log")
		l, closer, err := New(Config{Level: "debug", Format: FormatJSON, File: path})
		require.NoError(t, err)
		require.NotNil(t, closer)

		l.WithField("tunnel_id", "t1").Info("hello")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "t1", entry["tunnel_id"])
	})
}

func TestInit(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	path := filepath.Join(t.TempDir(), "init.log")
	require.NoError(t, Init(Config{Level: "warn", File: path}))

	Info("dropped")
	Warn("kept")

	// 切换到 stderr，关闭之前的文件
	require.NoError(t, Init(Config{Level: "error"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

// TestGlobalFunctions 测试全局函数
func TestGlobalFunctions(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)
	SetDefault(NewNopLogger())

	Debug("test")
	Infof("test %s", "arg")
	assert.NotNil(t, WithField("key", "value"))
	assert.NotNil(t, WithFields(map[string]interface{}{"key": "value"}))
	assert.NotNil(t, WithError(nil))
	assert.NotNil(t, WithContext(context.Background()))
}
