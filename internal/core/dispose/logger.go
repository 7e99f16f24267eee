package dispose

// dispose 不直接依赖日志包，由主程序通过 SetLogger 注入
var logFunc func(level string, format string, args ...interface{})

// SetLogger 设置日志函数（由主程序初始化时调用）
func SetLogger(fn func(level string, format string, args ...interface{})) {
	logFunc = fn
}

func log(level string, format string, args ...interface{}) {
	if logFunc != nil {
		logFunc(level, format, args...)
	}
}

func Debugf(format string, args ...interface{}) { log("debug", format, args...) }
func Errorf(format string, args ...interface{}) { log("error", format, args...) }
func Warn(msg string)                          { log("warn", "%s", msg) }
