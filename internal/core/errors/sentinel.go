package errors

// 哨兵错误，用于 errors.Is 按错误码比较
var (
	ErrMalformedRequest  = New(CodeMalformedRequest, "malformed CONNECT request")
	ErrUnsupportedMethod = New(CodeUnsupportedMethod, "unsupported request method")
	ErrResolutionFailure = New(CodeResolutionFailure, "target resolution failed")
	ErrConnectFailure    = New(CodeConnectFailure, "target connect failed")
	ErrRelayIO           = New(CodeRelayIO, "relay I/O failed")
	ErrServiceClosed     = New(CodeServiceClosed, "service closed")
)
