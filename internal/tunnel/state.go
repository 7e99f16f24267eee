package tunnel

// State 隧道生命周期状态
type State int32

const (
	StateAccepted State = iota
	StateRequestRead
	StateTargetResolved
	StateTargetConnected
	StateRelaying
	StateClosed
	StateAborted // 进入转发前的任何失败
)

func (s State) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateRequestRead:
		return "request_read"
	case StateTargetResolved:
		return "target_resolved"
	case StateTargetConnected:
		return "target_connected"
	case StateRelaying:
		return "relaying"
	case StateClosed:
		return "closed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
