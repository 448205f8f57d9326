package attention

// State is a step of the attribution stream lifecycle.
type State int

const (
	StateIdle State = iota
	StateTokenizing
	StateStreaming
	StateFlushing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTokenizing:
		return "tokenizing"
	case StateStreaming:
		return "streaming"
	case StateFlushing:
		return "flushing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
