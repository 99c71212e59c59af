package pipeline

// State is a step of the decode state machine.
type State int

const (
	StateStart State = iota
	StateClassify
	StateMotionPath
	StateImagePath
	StateOrient
	StateOverlay
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateClassify:
		return "classify"
	case StateMotionPath:
		return "motion_path"
	case StateImagePath:
		return "image_path"
	case StateOrient:
		return "orient"
	case StateOverlay:
		return "overlay"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a request.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
