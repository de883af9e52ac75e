package agent

// State is a dialogue state
type State int

const (
	StateIdle State = iota
	StateAskingInfo
	StateShowMenu
	StateFiltering
	StateResults
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAskingInfo:
		return "asking_info"
	case StateShowMenu:
		return "show_menu"
	case StateFiltering:
		return "filtering"
	case StateResults:
		return "results"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
