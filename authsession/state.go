package authsession

import "fmt"

// Phase is the activity the session manager is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoggingIn
	PhaseLoggingOut
	PhaseRefreshing
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoggingIn:
		return "logging-in"
	case PhaseLoggingOut:
		return "logging-out"
	case PhaseRefreshing:
		return "refreshing"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Op names the operation a non-idle state belongs to.
type Op string

const (
	OpNone    Op = ""
	OpLogin   Op = "login"
	OpLogout  Op = "logout"
	OpRefresh Op = "refresh"
)

// State is the manager's single current state. Every transition replaces the previous
// one, so an error from an earlier operation never outlives the next operation.
type State struct {
	Phase   Phase
	Op      Op     // Set for every phase except idle
	Message string // Failure text shown to the user, empty when the failure carries none
}

func idle() State { return State{Phase: PhaseIdle} }

func inProgress(op Op) State {
	switch op {
	case OpLogin:
		return State{Phase: PhaseLoggingIn, Op: op}
	case OpLogout:
		return State{Phase: PhaseLoggingOut, Op: op}
	default:
		return State{Phase: PhaseRefreshing, Op: op}
	}
}

func failed(op Op, message string) State {
	return State{Phase: PhaseFailed, Op: op, Message: message}
}

func (s State) String() string {
	if s.Phase == PhaseFailed {
		return fmt.Sprintf("failed{%s, %q}", s.Op, s.Message)
	}
	return s.Phase.String()
}

// AuthStates are the per-operation loading and error flags screens render from.
type AuthStates struct {
	IsAuthLoading     bool
	IsAuthError       bool
	IsRefreshing      bool
	IsRefreshingError bool
	IsLoggingOut      bool
	IsLogoutError     bool
}

// Flags derives the flag view of the state. At most one flag is ever set.
func (s State) Flags() AuthStates {
	var f AuthStates
	switch s.Phase {
	case PhaseLoggingIn:
		f.IsAuthLoading = true
	case PhaseLoggingOut:
		f.IsLoggingOut = true
	case PhaseRefreshing:
		f.IsRefreshing = true
	case PhaseFailed:
		switch s.Op {
		case OpLogin:
			f.IsAuthError = true
		case OpLogout:
			f.IsLogoutError = true
		case OpRefresh:
			f.IsRefreshingError = true
		}
	}
	return f
}
