package state

// SessionPhase is the lifecycle position of the session
type SessionPhase int

const (
	// SessionInitializing is the phase before the stored session was checked
	SessionInitializing SessionPhase = iota
	SessionAuthenticated
	SessionUnauthenticated
	// SessionPending means a login or registration is in flight
	SessionPending
	// SessionFailed means the last login or registration failed
	SessionFailed
)

func (p SessionPhase) String() string {
	switch p {
	case SessionInitializing:
		return "initializing"
	case SessionAuthenticated:
		return "authenticated"
	case SessionUnauthenticated:
		return "unauthenticated"
	case SessionPending:
		return "pending"
	case SessionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MoviesPhase is the lifecycle position of the movie collection
type MoviesPhase int

const (
	MoviesIdle MoviesPhase = iota
	MoviesLoading
	MoviesReady
	MoviesFailed
)

func (p MoviesPhase) String() string {
	switch p {
	case MoviesIdle:
		return "idle"
	case MoviesLoading:
		return "loading"
	case MoviesReady:
		return "ready"
	case MoviesFailed:
		return "failed"
	default:
		return "unknown"
	}
}
