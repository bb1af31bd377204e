package stack

// =============================================================================
// Readiness Evaluation
// =============================================================================

// ServiceState is the observed state of one service, as reported by the
// container platform's structured status output.
type ServiceState struct {
	Service string
	State   string // "running", "exited", "created", ...
	Health  string // "healthy", "unhealthy", "starting", "" when no healthcheck
}

// Running reports whether the service's container is in the running state.
func (s ServiceState) Running() bool {
	return s.State == "running"
}

// Evaluation is the pure result of judging a set of observed service states.
type Evaluation struct {
	// Succeeded is true when at least one service is running. The stack's
	// web application takes minutes to bootstrap, so a partially running
	// stack still counts as a successful start.
	Succeeded bool

	// AllRunning is true when every observed service is running.
	AllRunning bool

	// RunningCount is the number of running services.
	RunningCount int

	// Total is the number of observed services. Zero means the platform
	// reported no containers for the stack at all.
	Total int
}

// Evaluate judges observed service states.
func Evaluate(states []ServiceState) Evaluation {
	eval := Evaluation{Total: len(states)}
	for _, s := range states {
		if s.Running() {
			eval.RunningCount++
		}
	}
	eval.Succeeded = eval.RunningCount > 0
	eval.AllRunning = eval.Total > 0 && eval.RunningCount == eval.Total
	return eval
}

// Settled reports whether polling can stop before the deadline: every
// service is running, or one has already given up (exited or dead).
func Settled(states []ServiceState) bool {
	if len(states) == 0 {
		return false
	}
	for _, s := range states {
		if s.State == "exited" || s.State == "dead" {
			return true
		}
		if !s.Running() {
			return false
		}
	}
	return true
}
