package health

// Phase tracks where a health check is in its lifecycle. The only terminal
// phases are Healthy and Failed.
type Phase uint8

const (
	PhaseRestarting Phase = iota + 1
	PhaseWaitSocket
	PhaseWaitHTTP
	PhaseHealthy
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseRestarting:
		return "restarting"
	case PhaseWaitSocket:
		return "waiting_for_socket"
	case PhaseWaitHTTP:
		return "waiting_for_http"
	case PhaseHealthy:
		return "healthy"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (p Phase) IsValid() bool {
	switch p {
	case PhaseRestarting, PhaseWaitSocket, PhaseWaitHTTP, PhaseHealthy, PhaseFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the check is finished.
func (p Phase) Terminal() bool {
	return p == PhaseHealthy || p == PhaseFailed
}

// CanTransition reports whether moving from p to next is legal.
func (p Phase) CanTransition(next Phase) bool {
	switch p {
	case PhaseRestarting:
		return next == PhaseWaitSocket || next == PhaseFailed
	case PhaseWaitSocket:
		return next == PhaseWaitHTTP || next == PhaseHealthy || next == PhaseFailed
	case PhaseWaitHTTP:
		return next == PhaseHealthy || next == PhaseFailed
	default:
		return false
	}
}
