package domain

type PID int32
type PidStatus string

const (
	RUNNING PidStatus = "RUNNING"
	SLEEP   PidStatus = "SLEEP"
	STOP    PidStatus = "STOP"
	IDLE    PidStatus = "IDLE"
	ZOMBIE  PidStatus = "ZOMBIE"
	WAIT    PidStatus = "WAIT"
	LOCK    PidStatus = "LOCK"
	UNKNOWN PidStatus = "UNKNOWN"
)

func ToStatus(status string) PidStatus {
	switch status {
	case "R":
		return RUNNING
	case "S":
		return SLEEP
	case "T":
		return STOP
	case "I":
		return IDLE
	case "Z":
		return ZOMBIE
	case "W":
		return WAIT
	case "L":
		return LOCK
	default:
		return UNKNOWN
	}
}

// ProcessHealth is a sample of the relay process resources.
type ProcessHealth struct {
	PID    PID
	Status PidStatus
	CPU    float64
	RAM    float32
}

// RelayHealth is what the health worker reports on every tick.
type RelayHealth struct {
	Process        ProcessHealth
	Goroutines     int
	ActiveSessions int
	Identities     int
	Buffered       int
}

// NewRelayHealth aggregates the session side of the report.
func NewRelayHealth(process ProcessHealth, goroutines int, sessions []SessionInfo) RelayHealth {
	identities := make(map[Identity]struct{}, len(sessions))
	buffered := 0
	for _, s := range sessions {
		identities[s.Identity] = struct{}{}
		buffered += s.Buffered
	}
	return RelayHealth{
		Process:        process,
		Goroutines:     goroutines,
		ActiveSessions: len(sessions),
		Identities:     len(identities),
		Buffered:       buffered,
	}
}
