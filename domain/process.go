package domain

import "time"

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

// ToStatus converts the single letter status reported by the OS.
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

// ProcessStats is a periodic snapshot of the server process.
type ProcessStats struct {
	PID         int32
	Status      PidStatus
	CPUPercent  float64
	RSS         uint64
	Goroutines  int
	OnlineUsers int
	At          time.Time
}
