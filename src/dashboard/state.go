package dashboard

import "time"

// State is a step of the refresh loop.
type State int

const (
	Idle State = iota
	Fetching
	Rendering
	WaitingForInterval
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Rendering:
		return "rendering"
	case WaitingForInterval:
		return "waiting"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Clock abstracts time so the loop can be driven by tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall clock.
func RealClock() Clock {
	return realClock{}
}
