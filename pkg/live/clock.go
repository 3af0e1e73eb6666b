package live

import "time"

// Clock abstracts timer scheduling so expiry behavior is testable without
// real time.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable scheduled callback.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock schedules on real time.
var SystemClock Clock = systemClock{}
