package monitor

import (
	"sync"
	"time"
)

// Cancel stops a scheduled callback. It is safe to call more than once.
type Cancel func()

// Scheduler drives the monitor's timers.
type Scheduler interface {
	// Every calls fn each time d elapses until cancelled.
	Every(d time.Duration, fn func()) Cancel
	// After calls fn once after d unless cancelled first.
	After(d time.Duration, fn func()) Cancel
}

// TimerScheduler is the wall-clock Scheduler.
type TimerScheduler struct{}

// Every runs fn on its own goroutine driven by a time.Ticker. Calls never overlap for one
// registration; ticks that arrive while fn is running are dropped by the ticker.
func (TimerScheduler) Every(d time.Duration, fn func()) Cancel {
	ticker := time.NewTicker(d)
	stopCh := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stopCh:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
		})
	}
}

// After wraps time.AfterFunc.
func (TimerScheduler) After(d time.Duration, fn func()) Cancel {
	timer := time.AfterFunc(d, fn)
	return func() {
		timer.Stop()
	}
}
