package connection

import (
	"sync"
	"time"
)

// Scheduler runs a function periodically until stopped.
type Scheduler interface {
	// Every calls fn every d until stop is called. stop is idempotent and
	// may be called from inside fn. fn is never called before Every returns.
	Every(d time.Duration, fn func()) (stop func())
}

// TickerScheduler is the production Scheduler backed by time.Ticker.
type TickerScheduler struct{}

// Every implements Scheduler.
func (TickerScheduler) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				// a stop racing with a tick wins
				select {
				case <-done:
					return
				default:
				}
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
