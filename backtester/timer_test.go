package backtester

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerExpiresAtIntervalWhenNotCanceled(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	handler := NewEventHandler(start, start.Add(time.Hour))
	timer := NewTimer(5*time.Second, handler)

	var result TimerResult
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		result = timer.Wait()
	}()

	timer.Start()
	handler.Add(&funcEvent{at: start.Add(time.Hour), fn: handler.Close})
	handler.Run()
	wg.Wait()

	require.Equal(t, TimerExpired, result)
}

func TestTimerCancelSuppressesPendingExpiry(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	handler := NewEventHandler(start, start.Add(time.Hour))
	timer := NewTimer(5*time.Second, handler)

	var result TimerResult
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		result = timer.Wait()
	}()

	timer.Start()
	go func() {
		timer.Cancel()
		handler.Close()
	}()
	handler.Run()
	wg.Wait()

	require.Equal(t, TimerCanceled, result)
}
