package backtester

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedExecution struct {
	at time.Time
}

type recordingEvent struct {
	at      time.Time
	history *[]recordedExecution
}

func (e *recordingEvent) Timestamp() time.Time { return e.at }
func (e *recordingEvent) Execute() {
	*e.history = append(*e.history, recordedExecution{at: e.at})
}

func TestEventHandlerOrdersByTimestampThenArrival(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	handler := NewEventHandler(start, start.Add(time.Hour))

	var history []recordedExecution
	handler.Add(&recordingEvent{at: start.Add(2 * time.Second), history: &history})
	handler.Add(&recordingEvent{at: start.Add(1 * time.Second), history: &history})
	handler.Add(&recordingEvent{at: start.Add(1 * time.Second), history: &history})
	handler.Close()

	handler.Run()

	require.Len(t, history, 3)
	require.Equal(t, start.Add(1*time.Second), history[0].at)
	require.Equal(t, start.Add(1*time.Second), history[1].at)
	require.Equal(t, start.Add(2*time.Second), history[2].at)
}

func TestEventHandlerAdvancesLogicalTimeToEachEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	handler := NewEventHandler(start, start.Add(time.Hour))

	var observed []time.Time
	handler.Add(&funcEvent{at: start.Add(5 * time.Second), fn: func() {
		observed = append(observed, handler.GetTime())
	}})
	handler.Close()
	handler.Run()

	require.Equal(t, []time.Time{start.Add(5 * time.Second)}, observed)
}

func TestEventHandlerStopsDrainingPastEndTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Second)
	handler := NewEventHandler(start, end)

	var history []recordedExecution
	handler.Add(&recordingEvent{at: start.Add(5 * time.Second), history: &history})
	handler.Add(&recordingEvent{at: end.Add(time.Second), history: &history})
	handler.Close()

	handler.Run()

	require.Len(t, history, 1)
}

func TestEventHandlerEventCanEnqueueFurtherEvents(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	handler := NewEventHandler(start, start.Add(time.Hour))

	var history []recordedExecution
	var chain func()
	remaining := 3
	chain = func() {
		history = append(history, recordedExecution{at: handler.GetTime()})
		remaining--
		if remaining > 0 {
			handler.Add(&funcEvent{at: handler.GetTime().Add(time.Second), fn: chain})
		} else {
			handler.Close()
		}
	}
	handler.Add(&funcEvent{at: start.Add(time.Second), fn: chain})

	handler.Run()

	require.Len(t, history, 3)
}

type funcEvent struct {
	at time.Time
	fn func()
}

func (e *funcEvent) Timestamp() time.Time { return e.at }
func (e *funcEvent) Execute()             { e.fn() }
