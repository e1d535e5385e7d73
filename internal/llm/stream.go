package llm

import (
	"context"
	"io"
)

// eventStream adapts a producer function into a Stream. The producer runs in
// its own goroutine and sends events on the channel; when it returns, Recv
// drains remaining events and then surfaces the producer's error, or io.EOF
// on clean completion. Close cancels the producer's context.
type eventStream struct {
	events <-chan Event
	errc   <-chan error
	cancel context.CancelFunc
	err    error
	done   bool
}

func newEventStream(ctx context.Context, produce func(ctx context.Context, events chan<- Event) error) Stream {
	ctx, cancel := context.WithCancel(ctx)
	events := make(chan Event, 16)
	errc := make(chan error, 1)

	go func() {
		err := produce(ctx, events)
		close(events)
		errc <- err
	}()

	return &eventStream{events: events, errc: errc, cancel: cancel}
}

func (s *eventStream) Recv() (Event, error) {
	if s.done {
		if s.err != nil {
			return Event{}, s.err
		}
		return Event{}, io.EOF
	}

	event, ok := <-s.events
	if ok {
		return event, nil
	}

	s.done = true
	s.err = <-s.errc
	if s.err != nil {
		return Event{}, s.err
	}
	return Event{}, io.EOF
}

func (s *eventStream) Close() error {
	s.cancel()
	return nil
}

// emit sends an event unless the stream's context has been canceled. It
// keeps producers from blocking forever when the consumer stops early.
func emit(ctx context.Context, events chan<- Event, event Event) error {
	select {
	case events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sliceStream replays a fixed event slice. Used by tests and by providers
// that buffer a full response.
type sliceStream struct {
	events []Event
	index  int
}

// NewSliceStream returns a Stream that replays events in order.
func NewSliceStream(events []Event) Stream {
	return &sliceStream{events: events}
}

func (s *sliceStream) Recv() (Event, error) {
	if s.index >= len(s.events) {
		return Event{}, io.EOF
	}
	event := s.events[s.index]
	s.index++
	return event, nil
}

func (s *sliceStream) Close() error {
	return nil
}
