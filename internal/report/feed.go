package report

import (
	"strconv"
	"sync"
	"time"
)

type FeedEvent struct {
	EventID  string `json:"event_id"`
	Event    string `json:"event"`
	RunID    string `json:"run_id"`
	ServerTS int64  `json:"server_ts"`
	Data     any    `json:"data"`
}

// Feed keeps the last max events for replay and pushes new ones to
// subscribers. Slow subscribers miss events rather than stall the run.
type Feed struct {
	mu       sync.Mutex
	nextID   int64
	max      int
	events   []FeedEvent
	watchers map[chan FeedEvent]struct{}
	closed   bool
}

func NewFeed(max int) *Feed {
	if max <= 0 {
		max = 500
	}
	return &Feed{
		max:      max,
		watchers: map[chan FeedEvent]struct{}{},
	}
}

func (f *Feed) Append(event, runID string, data any) FeedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return FeedEvent{}
	}
	f.nextID++
	ev := FeedEvent{
		EventID:  strconv.FormatInt(f.nextID, 10),
		Event:    event,
		RunID:    runID,
		ServerTS: time.Now().UnixMilli(),
		Data:     data,
	}
	f.events = append(f.events, ev)
	if len(f.events) > f.max {
		f.events = f.events[len(f.events)-f.max:]
	}
	for ch := range f.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// ReplayAfter returns buffered events newer than lastEventID, or all of them
// when lastEventID is empty or malformed.
func (f *Feed) ReplayAfter(lastEventID string) []FeedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	last, err := strconv.ParseInt(lastEventID, 10, 64)
	if lastEventID == "" || err != nil {
		out := make([]FeedEvent, len(f.events))
		copy(out, f.events)
		return out
	}
	out := make([]FeedEvent, 0, len(f.events))
	for _, ev := range f.events {
		id, _ := strconv.ParseInt(ev.EventID, 10, 64)
		if id > last {
			out = append(out, ev)
		}
	}
	return out
}

func (f *Feed) Subscribe() chan FeedEvent {
	ch := make(chan FeedEvent, 32)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch
	}
	f.watchers[ch] = struct{}{}
	return ch
}

func (f *Feed) Unsubscribe(ch chan FeedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.watchers[ch]; ok {
		delete(f.watchers, ch)
		close(ch)
	}
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.watchers {
		close(ch)
		delete(f.watchers, ch)
	}
}
