package report

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNoRun       = errors.New("run_not_started")
	ErrDayNotFound = errors.New("day_not_found")
)

const (
	EventRunStarted  = "run_started"
	EventDay         = "day"
	EventRunFinished = "run_finished"
)

// Reader is the read side of a recorder used by the HTTP and MCP surfaces.
type Reader interface {
	Summary() (Summary, error)
	Latest() (Day, error)
	Day(day int) (Day, error)
	Days(limit, offset int) ([]Day, int)
	Feed() *Feed
}

// Recorder keeps the history of the current run for readers on other
// goroutines and republishes every update on its feed.
type Recorder struct {
	mu      sync.RWMutex
	summary *Summary
	days    []Day
	feed    *Feed
}

func NewRecorder(feedSize int) *Recorder {
	return &Recorder{feed: NewFeed(feedSize)}
}

func (r *Recorder) Feed() *Feed {
	return r.feed
}

func (r *Recorder) ObserveStart(_ context.Context, s Summary) error {
	r.mu.Lock()
	r.summary = &s
	r.days = nil
	r.mu.Unlock()
	r.feed.Append(EventRunStarted, s.RunID, s)
	return nil
}

func (r *Recorder) ObserveDay(_ context.Context, d Day) error {
	r.mu.Lock()
	r.days = append(r.days, d)
	runID := ""
	if r.summary != nil {
		runID = r.summary.RunID
		r.summary.DaysRun = len(r.days)
	}
	r.mu.Unlock()
	r.feed.Append(EventDay, runID, d)
	return nil
}

func (r *Recorder) ObserveFinish(_ context.Context, s Summary) error {
	r.mu.Lock()
	r.summary = &s
	r.mu.Unlock()
	r.feed.Append(EventRunFinished, s.RunID, s)
	return nil
}

func (r *Recorder) Summary() (Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.summary == nil {
		return Summary{}, ErrNoRun
	}
	return *r.summary, nil
}

func (r *Recorder) Latest() (Day, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.days) == 0 {
		return Day{}, ErrDayNotFound
	}
	return r.days[len(r.days)-1], nil
}

func (r *Recorder) Day(day int) (Day, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.days {
		if d.Day == day {
			return d, nil
		}
	}
	return Day{}, ErrDayNotFound
}

// Days returns a page of recorded days in order.
func (r *Recorder) Days(limit, offset int) ([]Day, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := len(r.days)
	if offset >= total {
		return []Day{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]Day, end-offset)
	copy(out, r.days[offset:end])
	return out, total
}
