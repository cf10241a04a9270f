package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"reusability-token/internal/metrics"
	"reusability-token/internal/report"
)

var ssePingInterval = 15 * time.Second

// FeedSSEHandler streams the run feed as server-sent events, resuming after
// Last-Event-ID when the client sends one.
func FeedSSEHandler(feed *report.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}
		disconnect := metrics.Feed().Connected("sse")
		defer disconnect()

		setSSEHeaders(w)
		reqID := chimw.GetReqID(r.Context())
		log.Debug().Str("request_id", reqID).Msg("sse stream opened")

		ch := feed.Subscribe()
		defer feed.Unsubscribe(ch)

		lastEventID := r.Header.Get("Last-Event-ID")
		if lastEventID == "" {
			lastEventID = r.URL.Query().Get("last_event_id")
		}
		last := lastEventID
		for _, ev := range feed.ReplayAfter(lastEventID) {
			if err := writeSSE(w, ev); err != nil {
				return
			}
			last = ev.EventID
		}
		flusher.Flush()

		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				log.Debug().Str("request_id", reqID).Err(r.Context().Err()).Msg("sse stream closed")
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if !after(ev.EventID, last) {
					continue
				}
				if err := writeSSE(w, ev); err != nil {
					return
				}
				last = ev.EventID
				flusher.Flush()
			case <-ticker.C:
				ping := report.FeedEvent{Event: "ping", ServerTS: time.Now().UnixMilli()}
				if err := writeSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

func writeSSE(w http.ResponseWriter, ev report.FeedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.EventID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", ev.EventID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Event, data); err != nil {
		return err
	}
	if ev.EventID != "" {
		metrics.Feed().Sent("sse")
	}
	return nil
}

// after reports whether event id a comes after b. Ids are decimal sequence
// numbers, so longer means later.
func after(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
