// Package ws streams the live run feed to websocket clients.
package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"reusability-token/internal/metrics"
	"reusability-token/internal/report"
)

const writeTimeout = 10 * time.Second

type Client struct {
	conn *websocket.Conn
	id   string
}

type Server struct {
	feed     *report.Feed
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*Client]bool
}

func NewServer(feed *report.Feed) *Server {
	return &Server{
		feed:     feed,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[*Client]bool{},
	}
}

// HandleWS replays buffered events newer than the last_event_id query
// parameter, then forwards live ones until either side goes away.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	disconnect := metrics.Feed().Connected("ws")
	defer disconnect()

	c := &Client{conn: conn, id: r.RemoteAddr}
	ch := s.feed.Subscribe()
	s.register(c)
	log.Debug().Str("client", c.id).Msg("feed websocket opened")

	go s.writeLoop(c, ch, r.URL.Query().Get("last_event_id"))
	s.readLoop(c)

	s.feed.Unsubscribe(ch)
	s.unregister(c)
	log.Debug().Str("client", c.id).Msg("feed websocket closed")
}

// Clients reports how many websocket clients are connected.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// readLoop only drains control frames; the feed is one way.
func (s *Server) readLoop(c *Client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *Client, ch chan report.FeedEvent, lastEventID string) {
	defer c.conn.Close()

	last := parseEventID(lastEventID)
	for _, ev := range s.feed.ReplayAfter(lastEventID) {
		if err := c.write(ev); err != nil {
			return
		}
		last = parseEventID(ev.EventID)
	}
	for ev := range ch {
		// Events appended while replaying arrive on both paths.
		if parseEventID(ev.EventID) <= last {
			continue
		}
		if err := c.write(ev); err != nil {
			return
		}
		last = parseEventID(ev.EventID)
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed closed"),
		time.Now().Add(writeTimeout))
}

func (c *Client) write(ev report.FeedEvent) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return err
	}
	metrics.Feed().Sent("ws")
	return nil
}

func (s *Server) register(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = true
}

func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

func parseEventID(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
