package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards connect cross-origin; the API is read-only here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	firehoseWriteWait  = 10 * time.Second
	firehosePingPeriod = 30 * time.Second
)

// HandleMetricsFirehose streams every recorded performance metric to the
// client over a WebSocket. Delivery is best effort: a client that cannot
// keep up misses events instead of slowing request handling down.
func (s *Server) HandleMetricsFirehose(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("firehose upgrade failed: %v", err)
		return
	}

	id, events := s.hub.Register()
	defer s.hub.Unregister(id)
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Debugf("closing firehose connection: %v", err)
		}
	}()

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(firehosePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(firehoseWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(firehoseWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
