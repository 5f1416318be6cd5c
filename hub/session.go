package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sofolpay/realtime/token"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long a session may go silent before being dropped.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// readLimit caps inbound frames; clients only ever send pongs.
	readLimit = 4 << 10
	// sendBuffer is the per-session outbound queue.
	sendBuffer = 64
)

// Session is one connected client. Claims are pinned at handshake time
// and never change.
type Session struct {
	ID     string
	Claims *token.ConnectionClaims

	hub   *Hub
	conn  *websocket.Conn
	send  chan Event
	log   *logrus.Entry
	rooms map[string]struct{}
}

func newSession(h *Hub, conn *websocket.Conn, claims *token.ConnectionClaims) *Session {
	id := uuid.New().String()
	return &Session{
		ID:     id,
		Claims: claims,
		hub:    h,
		conn:   conn,
		send:   make(chan Event, sendBuffer),
		log:    logrus.WithFields(logrus.Fields{"component": "session", "session": id, "user_id": claims.UserID}),
		rooms:  make(map[string]struct{}),
	}
}

// run starts the read and write pumps and blocks until the connection
// drops, then removes the session from the hub.
func (s *Session) run() {
	go s.writePump()
	s.readPump()
}

// readPump discards inbound frames (the relay is one-way) but keeps the
// pong deadline alive so dead peers get collected.
func (s *Session) readPump() {
	// send is never closed: a broadcast may still hold a reference to this
	// session between snapshotting room members and delivering. Stale
	// buffered events are garbage collected with the session.
	defer func() {
		s.hub.remove(s)
		s.conn.Close()
		s.log.Debug("session closed")
	}()
	s.conn.SetReadLimit(readLimit)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case ev := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
