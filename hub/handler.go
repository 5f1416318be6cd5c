package hub

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sofolpay/realtime/origin"
	"github.com/sofolpay/realtime/trust"
)

// SnapshotSource yields the trust snapshot a handshake verifies against.
type SnapshotSource interface {
	Snapshot() *trust.Snapshot
}

// Handler upgrades inbound connections after gating them. The handshake
// token travels in the "token" query parameter.
type Handler struct {
	hub      *Hub
	trust    SnapshotSource
	upgrader websocket.Upgrader
}

// NewHandler wires the hub to the origin guard and trust store.
func NewHandler(h *Hub, guard *origin.Guard, src SnapshotSource) *Handler {
	return &Handler{
		hub:   h,
		trust: src,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return guard.IsOriginAllowed(r.Header.Get("Origin"))
			},
		},
	}
}

// ServeHTTP gates and then upgrades a connection attempt. Rejections are
// delivered before the upgrade as a 401 carrying the reason string, so
// clients see why the handshake failed.
func (hd *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, reject := Gate(r.Context(), r.URL.Query().Get("token"), hd.trust.Snapshot())
	if reject != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "message": reject})
		return
	}

	conn, err := hd.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error (including origin denials).
		return
	}

	s := newSession(hd.hub, conn, claims)
	hd.hub.register(s)
	for _, room := range Rooms(claims) {
		hd.hub.Join(s, room)
	}
	s.log.Info("session connected")

	s.send <- Event{Name: "connected", Data: map[string]any{"ok": true}}
	s.run()
}
