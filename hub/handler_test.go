package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sofolpay/realtime/origin"
	"github.com/sofolpay/realtime/testkit"
	"github.com/sofolpay/realtime/trust"
)

type staticSource struct{ snap *trust.Snapshot }

func (s staticSource) Snapshot() *trust.Snapshot { return s.snap }

func newTestServer(t *testing.T, issuer *testkit.Issuer, origins ...string) (*Hub, *httptest.Server) {
	t.Helper()
	h := New()
	src := staticSource{issuer.Snapshot(origins...)}
	handler := NewHandler(h, origin.NewGuard("", src), src)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return h, srv
}

func wsURL(srv *httptest.Server, tok string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	if tok != "" {
		u += "?token=" + tok
	}
	return u
}

func dial(t *testing.T, rawURL string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(rawURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func waitForCondition(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for " + what)
}

func TestConnectJoinsDerivedRooms(t *testing.T) {
	issuer := testkit.NewIssuer()
	h, srv := newTestServer(t, issuer)

	conn := dial(t, wsURL(srv, issuer.ConnectionToken("42", "7")), nil)
	if ev := readEvent(t, conn); ev.Name != "connected" {
		t.Errorf("first event = %q, want connected", ev.Name)
	}

	waitForCondition(t, "session registration", func() bool {
		clients, rooms := h.Counts()
		return clients == 1 && rooms == 2
	})

	h.mu.RLock()
	_, inUser := h.rooms["u:42"]
	_, inPayment := h.rooms["u:42:p:7"]
	_, inOther := h.rooms["u:42:p:8"]
	h.mu.RUnlock()
	if !inUser || !inPayment || inOther {
		t.Error("membership should be exactly {u:42, u:42:p:7}")
	}
}

func TestConnectWithoutPaymentScope(t *testing.T) {
	issuer := testkit.NewIssuer()
	h, srv := newTestServer(t, issuer)

	conn := dial(t, wsURL(srv, issuer.ConnectionToken("42", "")), nil)
	readEvent(t, conn)

	waitForCondition(t, "session registration", func() bool {
		clients, rooms := h.Counts()
		return clients == 1 && rooms == 1
	})
}

func TestBroadcastReachesConnectedSession(t *testing.T) {
	issuer := testkit.NewIssuer()
	h, srv := newTestServer(t, issuer)

	conn := dial(t, wsURL(srv, issuer.ConnectionToken("42", "7")), nil)
	readEvent(t, conn)
	waitForCondition(t, "room membership", func() bool {
		_, rooms := h.Counts()
		return rooms == 2
	})

	h.Broadcast("u:42:p:7", Event{Name: "payment_completed", Data: map[string]any{"paid": true}})
	ev := readEvent(t, conn)
	if ev.Name != "payment_completed" {
		t.Errorf("event = %q", ev.Name)
	}
	data, ok := ev.Data.(map[string]any)
	if !ok || data["paid"] != true {
		t.Errorf("data = %#v", ev.Data)
	}
}

func TestHandshakeRejectsMissingToken(t *testing.T) {
	issuer := testkit.NewIssuer()
	_, srv := newTestServer(t, issuer)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err == nil {
		t.Fatal("dial should fail without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %v, want 401", resp)
	}
}

func TestHandshakeRejectsForeignToken(t *testing.T) {
	issuer := testkit.NewIssuer()
	_, srv := newTestServer(t, issuer)

	other := testkit.NewIssuer()
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, other.ConnectionToken("42", "")), nil)
	if err == nil {
		t.Fatal("dial should fail with a foreign-key token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %v, want 401", resp)
	}
}

func TestHandshakeRejectsDisallowedOrigin(t *testing.T) {
	issuer := testkit.NewIssuer()
	_, srv := newTestServer(t, issuer, "shop.example.com")

	header := http.Header{"Origin": []string{"https://evil.tld"}}
	if _, _, err := websocket.DefaultDialer.Dial(wsURL(srv, issuer.ConnectionToken("42", "")), header); err == nil {
		t.Fatal("dial should fail from a disallowed origin")
	}
}

func TestHandshakeAllowsListedOrigin(t *testing.T) {
	issuer := testkit.NewIssuer()
	_, srv := newTestServer(t, issuer, "*.example.com")

	header := http.Header{"Origin": []string{"https://shop.example.com"}}
	conn := dial(t, wsURL(srv, issuer.ConnectionToken("42", "")), header)
	if ev := readEvent(t, conn); ev.Name != "connected" {
		t.Errorf("event = %q", ev.Name)
	}
}

func TestDisconnectRemovesMembership(t *testing.T) {
	issuer := testkit.NewIssuer()
	h, srv := newTestServer(t, issuer)

	conn := dial(t, wsURL(srv, issuer.ConnectionToken("42", "7")), nil)
	readEvent(t, conn)
	waitForCondition(t, "session registration", func() bool {
		clients, _ := h.Counts()
		return clients == 1
	})

	conn.Close()
	waitForCondition(t, "session removal", func() bool {
		clients, rooms := h.Counts()
		return clients == 0 && rooms == 0
	})
}
