package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/studyhall/roomchat/internal/config"
	"github.com/studyhall/roomchat/internal/core"
	"github.com/studyhall/roomchat/internal/identity"
	"github.com/studyhall/roomchat/internal/proto"
	"github.com/studyhall/roomchat/internal/store"
	"github.com/studyhall/roomchat/internal/store/sqlite"
)

func startTestServer(t *testing.T) (*httptest.Server, *sqlite.Store, *identity.JWTConfig) {
	t.Helper()

	logger := zerolog.Nop()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	jwtCfg := &identity.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "roomchat",
		Audience: "roomchat-clients",
		TTL:      time.Hour,
	}

	cfg := config.Default()
	cfg.Addr = ":0"

	registry := core.NewRegistry(&logger)
	ids := identity.NewJWTProvider(jwtCfg, &logger)
	server := NewServer(registry, st, ids, cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, st, jwtCfg
}

func wsURL(ts *httptest.Server, room string) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws/" + room
}

func dial(ctx context.Context, t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendMessage(ctx context.Context, t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()

	if err := wsjson.Write(ctx, conn, proto.Inbound{Message: &text}); err != nil {
		t.Fatalf("write message: %v", err)
	}
}

func readOutbound(ctx context.Context, t *testing.T, conn *websocket.Conn) proto.Outbound {
	t.Helper()

	var out proto.Outbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestAnonymousBroadcastIsLiveButNotPersisted(t *testing.T) {
	ts, st, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dial(ctx, t, wsURL(ts, "math"))

	// A's own echo proves its session is registered before B connects.
	sendMessage(ctx, t, connA, "warming up")
	if out := readOutbound(ctx, t, connA); out.Username != identity.AnonymousName {
		t.Fatalf("unexpected echo: %+v", out)
	}

	connB := dial(ctx, t, wsURL(ts, "math"))
	sendMessage(ctx, t, connB, "ping")

	// B sees its own echo; A sees the live broadcast. Neither frame was
	// preceded by a replay since anonymous traffic leaves no history.
	for _, conn := range []*websocket.Conn{connB, connA} {
		out := readOutbound(ctx, t, conn)
		if out.Message != "ping" || out.Username != identity.AnonymousName {
			t.Fatalf("unexpected outbound: %+v", out)
		}
		if out.Timestamp == "" {
			t.Fatal("outbound missing timestamp")
		}
	}

	msgs, err := st.Recent(ctx, "math", 20)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("anonymous traffic was persisted: %+v", msgs)
	}
}

func TestAuthenticatedMessagePersistedAndReplayed(t *testing.T) {
	ts, st, jwtCfg := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := identity.GenerateToken(jwtCfg, "alice")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	alice := dial(ctx, t, wsURL(ts, "general")+"?token="+token)
	sendMessage(ctx, t, alice, "hi")

	// Alice's echo arrives after the append completed.
	out := readOutbound(ctx, t, alice)
	if out.Message != "hi" || out.Username != "alice" {
		t.Fatalf("unexpected echo: %+v", out)
	}

	msgs, err := st.Recent(ctx, "general", 20)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Author != "alice" || msgs[0].Body != "hi" {
		t.Fatalf("unexpected persisted messages: %+v", msgs)
	}

	// A late joiner gets the history before any live traffic.
	carol := dial(ctx, t, wsURL(ts, "general"))
	replayed := readOutbound(ctx, t, carol)
	if replayed.Message != "hi" || replayed.Username != "alice" {
		t.Fatalf("unexpected replay: %+v", replayed)
	}

	sendMessage(ctx, t, alice, "welcome carol")
	live := readOutbound(ctx, t, carol)
	if live.Message != "welcome carol" || live.Username != "alice" {
		t.Fatalf("unexpected live frame after replay: %+v", live)
	}
}

func TestMalformedPayloadIsDroppedConnectionStaysOpen(t *testing.T) {
	ts, _, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(ctx, t, wsURL(ts, "general"))

	// Garbage and a well-formed payload without the message key are both
	// dropped without costing the connection.
	if err := conn.Write(ctx, websocket.MessageText, []byte("this is not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"note":"wrong key"}`)); err != nil {
		t.Fatalf("write keyless payload: %v", err)
	}

	// The connection survives: a well-formed message still round-trips.
	sendMessage(ctx, t, conn, "still alive")
	out := readOutbound(ctx, t, conn)
	if out.Message != "still alive" {
		t.Fatalf("unexpected outbound: %+v", out)
	}
}

func TestEmptyMessageIsBroadcastNotDropped(t *testing.T) {
	ts, _, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(ctx, t, wsURL(ts, "general"))

	// An empty message is well-formed and travels like any other.
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"message":""}`)); err != nil {
		t.Fatalf("write empty message: %v", err)
	}

	out := readOutbound(ctx, t, conn)
	if out.Message != "" || out.Username != identity.AnonymousName || out.Timestamp == "" {
		t.Fatalf("unexpected outbound: %+v", out)
	}
}

// failingStore refuses every operation, as a database that is down would.
type failingStore struct{}

func (failingStore) Append(context.Context, string, string, string, time.Time) (int64, error) {
	return 0, errors.New("storage offline")
}

func (failingStore) Recent(context.Context, string, int) ([]*store.Message, error) {
	return nil, errors.New("storage offline")
}

func TestJoinSurvivesHistoryFailure(t *testing.T) {
	logger := zerolog.Nop()

	cfg := config.Default()
	cfg.Addr = ":0"

	registry := core.NewRegistry(&logger)
	ids := identity.NewJWTProvider(&identity.JWTConfig{Secret: []byte("test-secret")}, &logger)
	server := NewServer(registry, failingStore{}, ids, cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The client joins without replay and live traffic still flows.
	conn := dial(ctx, t, wsURL(ts, "general"))
	sendMessage(ctx, t, conn, "anyone home")

	out := readOutbound(ctx, t, conn)
	if out.Message != "anyone home" || out.Username != identity.AnonymousName {
		t.Fatalf("unexpected outbound: %+v", out)
	}
}

func TestRoomsDoNotLeakAcrossPaths(t *testing.T) {
	ts, _, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	general := dial(ctx, t, wsURL(ts, "general"))
	sendMessage(ctx, t, general, "sync")
	readOutbound(ctx, t, general)

	math := dial(ctx, t, wsURL(ts, "math"))
	sendMessage(ctx, t, math, "numbers only")
	out := readOutbound(ctx, t, math)
	if out.Message != "numbers only" {
		t.Fatalf("unexpected outbound: %+v", out)
	}

	// general must not see math's message; its next frame is its own.
	sendMessage(ctx, t, general, "anything new?")
	out = readOutbound(ctx, t, general)
	if out.Message != "anything new?" {
		t.Fatalf("cross-room leak: %+v", out)
	}
}
