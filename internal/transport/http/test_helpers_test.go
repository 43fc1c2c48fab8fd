package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campusconnect-server/internal/auth"
	"github.com/campusconnect/campusconnect-server/internal/config"
	"github.com/campusconnect/campusconnect-server/internal/core"
	"github.com/campusconnect/campusconnect-server/internal/proto"
	"github.com/campusconnect/campusconnect-server/internal/store"
	"github.com/campusconnect/campusconnect-server/internal/store/sqlite"
)

const testSecret = "test-secret"

type testEnv struct {
	ts    *httptest.Server
	hub   *core.Hub
	store *sqlite.SQLiteStore
	jwt   *auth.JWTConfig
}

// received is the decoded shape of any outbound frame.
type received struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Room  string          `json:"room"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = testSecret
	cfg.JWTIssuer = "test"
	cfg.JWTAudience = "test"
	cfg.StoreTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	}

	logger := zerolog.Nop()
	hub := core.NewHub(st, &logger, cfg.StoreTimeout)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	resolver := core.NewResolver(auth.NewService(jwtConfig), st, &logger)
	ts := httptest.NewServer(NewServer(hub, resolver, &cfg, &logger).Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, hub: hub, store: st, jwt: jwtConfig}
}

func (e *testEnv) user(t *testing.T, name string, role store.Role) (*store.User, string) {
	t.Helper()

	u := &store.User{Name: name, Email: strings.ToLower(strings.ReplaceAll(name, " ", "")) + "@campus.edu", Role: role}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	token, err := auth.GenerateToken(e.jwt, u.ID, string(u.Role))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return u, token
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := &websocket.DialOptions{}
	if token != "" {
		opts.HTTPHeader = stdhttp.Header{"Authorization": []string{"Bearer " + token}}
	}

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, opts)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// next reads one frame. A read that times out closes the connection, so only call it
// when a frame is expected.
func next(t *testing.T, conn *websocket.Conn) received {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out received
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

// nextEvent reads frames until one carries event, failing on any frame listed in forbidden.
func nextEvent(t *testing.T, conn *websocket.Conn, event string, forbidden ...string) received {
	t.Helper()

	for {
		out := next(t, conn)
		for _, f := range forbidden {
			if out.Event == f {
				t.Fatalf("unexpected %s event: %s", f, string(out.Data))
			}
		}
		if out.Type == proto.OutboundTypeEvent && out.Event == event {
			return out
		}
	}
}

// waitOnline reads until an online-users snapshot for room equals want.
func waitOnline(t *testing.T, conn *websocket.Conn, room string, want ...int64) {
	t.Helper()

	for {
		out := nextEvent(t, conn, proto.EventOnlineUsers)
		if out.Room != room {
			continue
		}
		var ids []int64
		if err := json.Unmarshal(out.Data, &ids); err != nil {
			t.Fatalf("decode online-users: %v", err)
		}
		if slices.Equal(ids, want) {
			return
		}
	}
}

func decodeMessage(t *testing.T, out received) proto.EventMessage {
	t.Helper()

	var msg proto.EventMessage
	if err := json.Unmarshal(out.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return msg
}
