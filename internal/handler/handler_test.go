package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/history"
	"relaychat/internal/app/message"
	"relaychat/internal/app/presence"
	"relaychat/internal/app/ws"
	"relaychat/internal/configs"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestDeps(cfg *configs.AppConfig) *AppDeps {
	registry := presence.NewRegistry(8)
	hub := ws.NewHub(registry, 16)
	manager := chat.NewManager(registry, history.NewStore(), hub, chat.Options{MaxContentBytes: 32})

	return &AppDeps{Manager: manager, Hub: hub, Config: cfg}
}

func devConfig() *configs.AppConfig {
	return &configs.AppConfig{Environment: "development", Port: 8080}
}

func do(t *testing.T, h http.Handler, method, target, body string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestHealth(t *testing.T) {
	req := require.New(t)
	deps := newTestDeps(devConfig())
	h := Router(deps)

	// Given one online user
	_, err := deps.Manager.SubmitJoin("alice", "Alice", "")
	req.Nil(err)

	// When the health endpoint is hit
	status, env := do(t, h, http.MethodGet, "/health", "")

	// Then it reports the service and the online count
	req.Equal(http.StatusOK, status)
	req.Equal(0, env.Code)
	var data map[string]any
	req.NoError(json.Unmarshal(env.Data, &data))
	req.Equal("ok", data["status"])
	req.Equal(ServiceName, data["service"])
	req.EqualValues(1, data["online"])
}

func TestListOnlineUsers(t *testing.T) {
	req := require.New(t)
	deps := newTestDeps(devConfig())
	h := Router(deps)

	_, err := deps.Manager.SubmitJoin("alice", "Alice", "")
	req.Nil(err)
	_, err = deps.Manager.SubmitJoin("bob", "", "")
	req.Nil(err)

	status, env := do(t, h, http.MethodGet, "/api/users/online", "")

	req.Equal(http.StatusOK, status)
	var online map[string]string
	req.NoError(json.Unmarshal(env.Data, &online))
	req.Equal(map[string]string{"alice": "Alice", "bob": "bob"}, online)
}

func TestSendMessageAndHistory(t *testing.T) {
	req := require.New(t)
	h := Router(newTestDeps(devConfig()))

	// When alice posts two messages, one to bob and one to carol
	status, env := do(t, h, http.MethodPost, "/api/chat/messages", `{"content":"hi","sender":"alice","receiver":"bob"}`)
	req.Equal(http.StatusOK, status)
	var routed message.Message
	req.NoError(json.Unmarshal(env.Data, &routed))
	req.NotEmpty(routed.ID)
	req.Equal(message.TypeChat, routed.Type)
	req.False(routed.Timestamp.IsZero())

	status, _ = do(t, h, http.MethodPost, "/api/chat/messages", `{"content":"yo","sender":"alice","receiver":"carol"}`)
	req.Equal(http.StatusOK, status)

	// Then alice's log holds both, bob's only his
	_, env = do(t, h, http.MethodGet, "/api/chat/history/alice", "")
	var aliceLog []message.Message
	req.NoError(json.Unmarshal(env.Data, &aliceLog))
	req.Len(aliceLog, 2)

	_, env = do(t, h, http.MethodGet, "/api/chat/history/bob", "")
	var bobLog []message.Message
	req.NoError(json.Unmarshal(env.Data, &bobLog))
	req.Len(bobLog, 1)
	req.Equal(routed.ID, bobLog[0].ID)

	// And the pair filter keeps the alice/bob exchange only
	_, env = do(t, h, http.MethodGet, "/api/chat/history/alice/bob", "")
	var between []message.Message
	req.NoError(json.Unmarshal(env.Data, &between))
	req.Len(between, 1)
	req.Equal("hi", between[0].Content)
}

func TestGetHistory_UnknownUserIsEmptyList(t *testing.T) {
	req := require.New(t)
	h := Router(newTestDeps(devConfig()))

	status, env := do(t, h, http.MethodGet, "/api/chat/history/nobody", "")

	req.Equal(http.StatusOK, status)
	req.JSONEq(`[]`, string(env.Data))
}

func TestSendMessage_Rejected(t *testing.T) {
	h := Router(newTestDeps(devConfig()))

	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   int
	}{
		{"missing sender", `{"content":"hi","receiver":"bob"}`, http.StatusBadRequest, errs.ErrInvalidParams},
		{"unknown field", `{"content":"hi","sender":"alice","extra":1}`, http.StatusBadRequest, errs.ErrInvalidJSONFormat},
		{"trailing data", `{"content":"hi","sender":"alice"}{}`, http.StatusBadRequest, errs.ErrExtraContentInBody},
		{"too long", `{"content":"` + strings.Repeat("x", 33) + `","sender":"alice","receiver":"bob"}`, http.StatusBadRequest, errs.ErrMessageContentTooLong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := do(t, h, http.MethodPost, "/api/chat/messages", tc.body)
			require.Equal(t, tc.wantStatus, status)
			require.Equal(t, tc.wantCode, env.Code)
		})
	}
}

func TestSendMessage_AfterShutdown(t *testing.T) {
	deps := newTestDeps(devConfig())
	h := Router(deps)
	deps.Manager.Shutdown()

	status, env := do(t, h, http.MethodPost, "/api/chat/messages", `{"content":"hi","sender":"alice","receiver":"bob"}`)

	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, errs.ErrShuttingDown, env.Code)
}

func TestWebSocket_OriginCheck(t *testing.T) {
	req := require.New(t)

	cfg := &configs.AppConfig{
		Environment:    "production",
		Port:           8080,
		AllowedOrigins: []string{"https://chat.example.com"},
	}
	deps := newTestDeps(cfg)
	srv := httptest.NewServer(Router(deps))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	// When a foreign origin connects, the upgrade is refused
	_, res, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	req.Error(err)
	req.Equal(http.StatusForbidden, res.StatusCode)

	// When an allowed origin connects, it gets the online snapshot
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://chat.example.com"}})
	req.NoError(err)
	defer conn.Close()

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var frame ws.Envelope
	req.NoError(conn.ReadJSON(&frame))
	req.Equal(ws.FrameUsers, frame.Type)

	// And a JOIN over the socket is visible to the REST surface
	req.NoError(conn.WriteJSON(map[string]string{"type": "JOIN", "sender": "alice", "displayName": "Alice"}))
	req.Eventually(func() bool {
		return deps.Manager.OnlineCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
