package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/werewolf/internal/api"
	"github.com/mcoot/werewolf/internal/api/apierr"
	"github.com/mcoot/werewolf/internal/api/events"
	"github.com/mcoot/werewolf/internal/api/response"
	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
	"github.com/mcoot/werewolf/internal/services/bot"
	"github.com/mcoot/werewolf/internal/services/host"
	"github.com/mcoot/werewolf/internal/storage/memory"
	"github.com/mcoot/werewolf/internal/testutil"
	"github.com/mcoot/werewolf/internal/transport"
)

const adminToken = "let-me-in"

// fakeHost answers every connection with IDAssigned and records start requests
type fakeHost struct {
	mu       sync.Mutex
	status   host.Status
	startErr error
	starts   int
}

func (h *fakeHost) Status() host.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *fakeHost) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
	if h.startErr != nil {
		return h.startErr
	}
	h.status.JoinOpen = false
	h.status.Phase = model.PhaseRoleAssignment
	return nil
}

func (h *fakeHost) HandleConn(ctx context.Context, conn transport.Conn) error {
	session := transport.NewSession(conn, testutil.NopLogger())
	msg, err := session.Receive(ctx)
	if err != nil {
		return err
	}
	connect, err := protocol.Expect[protocol.Connect](msg)
	if err != nil {
		return err
	}
	id := model.PlayerID(len(connect.Name))
	return session.Send(ctx, protocol.IDAssigned{ID: id})
}

// fakeBots hands out sequential bot identities
type fakeBots struct {
	mu    sync.Mutex
	added []string
}

func (b *fakeBots) AddBot(ctx context.Context, strategy string) (*bot.Bot, error) {
	if strategy != bot.StrategyRandom && strategy != bot.StrategyFirst {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownBotStrategy, strategy)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added = append(b.added, strategy)
	n := len(b.added)
	return &bot.Bot{ID: model.PlayerID(n), Name: fmt.Sprintf("Bot %d", n), Strategy: strategy}, nil
}

type testServer struct {
	handler http.Handler
	host    *fakeHost
	bots    *fakeBots
	storage *memory.Storage
	hub     *events.Hub
}

func newTestServer(t *testing.T, token string) *testServer {
	t.Helper()

	var hash []byte
	if token != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
		require.NoError(t, err)
	}

	fh := &fakeHost{status: host.Status{
		Phase:      model.PhaseAwaitingPlayers,
		JoinOpen:   true,
		MinPlayers: 3,
		Players: []model.PlayerSummary{
			{ID: 0, Name: "Alice", Alive: true, Connected: true},
		},
	}}
	bots := &fakeBots{}
	storage := memory.New()
	hub := events.NewHub(events.DefaultBacklog, testutil.NopLogger())
	go hub.Run()
	t.Cleanup(hub.Close)

	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		Host:           fh,
		Storage:        storage,
		Events:         hub,
		Bots:           bots,
		AdminTokenHash: hash,
	})

	return &testServer{handler: router, host: fh, bots: bots, storage: storage, hub: hub}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, "")

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestGetGame(t *testing.T) {
	ts := newTestServer(t, adminToken)

	rr := ts.request(http.MethodGet, "/api/v1/game", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var game response.Game
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &game))
	assert.Equal(t, model.PhaseAwaitingPlayers, game.Phase)
	assert.True(t, game.JoinOpen)
	assert.Equal(t, 3, game.MinPlayers)
	require.Len(t, game.Players, 1)
	assert.Equal(t, "Alice", game.Players[0].Name)
	assert.NotContains(t, rr.Body.String(), `"role"`)
}

func TestStartGameRequiresToken(t *testing.T) {
	ts := newTestServer(t, adminToken)

	rr := ts.request(http.MethodPost, "/api/v1/game/start", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeUnauthorized, decodeError(t, rr).Code)

	rr = ts.request(http.MethodPost, "/api/v1/game/start", nil, "wrong")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeForbidden, decodeError(t, rr).Code)

	assert.Equal(t, 0, ts.host.starts)
}

func TestStartGameWithToken(t *testing.T) {
	ts := newTestServer(t, adminToken)

	rr := ts.request(http.MethodPost, "/api/v1/game/start", nil, adminToken)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var game response.Game
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &game))
	assert.False(t, game.JoinOpen)
	assert.Equal(t, 1, ts.host.starts)
}

func TestStartGameOpenWithoutConfiguredToken(t *testing.T) {
	ts := newTestServer(t, "")

	rr := ts.request(http.MethodPost, "/api/v1/game/start", nil, "")
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestStartGameErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"too few players", model.ErrInsufficientPlayers, http.StatusConflict, apierr.CodeInsufficientPlayers},
		{"already started", model.ErrGameInProgress, http.StatusConflict, apierr.CodeGameInProgress},
		{"window closed", model.ErrJoinClosed, http.StatusConflict, apierr.CodeJoinClosed},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError, apierr.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, "")
			ts.host.startErr = tt.err

			rr := ts.request(http.MethodPost, "/api/v1/game/start", nil, "")
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}
}

func TestListGames(t *testing.T) {
	ts := newTestServer(t, "")
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	for i, id := range []model.GameID{"first", "second"} {
		require.NoError(t, ts.storage.SaveGameSummary(context.Background(), &model.GameSummary{
			ID:          id,
			Winner:      model.WinnerVillage,
			StartedAt:   base,
			CompletedAt: base.Add(time.Duration(i+1) * time.Minute),
		}))
	}

	rr := ts.request(http.MethodGet, "/api/v1/games", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list response.GameList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Games, 2)
	assert.Equal(t, model.GameID("second"), list.Games[0].ID)

	rr = ts.request(http.MethodGet, "/api/v1/games?limit=1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list.Games, 1)
}

func TestListGamesRejectsBadLimit(t *testing.T) {
	ts := newTestServer(t, "")

	rr := ts.request(http.MethodGet, "/api/v1/games?limit=many", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)
}

func TestGetGameSummary(t *testing.T) {
	ts := newTestServer(t, "")
	require.NoError(t, ts.storage.SaveGameSummary(context.Background(), &model.GameSummary{
		ID:     "g1",
		Winner: model.WinnerWolf,
		Wolves: []model.PlayerID{2},
	}))

	rr := ts.request(http.MethodGet, "/api/v1/games/g1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var summary response.GameSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, model.WinnerWolf, summary.Winner)
	assert.Equal(t, []model.PlayerID{2}, summary.Wolves)

	rr = ts.request(http.MethodGet, "/api/v1/games/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeGameNotFound, decodeError(t, rr).Code)
}

func TestWebSocketJoinPassesThroughMiddleware(t *testing.T) {
	ts := newTestServer(t, "")
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	socket, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	client := transport.NewSession(transport.NewWebSocketConn(socket, 0), testutil.NopLogger())
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	reply, err := client.Request(ctx, protocol.Connect{Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, protocol.IDAssigned{ID: 5}, reply)
}

func TestEventStreamRequiresToken(t *testing.T) {
	ts := newTestServer(t, adminToken)

	rr := ts.request(http.MethodGet, "/api/v1/events", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestEventStreamAcceptsQueryToken(t *testing.T) {
	ts := newTestServer(t, adminToken)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?token="+adminToken, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
}

func TestAddBot(t *testing.T) {
	ts := newTestServer(t, adminToken)

	rr := ts.request(http.MethodPost, "/api/v1/game/bots", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/game/bots", nil, adminToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp response.Bot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Bot 1", resp.Name)
	assert.Equal(t, bot.StrategyRandom, resp.Strategy)

	rr = ts.request(http.MethodPost, "/api/v1/game/bots", map[string]string{"strategy": bot.StrategyFirst}, adminToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, model.PlayerID(2), resp.ID)
	assert.Equal(t, bot.StrategyFirst, resp.Strategy)
}

func TestAddBotErrors(t *testing.T) {
	ts := newTestServer(t, "")

	rr := ts.request(http.MethodPost, "/api/v1/game/bots", map[string]string{"strategy": "psychic"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/game/bots", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.bots.added)
}
