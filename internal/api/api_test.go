package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mcoot/chessgame-go/internal/api"
	"github.com/mcoot/chessgame-go/internal/api/apierr"
	"github.com/mcoot/chessgame-go/internal/api/response"
	"github.com/mcoot/chessgame-go/internal/factory"
	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := testutil.NopLogger()
	app := factory.NewTestApp(logger)

	router := api.NewRouter(api.RouterConfig{
		Logger:            logger,
		SessionController: app.SessionController,
		Realtime:          app.Realtime,
		AllowedOrigins:    []string{"*"},
		StorageType:       factory.StorageTypeMemory,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		encoded, _ := json.Marshal(b)
		reqBody = bytes.NewBuffer(encoded)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) apierr.APIError {
	t.Helper()
	assert.Equal(t, status, rr.Code, rr.Body.String())
	resp := decode[apierr.ErrorResponse](t, rr)
	assert.Equal(t, code, resp.Error.Code)
	return resp.Error
}

// startGame creates and joins a game, returning its id and both secrets
func (ts *testServer) startGame(t *testing.T) (id, white, black string) {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/games", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[response.SeatResponse](t, rr)

	rr = ts.request(http.MethodPost, "/api/games/"+created.ID+"/join", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	joined := decode[response.SeatResponse](t, rr)

	return created.ID, created.Secret, joined.Secret
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	resp := decode[response.HealthResponse](t, rr)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "memory", resp.Storage)
}

func TestCreateGame(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/games", nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	for _, key := range []string{"id", "fen", "moves", "status", "result", "created_at", "updated_at", "has_black", "secret", "color"} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "white_secret")

	resp := decode[response.SeatResponse](t, rr)
	assert.Equal(t, model.White, resp.Color)
	assert.Equal(t, model.StatusWaiting, resp.Status)
	assert.Empty(t, resp.Moves)
	assert.Nil(t, resp.Result)
	assert.False(t, resp.HasBlack)
	assert.NotEmpty(t, resp.Secret)
	assert.Equal(t, "/api/games/"+string(resp.ID), rr.Header().Get("Location"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestListGamesNewestFirst(t *testing.T) {
	ts := newTestServer(t)

	var ids []string
	for i := 0; i < 3; i++ {
		rr := ts.request(http.MethodPost, "/api/games", nil)
		require.Equal(t, http.StatusCreated, rr.Code)
		ids = append(ids, decode[response.SeatResponse](t, rr).ID)
		ts.app.MockClock.Advance(time.Minute)
	}

	rr := ts.request(http.MethodGet, "/api/games", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	games := decode[[]response.Game](t, rr)
	require.Len(t, games, 3)
	assert.Equal(t, ids[2], games[0].ID)
	assert.Equal(t, ids[0], games[2].ID)

	rr = ts.request(http.MethodGet, "/api/games?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]response.Game](t, rr), 1)

	rr = ts.request(http.MethodGet, "/api/games?limit=zero", nil)
	assertError(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
}

func TestGetGame(t *testing.T) {
	ts := newTestServer(t)
	id, _, _ := ts.startGame(t)

	rr := ts.request(http.MethodGet, "/api/games/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	game := decode[response.Game](t, rr)
	assert.Equal(t, id, game.ID)
	assert.Equal(t, model.StatusActive, game.Status)
	assert.True(t, game.HasBlack)

	rr = ts.request(http.MethodGet, "/api/games/44444444-4444-4444-8444-444444444444", nil)
	apiErr := assertError(t, rr, http.StatusNotFound, apierr.CodeGameNotFound)
	assert.Equal(t, "Game not found", apiErr.Message)

	rr = ts.request(http.MethodGet, "/api/games/not-a-uuid", nil)
	assertError(t, rr, http.StatusNotFound, apierr.CodeGameNotFound)
}

func TestJoinGame(t *testing.T) {
	ts := newTestServer(t)
	id, _, black := ts.startGame(t)
	assert.NotEmpty(t, black)

	rr := ts.request(http.MethodPost, "/api/games/"+id+"/join", nil)
	assertError(t, rr, http.StatusConflict, apierr.CodeAlreadyJoined)
}

func TestMoveFlow(t *testing.T) {
	ts := newTestServer(t)
	id, white, black := ts.startGame(t)
	path := "/api/games/" + id + "/moves"

	rr := ts.request(http.MethodPost, path, map[string]string{"move": "e2e4", "secret": white})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	moved := decode[response.MoveResponse](t, rr)
	assert.Equal(t, "e2e4", moved.Move)
	assert.Equal(t, "e4", moved.SAN)
	assert.Equal(t, []string{"e4"}, moved.Moves)
	assert.Equal(t, model.StatusActive, moved.Status)
	assert.Len(t, moved.LegalMoves, 20)

	rr = ts.request(http.MethodPost, path, map[string]string{"move": "e2e4", "secret": black})
	apiErr := assertError(t, rr, http.StatusBadRequest, apierr.CodeNotYourTurn)
	assert.Equal(t, "Not your turn", apiErr.Message)

	rr = ts.request(http.MethodPost, "/api/games/"+id+"/resign", map[string]string{"secret": white})
	require.Equal(t, http.StatusOK, rr.Code)
	game := decode[response.Game](t, rr)
	assert.Equal(t, model.StatusResigned, game.Status)
	require.NotNil(t, game.Result)
	assert.Equal(t, model.Black, *game.Result)

	for _, secret := range []string{white, black} {
		rr = ts.request(http.MethodPost, path, map[string]string{"move": "e7e5", "secret": secret})
		assertError(t, rr, http.StatusBadRequest, apierr.CodeGameNotActive)
	}
}

func TestMoveRejections(t *testing.T) {
	ts := newTestServer(t)
	id, white, _ := ts.startGame(t)
	path := "/api/games/" + id + "/moves"

	tests := []struct {
		name    string
		body    any
		status  int
		code    string
		message string
	}{
		{"invalid json", "{", http.StatusBadRequest, apierr.CodeInvalidRequest, "Invalid JSON"},
		{"missing fields", map[string]string{"move": "e2e4"}, http.StatusBadRequest, apierr.CodeInvalidRequest, "move and secret are required"},
		{"unknown secret", map[string]string{"move": "e2e4", "secret": "55555555-5555-4555-8555-555555555555"}, http.StatusUnauthorized, apierr.CodeInvalidSecret, "Invalid secret"},
		{"malformed move", map[string]string{"move": "e2", "secret": white}, http.StatusBadRequest, apierr.CodeInvalidMove, "Invalid UCI move: e2"},
		{"illegal move", map[string]string{"move": "e1e3", "secret": white}, http.StatusBadRequest, apierr.CodeIllegalMove, "Illegal move: e1e3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, path, tt.body)
			apiErr := assertError(t, rr, tt.status, tt.code)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}

	rr := ts.request(http.MethodGet, "/api/games/"+id, nil)
	assert.Empty(t, decode[response.Game](t, rr).Moves)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/games", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRESTMoveReachesWebsocketViewer(t *testing.T) {
	ts := newTestServer(t)
	id, white, _ := ts.startGame(t)

	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/games/"+id, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	read := func() model.Event {
		var raw json.RawMessage
		require.NoError(t, wsjson.Read(ctx, conn, &raw))
		evt, err := model.DecodeEvent(raw)
		require.NoError(t, err)
		return evt
	}

	snap, ok := read().(model.GameStateEvent)
	require.True(t, ok)
	assert.True(t, snap.BlackConnected)

	rr := ts.request(http.MethodPost, "/api/games/"+id+"/moves", map[string]string{"move": "d2d4", "secret": white})
	require.Equal(t, http.StatusOK, rr.Code)

	made, ok := read().(model.MoveMadeEvent)
	require.True(t, ok)
	assert.Equal(t, "d4", made.SAN)
}
