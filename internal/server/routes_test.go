package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	user "nutricoach/internal/User"
	"nutricoach/internal/auth"
	"nutricoach/internal/catalog"
	"nutricoach/internal/coach"
	"nutricoach/internal/database"
	"nutricoach/internal/ledger"
	"nutricoach/internal/utility"
)

const testSecret = "test-secret"

type stubGenerator struct{ reply string }

func (g stubGenerator) Generate(context.Context, *zerolog.Logger, coach.GenerateRequest) (string, error) {
	return g.reply, nil
}

func newTestServer(t *testing.T, ratePerMinute int) http.Handler {
	t.Helper()
	store, err := database.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	cat, err := catalog.Load()
	require.NoError(t, err)

	hub := utility.NewHub()
	agent := coach.NewAgent(stubGenerator{reply: `<food_analysis>{"food_name":"Arepa","calories":300,"protein":20,"carbs":10,"fat":5,"confidence":"high","is_colombian":true}</food_analysis>¡Buena arepa!`}, cat, coach.Options{
		HistoryLimit: 10, ProductCatalogLimit: 3, RegionalFoodLimit: 3,
	})
	limiter, err := utility.NewRateLimiter(ratePerMinute, 100)
	require.NoError(t, err)

	s := &Server{
		db:   store,
		auth: auth.NewAuthenticator(testSecret),
		users: user.NewService(user.Deps{
			Store:        store,
			Agent:        agent,
			Ledger:       ledger.NewAggregator(store, hub),
			Hub:          hub,
			HistoryLimit: 10,
		}),
		chatLimiter: limiter,
	}
	return s.RegisterRoutes()
}

func token(t *testing.T) string {
	t.Helper()
	tok, err := auth.NewAuthenticator(testSecret).GenerateAccessToken("u1", "u1@example.com", "Camila", time.Hour)
	require.NoError(t, err)
	return tok
}

func postChat(t *testing.T, h http.Handler, tok, requestID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoute(t *testing.T) {
	h := newTestServer(t, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestChatRouteRequiresAuth(t *testing.T) {
	h := newTestServer(t, 0)
	rec := postChat(t, h, "", "", `{"message":"hola"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatRouteUsesCallerRequestID(t *testing.T) {
	h := newTestServer(t, 0)
	tok := token(t)

	rec := postChat(t, h, tok, "client-req-42", `{"message":"una arepa"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "client-req-42", rec.Header().Get("X-Request-ID"))

	var resp user.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "client-req-42", resp.RequestID)
	assert.Equal(t, "¡Buena arepa!", resp.Message)

	// Retrying the same request does not count the arepa twice.
	rec = postChat(t, h, tok, "client-req-42", `{"message":"una arepa"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 300.0, resp.Summary.TotalCalories)
	assert.EqualValues(t, 1, resp.Summary.EntriesCount)
}

func TestChatRouteRateLimited(t *testing.T) {
	h := newTestServer(t, 1)
	tok := token(t)

	assert.Equal(t, http.StatusOK, postChat(t, h, tok, "a", `{"message":"arepa"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, postChat(t, h, tok, "b", `{"message":"arepa"}`).Code)
}

func TestSummarySocketReceivesLedgerUpdates(t *testing.T) {
	h := newTestServer(t, 0)
	srv := httptest.NewServer(h)
	defer srv.Close()
	tok := token(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/summary?access_token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var initial ledger.SummaryUpdate
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, ledger.SummaryUpdatedType, initial.Type)
	assert.Equal(t, 0.0, initial.Summary.TotalCalories)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/chat", strings.NewReader(`{"message":"arepa"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var update ledger.SummaryUpdate
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, 300.0, update.Summary.TotalCalories)
	assert.EqualValues(t, 1, update.Summary.EntriesCount)
}

func TestSummarySocketSnapshotGoesOnlyToNewSocket(t *testing.T) {
	h := newTestServer(t, 0)
	srv := httptest.NewServer(h)
	defer srv.Close()
	tok := token(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/summary?access_token=" + tok

	first, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))
	var snapshot ledger.SummaryUpdate
	require.NoError(t, first.ReadJSON(&snapshot))

	second, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, second.ReadJSON(&snapshot))
	assert.Equal(t, 0.0, snapshot.Summary.TotalCalories)

	rec := postChat(t, h, tok, "req-ws", `{"message":"arepa"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// The next message on the first socket is the ledger update, not a
	// second snapshot triggered by the other connection.
	var update ledger.SummaryUpdate
	require.NoError(t, first.ReadJSON(&update))
	assert.Equal(t, 300.0, update.Summary.TotalCalories)
	require.NoError(t, second.ReadJSON(&update))
	assert.Equal(t, 300.0, update.Summary.TotalCalories)
}
