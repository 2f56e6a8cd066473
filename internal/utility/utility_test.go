package utility

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsProfanity(t *testing.T) {
	flagged := []string{"Pendejo", "el ESTÚPIDO", "maricón", "juan_hp", "malpa rido perra"}
	for _, s := range flagged {
		assert.True(t, ContainsProfanity(s), s)
	}

	clean := []string{"Camila", "José Andrés", "Usuario", "Ana María", ""}
	for _, s := range clean {
		assert.False(t, ContainsProfanity(s), s)
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "estupido", NormalizeText("Estúpido"))
	assert.Equal(t, "nandu", NormalizeText("Ñandú"))
}

func TestParseDate(t *testing.T) {
	now := time.Date(2025, 3, 1, 23, 30, 0, 0, time.FixedZone("COT", -5*3600))

	got, err := ParseDate("", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-02", got)

	got, err = ParseDate(" 2024-12-31 ", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", got)

	for _, bad := range []string{"31/12/2024", "2024-13-01", "2024-02-30", "yesterday"} {
		_, err := ParseDate(bad, now)
		assert.Error(t, err, bad)
	}
}

func TestRateLimiter(t *testing.T) {
	rl, err := NewRateLimiter(3, 10)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("u1"))
	}
	assert.False(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u2"), "keys are independent")

	off, err := NewRateLimiter(0, 10)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.True(t, off.Allow("u1"))
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl, err := NewRateLimiter(1, 10)
	require.NoError(t, err)

	e := echo.New()
	h := rl.Middleware()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	call := func() int {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/chat", nil), rec)
		c.Set("user_id", "u1")
		require.NoError(t, h(c))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, call())
	assert.Equal(t, http.StatusTooManyRequests, call())
}

func TestGetUserIDFromContext(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := GetUserIDFromContext(c)
	assert.Error(t, err)

	c.Set("user_id", "abc")
	id, err := GetUserIDFromContext(c)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestHubPublishesToUserSockets(t *testing.T) {
	hub := NewHub()
	registered := make(chan *WSClient, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		registered <- hub.Register(r.URL.Query().Get("user"), conn)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=u1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	client := <-registered
	assert.Equal(t, 1, hub.Connections("u1"))

	hub.Publish("u2", map[string]int{"total": 1})
	hub.Publish("u1", map[string]float64{"total_calories": 500})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_calories":500}`, string(msg))

	hub.Unregister(client)
	assert.Equal(t, 0, hub.Connections("u1"))
}
