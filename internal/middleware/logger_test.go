package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/pkg/configpkg"
)

func newTestEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestLogger(zerolog.New(buf)))

	r.GET("/ok", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("handled")
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	return r
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var lines []map[string]any

	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line), raw)

		lines = append(lines, line)
	}

	return lines
}

func TestRequestLogger(t *testing.T) {
	t.Run("GeneratesRequestID", func(t *testing.T) {
		var buf bytes.Buffer

		recorder := httptest.NewRecorder()
		newTestEngine(&buf).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ok", nil))

		require.Equal(t, http.StatusNoContent, recorder.Code)

		id := recorder.Header().Get(RequestIDHeader)
		require.NotEmpty(t, id)

		lines := logLines(t, &buf)
		require.Len(t, lines, 2)
		require.Equal(t, "handled", lines[0]["message"])

		for _, line := range lines {
			require.Equal(t, id, line["request_id"])
		}

		require.Equal(t, "info", lines[1]["level"])
		require.Equal(t, "GET", lines[1]["method"])
		require.Equal(t, "/ok", lines[1]["path"])
		require.EqualValues(t, http.StatusNoContent, lines[1]["status_code"])
	})

	t.Run("KeepsClientRequestID", func(t *testing.T) {
		var buf bytes.Buffer

		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "client-id")

		recorder := httptest.NewRecorder()
		newTestEngine(&buf).ServeHTTP(recorder, req)

		require.Equal(t, "client-id", recorder.Header().Get(RequestIDHeader))

		for _, line := range logLines(t, &buf) {
			require.Equal(t, "client-id", line["request_id"])
		}
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		var buf bytes.Buffer

		recorder := httptest.NewRecorder()
		newTestEngine(&buf).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/panic", nil))

		require.Equal(t, http.StatusInternalServerError, recorder.Code)
		require.JSONEq(t, `{"error":"internal"}`, recorder.Body.String())

		lines := logLines(t, &buf)
		require.Len(t, lines, 2)
		require.Equal(t, "error", lines[0]["level"])
		require.Equal(t, "panic message: boom", lines[0]["message"])
		require.Equal(t, "error", lines[1]["level"])
		require.EqualValues(t, http.StatusInternalServerError, lines[1]["status_code"])
	})
}

func TestCreateLogger(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, CreateLogger(configpkg.Config{Environment: "production"}).GetLevel())
	require.Equal(t, zerolog.TraceLevel, CreateLogger(configpkg.Config{Environment: "development"}).GetLevel())
}
