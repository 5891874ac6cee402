package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"genmon-backend/internal/credentials"
	"genmon-backend/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db     *database.DB
	router *gin.Engine
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

// newTestEnv поднимает роутер поверх SQLite в памяти. Одно соединение в пуле:
// у каждого соединения :memory: своя база.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Connect("sqlite::memory:", database.PoolOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, quietLogger()))

	r := gin.New()
	RegisterRoutes(r, db, quietLogger(), true)
	return &testEnv{db: db, router: r}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, _ := json.Marshal(b)
		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) register(t *testing.T, username, password string) int64 {
	t.Helper()
	w := e.do(http.MethodPost, "/api/auth/register", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(decode(t, w)["userId"].(float64))
}

func (e *testEnv) createAdmin(t *testing.T, username, password string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := e.db.Exec(`
		INSERT INTO "User" (username, password, "isAdmin", "createdAt", "updatedAt")
		VALUES (?, ?, ?, ?, ?)
	`, username, credentials.Hash(password), true, now, now)
	require.NoError(t, err)
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(query, args...).Scan(&n))
	return n
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func stringBody(s string) io.Reader {
	if s == "" {
		return nil
	}
	return strings.NewReader(s)
}
