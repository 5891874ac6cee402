package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice01", "secret1")

	doc := `{"level":3,"party":[{"name":"Emberling","hp":42}],"gold":12.5,"flags":{"intro":true}}`
	w := env.do(http.MethodPost, "/api/saves/alice01/1", doc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	w = env.do(http.MethodGet, "/api/saves/alice01/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success   bool            `json:"success"`
		Data      json.RawMessage `json:"data"`
		UpdatedAt string          `json:"updatedAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.JSONEq(t, doc, string(resp.Data))
	assert.NotEmpty(t, resp.UpdatedAt)
}

func TestSaveOverwritesSlot(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register(t, "alice01", "secret1")

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/saves/alice01/2", `{"level":1}`).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/saves/alice01/2", `{"level":2}`).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/saves/alice01/3", `{"level":9}`).Code)

	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM "GameSave" WHERE "userId" = ? AND slot = ?`, userID, 2))
	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM "GameSave" WHERE "userId" = ?`, userID))

	w := env.do(http.MethodGet, "/api/saves/alice01/2", nil)
	assert.JSONEq(t, `{"level":2}`, string(mustRaw(t, decode(t, w)["data"])))
}

func TestSaveRepeatedIdenticalWrite(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register(t, "alice01", "secret1")

	for i := 0; i < 3; i++ {
		w := env.do(http.MethodPost, "/api/saves/alice01/1", `{"same":true}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM "GameSave" WHERE "userId" = ?`, userID))
}

func TestSaveSlotsAreIsolatedPerUser(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice01", "secret1")
	env.register(t, "bob", "secret2")

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/saves/alice01/1", `{"owner":"alice"}`).Code)

	w := env.do(http.MethodGet, "/api/saves/bob/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Save not found", decode(t, w)["error"])
}

func TestSaveEmptyBodyStoresEmptyObject(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice01", "secret1")

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/saves/alice01/1", nil).Code)

	w := env.do(http.MethodGet, "/api/saves/alice01/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, string(mustRaw(t, decode(t, w)["data"])))
}

func TestSaveUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/saves/ghost/1", `{"level":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, env.count(t, `SELECT COUNT(*) FROM "GameSave"`))

	w = env.do(http.MethodGet, "/api/saves/ghost/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decode(t, w)["error"])
}

func TestSaveBadInput(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice01", "secret1")

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/saves/alice01/first", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/saves/alice01/first", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/saves/alice01/1", `{"level":`).Code)

	w := env.do(http.MethodGet, "/api/saves/alice01/3abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Slot must be an integer"}`, w.Body.String())
}

func TestSaveInternalErrorCarriesCode(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice01", "secret1")

	_, err := env.db.Exec(`DROP TABLE "GameSave"`)
	require.NoError(t, err)

	w := env.do(http.MethodPost, "/api/saves/alice01/1", `{"level":1}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	body := decode(t, w)
	assert.Equal(t, "Failed to store save", body["error"])
	assert.Contains(t, body["message"], "no such table")
	assert.NotEqual(t, "UNKNOWN", body["code"])
	assert.Contains(t, body["details"], "GameSave")
}

func mustRaw(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
