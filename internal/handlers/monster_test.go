package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"genmon-backend/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonsterUpsert(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register(t, "alice01", "secret1")

	w := env.do(http.MethodPost, "/api/monsters/alice01", gin.H{
		"id":          "m-1",
		"name":        "Emberling",
		"element":     "fire",
		"description": "A small flame",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	firstID := decode(t, w)["monsterId"]

	w = env.do(http.MethodPost, "/api/monsters/alice01", gin.H{
		"id":       "m-1",
		"name":     "Blazeling",
		"element":  "fire",
		"imageUrl": "https://cdn.example/blaze.png",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, firstID, decode(t, w)["monsterId"])
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM "Monster" WHERE "userId" = ?`, userID))

	var name string
	var description, imageURL *string
	require.NoError(t, env.db.QueryRow(`SELECT name, description, "imageUrl" FROM "Monster" WHERE "userId" = ?`, userID).
		Scan(&name, &description, &imageURL))
	assert.Equal(t, "Blazeling", name)
	assert.Nil(t, description)
	require.NotNil(t, imageURL)
	assert.Equal(t, "https://cdn.example/blaze.png", *imageURL)

	w = env.do(http.MethodPost, "/api/monsters/alice01", gin.H{"id": "m-2", "name": "Tidepup", "element": "water"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEqual(t, firstID, decode(t, w)["monsterId"])
	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM "Monster" WHERE "userId" = ?`, userID))
}

func TestMonsterNumberAndStringIDsStaySeparate(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register(t, "alice01", "secret1")

	w := env.do(http.MethodPost, "/api/monsters/alice01", `{"id":7,"name":"Pebble","element":"earth"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	numberID := decode(t, w)["monsterId"]

	w = env.do(http.MethodPost, "/api/monsters/alice01", `{"id":"7","name":"Other","element":"water"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEqual(t, numberID, decode(t, w)["monsterId"])

	w = env.do(http.MethodPost, "/api/monsters/alice01", `{"id":7,"name":"Boulder","element":"earth"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, numberID, decode(t, w)["monsterId"])

	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM "Monster" WHERE "userId" = ?`, userID))
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM "Monster" WHERE "clientId" = ? AND name = ?`, `7`, "Boulder"))
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM "Monster" WHERE "clientId" = ? AND name = ?`, `"7"`, "Other"))
}

func TestMonsterClientIDMatchesBackfill(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register(t, "alice01", "secret1")

	// строка, записанная до появления clientId, заполняется миграцией
	_, err := env.db.Exec(`
		INSERT INTO "Monster" ("userId", name, element, data, "createdAt", "updatedAt")
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, "Emberling", "fire", `{"id":"a<b & c","name":"Emberling","element":"fire"}`, time.Now().UTC(), time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(env.db, quietLogger()))

	w := env.do(http.MethodPost, "/api/monsters/alice01", `{"id":"a<b & c","name":"Blazeling","element":"fire"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM "Monster" WHERE "userId" = ?`, userID))
}

func TestMonsterWithoutIDIsAlwaysInserted(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register(t, "alice01", "secret1")

	for i := 0; i < 2; i++ {
		w := env.do(http.MethodPost, "/api/monsters/alice01", gin.H{"name": "Wisp", "element": "air"})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM "Monster" WHERE "userId" = ?`, userID))
}

func TestMonsterIDsAreScopedPerUser(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice01", "secret1")
	env.register(t, "bob", "secret2")

	body := gin.H{"id": "shared", "name": "Emberling", "element": "fire"}
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/monsters/alice01", body).Code)
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/monsters/bob", body).Code)
}

func TestMonsterValidation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice01", "secret1")

	tests := []struct {
		name string
		body string
	}{
		{"missing element", `{"id":"m-1","name":"Emberling"}`},
		{"missing name", `{"id":"m-1","element":"fire"}`},
		{"not an object", `["Emberling","fire"]`},
		{"broken json", `{"name":`},
		{"object id", `{"id":{"x":1},"name":"Emberling","element":"fire"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/monsters/alice01", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	assert.Equal(t, 0, env.count(t, `SELECT COUNT(*) FROM "Monster"`))
}

func TestMonsterUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/monsters/ghost", gin.H{"id": "m-1", "name": "Emberling", "element": "fire"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/monsters/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMonsters(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice01", "secret1")

	w := env.do(http.MethodGet, "/api/monsters/alice01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"monsters":[]}`, w.Body.String())

	first := `{"id":"m-1","name":"Emberling","element":"fire","visualPrompt":"tiny flame","stats":{"atk":5}}`
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/monsters/alice01", first).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/monsters/alice01", `{"id":"m-2","name":"Tidepup","element":"water"}`).Code)

	w = env.do(http.MethodGet, "/api/monsters/alice01", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success  bool `json:"success"`
		Monsters []struct {
			ID           int64           `json:"id"`
			Name         string          `json:"name"`
			Element      string          `json:"element"`
			Description  *string         `json:"description"`
			VisualPrompt *string         `json:"visualPrompt"`
			Data         json.RawMessage `json:"data"`
			CreatedAt    string          `json:"createdAt"`
		} `json:"monsters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Monsters, 2)

	assert.Equal(t, "Tidepup", resp.Monsters[0].Name)
	assert.Equal(t, "Emberling", resp.Monsters[1].Name)
	assert.Nil(t, resp.Monsters[1].Description)
	require.NotNil(t, resp.Monsters[1].VisualPrompt)
	assert.Equal(t, "tiny flame", *resp.Monsters[1].VisualPrompt)
	assert.JSONEq(t, first, string(resp.Monsters[1].Data))
	assert.NotEmpty(t, resp.Monsters[1].CreatedAt)
}

func TestMonsterClientID(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{``, "", false},
		{`null`, "", false},
		{`""`, "", false},
		{`"m-1"`, `"m-1"`, false},
		{`"7"`, `"7"`, false},
		{`"a<b & \"c\""`, `"a<b & \"c\""`, false},
		{`42`, `42`, false},
		{`-3`, `-3`, false},
		{`true`, "", true},
		{`{"a":1}`, "", true},
	}

	for _, tt := range tests {
		got, err := monsterClientID(json.RawMessage(tt.raw))
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		assert.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestRetryOnConflictRetriesOnce(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice01", "secret1")

	_, dupErr := env.db.Exec(`INSERT INTO "User" (username, password) VALUES (?, ?)`, "alice01", "x")
	require.True(t, database.IsUniqueViolation(dupErr))

	calls := 0
	err := retryOnConflict(func() error {
		calls++
		if calls == 1 {
			return errors.Wrap(dupErr, "insert")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retryOnConflict(func() error {
		calls++
		return dupErr
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retryOnConflict(func() error {
		calls++
		return errUserNotFound
	})
	assert.Equal(t, errUserNotFound, err)
	assert.Equal(t, 1, calls)
}
