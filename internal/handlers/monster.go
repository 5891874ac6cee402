// internal/handlers/monster.go
package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"genmon-backend/internal/database"
	"genmon-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errInvalidMonsterID = errors.New("monster id must be a string or a number")

type MonsterHandler struct {
	deps
}

func NewMonsterHandler(db *database.DB, log logrus.FieldLogger, dev bool) *MonsterHandler {
	return &MonsterHandler{deps{db: db, log: log, dev: dev}}
}

// monsterClientID возвращает id, присвоенный клиентом, как JSON-текст:
// строка "7" и число 7 дают разные ключи. Пустая строка - id не передан.
func monsterClientID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", errInvalidMonsterID
		}
		if s == "" {
			return "", nil
		}
		// та же запись, что у JSON_EXTRACT и оператора -> в базе: без \u-экранирования <, > и &
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(s); err != nil {
			return "", errInvalidMonsterID
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", errInvalidMonsterID
		}
		return n.String(), nil
	default:
		return "", errInvalidMonsterID
	}
}

type monsterWrite struct {
	payload  models.MonsterPayload
	clientID string
	data     string
}

// SaveMonster добавляет монстра в инвентарь пользователя или обновляет
// существующего с тем же клиентским id
func (h *MonsterHandler) SaveMonster(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	var w monsterWrite
	if err := json.Unmarshal(body, &w.payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Monster data must be a JSON object"})
		return
	}
	if w.payload.Name == "" || w.payload.Element == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Monster data is incomplete"})
		return
	}
	if w.clientID, err = monsterClientID(w.payload.ID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Monster id must be a string or a number"})
		return
	}
	w.data = string(body)

	if !h.databaseReady(c) {
		return
	}

	var monsterID int64
	var created bool
	err = retryOnConflict(func() error {
		var err error
		monsterID, created, err = h.upsertMonster(c.Param("username"), &w)
		return err
	})

	if err != nil {
		if errors.Cause(err) == errUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.internalError(c, "Failed to save monster", err)
		return
	}

	if created {
		c.JSON(http.StatusCreated, models.MonsterSavedResponse{Success: true, Message: "Monster saved", MonsterID: monsterID})
		return
	}
	c.JSON(http.StatusOK, models.MonsterSavedResponse{Success: true, Message: "Monster updated", MonsterID: monsterID})
}

func (h *MonsterHandler) upsertMonster(username string, w *monsterWrite) (int64, bool, error) {
	tx, err := h.db.Begin()
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	userID, err := lookupUserID(tx, username)
	if err != nil {
		return 0, false, err
	}

	p := &w.payload
	now := time.Now().UTC()

	if w.clientID != "" {
		var existingID int64
		err = tx.QueryRow(`
			SELECT id FROM "Monster"
			WHERE "userId" = ? AND "clientId" = ?
			LIMIT 1
		`, userID, w.clientID).Scan(&existingID)

		switch {
		case err == nil:
			_, err = tx.Exec(`
				UPDATE "Monster"
				SET name = ?, element = ?, description = ?, "imageUrl" = ?, "modelUrl" = ?,
					"visualPrompt" = ?, data = ?, "updatedAt" = ?
				WHERE id = ?
			`, p.Name, p.Element, nullIfEmpty(p.Description), nullIfEmpty(p.ImageURL),
				nullIfEmpty(p.ModelURL), nullIfEmpty(p.VisualPrompt), w.data, now, existingID)
			if err != nil {
				return 0, false, errors.Wrap(err, "update monster")
			}
			return existingID, false, errors.Wrap(tx.Commit(), "commit monster")
		case err != sql.ErrNoRows:
			return 0, false, errors.Wrap(err, "select monster")
		}
	}

	monsterID, err := tx.InsertID(`
		INSERT INTO "Monster" ("userId", "clientId", name, element, description, "imageUrl",
			"modelUrl", "visualPrompt", data, "createdAt", "updatedAt")
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, nullIfEmpty(w.clientID), p.Name, p.Element, nullIfEmpty(p.Description),
		nullIfEmpty(p.ImageURL), nullIfEmpty(p.ModelURL), nullIfEmpty(p.VisualPrompt), w.data, now, now)
	if err != nil {
		return 0, false, errors.Wrap(err, "insert monster")
	}

	return monsterID, true, errors.Wrap(tx.Commit(), "commit monster")
}

// ListMonsters возвращает инвентарь пользователя, новые монстры первыми
func (h *MonsterHandler) ListMonsters(c *gin.Context) {
	if !h.databaseReady(c) {
		return
	}

	userID, err := lookupUserID(h.db, c.Param("username"))
	if err != nil {
		if err == errUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.internalError(c, "Failed to list monsters", err)
		return
	}

	rows, err := h.db.Query(`
		SELECT id, name, element, description, "imageUrl", "modelUrl", "visualPrompt", data, "createdAt"
		FROM "Monster"
		WHERE "userId" = ?
		ORDER BY "createdAt" DESC, id DESC
	`, userID)
	if err != nil {
		h.internalError(c, "Failed to list monsters", errors.Wrap(err, "select monsters"))
		return
	}
	defer rows.Close()

	monsters := make([]models.Monster, 0)
	for rows.Next() {
		var m models.Monster
		var description, imageURL, modelURL, visualPrompt sql.NullString
		var data []byte
		err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.Element,
			&description,
			&imageURL,
			&modelURL,
			&visualPrompt,
			&data,
			&m.CreatedAt,
		)
		if err != nil {
			h.internalError(c, "Failed to list monsters", errors.Wrap(err, "scan monster"))
			return
		}

		m.Description = stringPtr(description)
		m.ImageURL = stringPtr(imageURL)
		m.ModelURL = stringPtr(modelURL)
		m.VisualPrompt = stringPtr(visualPrompt)
		m.Data = json.RawMessage(data)
		monsters = append(monsters, m)
	}

	if err = rows.Err(); err != nil {
		h.internalError(c, "Failed to list monsters", errors.Wrap(err, "iterate monsters"))
		return
	}

	c.JSON(http.StatusOK, models.MonstersResponse{Success: true, Monsters: monsters})
}
