// internal/handlers/save.go
package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"genmon-backend/internal/database"
	"genmon-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type SaveHandler struct {
	deps
}

func NewSaveHandler(db *database.DB, log logrus.FieldLogger, dev bool) *SaveHandler {
	return &SaveHandler{deps{db: db, log: log, dev: dev}}
}

func parseSlot(c *gin.Context) (int, bool) {
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slot must be an integer"})
		return 0, false
	}
	return slot, true
}

// GetSave отдаёт документ сохранения слота в том виде, в каком он записан
func (h *SaveHandler) GetSave(c *gin.Context) {
	slot, ok := parseSlot(c)
	if !ok || !h.databaseReady(c) {
		return
	}

	userID, err := lookupUserID(h.db, c.Param("username"))
	if err != nil {
		if err == errUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.internalError(c, "Failed to load save", err)
		return
	}

	var data []byte
	var updatedAt time.Time
	err = h.db.QueryRow(`
		SELECT data, "updatedAt"
		FROM "GameSave"
		WHERE "userId" = ? AND slot = ?
		LIMIT 1
	`, userID, slot).Scan(&data, &updatedAt)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Save not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to load save", errors.Wrap(err, "select save"))
		return
	}

	c.JSON(http.StatusOK, models.SaveResponse{
		Success:   true,
		Data:      json.RawMessage(data),
		UpdatedAt: updatedAt,
	})
}

// PostSave перезаписывает слот телом запроса целиком. Пользователь должен
// быть зарегистрирован заранее.
func (h *SaveHandler) PostSave(c *gin.Context) {
	slot, ok := parseSlot(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Save data must be valid JSON"})
		return
	}

	if !h.databaseReady(c) {
		return
	}

	username := c.Param("username")
	err = retryOnConflict(func() error {
		return h.storeSave(username, slot, string(body))
	})

	if err != nil {
		if errors.Cause(err) == errUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found, please register first"})
			return
		}
		h.internalError(c, "Failed to store save", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Save stored"})
}

func (h *SaveHandler) storeSave(username string, slot int, data string) error {
	tx, err := h.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	userID, err := lookupUserID(tx, username)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := tx.Exec(`
		UPDATE "GameSave"
		SET data = ?, "updatedAt" = ?
		WHERE "userId" = ? AND slot = ?
	`, data, now, userID, slot)
	if err != nil {
		return errors.Wrap(err, "update save")
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update save")
	}

	if updated == 0 {
		_, err = tx.Exec(`
			INSERT INTO "GameSave" ("userId", slot, data, "createdAt", "updatedAt")
			VALUES (?, ?, ?, ?, ?)
		`, userID, slot, data, now, now)
		if err != nil {
			return errors.Wrap(err, "insert save")
		}
	}

	return errors.Wrap(tx.Commit(), "commit save")
}
