// internal/handlers/handler.go
package handlers

import (
	"database/sql"
	"net/http"

	"genmon-backend/internal/database"
	"genmon-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errUserNotFound = errors.New("user not found")

// deps - общие зависимости обработчиков. db равен nil, если DATABASE_URL не задан.
type deps struct {
	db  *database.DB
	log logrus.FieldLogger
	dev bool
}

func (d *deps) databaseReady(c *gin.Context) bool {
	if d.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not configured"})
		return false
	}
	return true
}

// internalError пишет 500 с текстом и кодом ошибки БД; SQL отдаётся только в development
func (d *deps) internalError(c *gin.Context, summary string, err error) {
	code := database.ErrorCode(err)
	middleware.Logger(c, d.log).WithError(err).WithField("code", code).Error(summary)

	body := gin.H{
		"error":   summary,
		"message": errors.Cause(err).Error(),
		"code":    code,
	}
	if d.dev {
		if query := database.QueryText(err); query != "" {
			body["details"] = query
		}
	}
	c.JSON(http.StatusInternalServerError, body)
}

type rowQuerier interface {
	QueryRow(query string, args ...any) *database.Row
}

// lookupUserID ищет пользователя по точному имени
func lookupUserID(q rowQuerier, username string) (int64, error) {
	var userID int64
	err := q.QueryRow(`SELECT id FROM "User" WHERE username = ? LIMIT 1`, username).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, errUserNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "lookup user")
	}
	return userID, nil
}

// retryOnConflict повторяет транзакцию один раз, если она упала на уникальном ключе:
// параллельный запрос успел вставить ту же строку. После ошибки Postgres
// отменяет всю транзакцию, поэтому повторяется она целиком.
func retryOnConflict(fn func() error) error {
	err := fn()
	if database.IsUniqueViolation(err) {
		err = fn()
	}
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
