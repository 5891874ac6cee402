// internal/handlers/auth.go
package handlers

import (
	"database/sql"
	"net/http"
	"time"
	"unicode/utf8"

	"genmon-backend/internal/credentials"
	"genmon-backend/internal/database"
	"genmon-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 20
	minPasswordLength = 6
)

type AuthHandler struct {
	deps
}

func NewAuthHandler(db *database.DB, log logrus.FieldLogger, dev bool) *AuthHandler {
	return &AuthHandler{deps{db: db, log: log, dev: dev}}
}

// Register создаёт обычного (не админ) пользователя и выдаёт токен
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	if n := utf8.RuneCountInString(req.Username); n < minUsernameLength || n > maxUsernameLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be between 3 and 20 characters"})
		return
	}

	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters"})
		return
	}

	if !h.databaseReady(c) {
		return
	}

	// Дубликат ловится уникальным ключом User.username, а не предварительной проверкой
	now := time.Now().UTC()
	userID, err := h.db.InsertID(`
		INSERT INTO "User" (username, password, "isAdmin", "createdAt", "updatedAt")
		VALUES (?, ?, ?, ?, ?)
	`, req.Username, credentials.Hash(req.Password), false, now, now)

	if err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
			return
		}
		h.internalError(c, "Registration failed", errors.Wrap(err, "insert user"))
		return
	}

	c.JSON(http.StatusCreated, models.RegisterResponse{
		Success:  true,
		Message:  "Registration successful",
		Token:    credentials.GenerateToken(),
		Username: req.Username,
		UserID:   userID,
	})
}

// Login проверяет пароль. Неизвестный пользователь и неверный пароль
// дают одинаковый ответ.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	if !h.databaseReady(c) {
		return
	}

	user, err := h.findUser(req.Username)
	if err != nil {
		if err == errUserNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		h.internalError(c, "Login failed", err)
		return
	}

	if !credentials.Verify(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Success:  true,
		Message:  "Login successful",
		Token:    credentials.GenerateToken(),
		Username: user.Username,
		UserID:   user.ID,
		IsAdmin:  user.IsAdmin,
	})
}

// ResetPassword - сброс пароля пользователя администратором
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, newPassword, adminUsername and adminPassword are required"})
		return
	}

	if utf8.RuneCountInString(req.NewPassword) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 6 characters"})
		return
	}

	if !h.databaseReady(c) {
		return
	}

	// Не различаем: нет такого админа, неверный пароль или нет прав
	admin, err := h.findUser(req.AdminUsername)
	if err != nil && err != errUserNotFound {
		h.internalError(c, "Password reset failed", err)
		return
	}
	if err == errUserNotFound || !credentials.Verify(req.AdminPassword, admin.Password) || !admin.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid admin credentials or account is not an administrator"})
		return
	}

	if _, err := lookupUserID(h.db, req.Username); err != nil {
		if err == errUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User to reset not found"})
			return
		}
		h.internalError(c, "Password reset failed", err)
		return
	}

	_, err = h.db.Exec(`
		UPDATE "User"
		SET password = ?, "updatedAt" = ?
		WHERE username = ?
	`, credentials.Hash(req.NewPassword), time.Now().UTC(), req.Username)

	if err != nil {
		h.internalError(c, "Password reset failed", errors.Wrap(err, "update password"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password has been reset"})
}

func (h *AuthHandler) findUser(username string) (*models.User, error) {
	var user models.User
	var isAdmin sql.NullBool
	err := h.db.QueryRow(`
		SELECT id, username, password, "isAdmin"
		FROM "User"
		WHERE username = ?
		LIMIT 1
	`, username).Scan(&user.ID, &user.Username, &user.Password, &isAdmin)

	if err == sql.ErrNoRows {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup user")
	}

	user.IsAdmin = isAdmin.Valid && isAdmin.Bool
	return &user, nil
}
