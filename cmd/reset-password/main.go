// cmd/reset-password/main.go
//
// Сброс пароля пользователя напрямую в базе:
//
//	go run ./cmd/reset-password <username> <newPassword>
//
// DATABASE_URL берётся из окружения или .env.
package main

import (
	"database/sql"
	"os"
	"time"
	"unicode/utf8"

	"genmon-backend/internal/config"
	"genmon-backend/internal/credentials"
	"genmon-backend/internal/database"
	"genmon-backend/internal/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const minPasswordLength = 6

var (
	errUsage         = errors.New("usage: reset-password <username> <newPassword>")
	errShortPassword = errors.New("new password must be at least 6 characters")
	errNoDatabase    = errors.New("DATABASE_URL is not set")
	errUserNotFound  = errors.New("user not found")
)

func main() {
	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel)

	if err := run(os.Args[1:], cfg.DatabaseURL, log); err != nil {
		log.WithError(err).Error("Password reset failed")
		os.Exit(1)
	}
}

func run(args []string, databaseURL string, log logrus.FieldLogger) error {
	if len(args) != 2 || args[0] == "" || args[1] == "" {
		return errUsage
	}
	username, newPassword := args[0], args[1]

	if utf8.RuneCountInString(newPassword) < minPasswordLength {
		return errShortPassword
	}
	if databaseURL == "" {
		return errNoDatabase
	}

	db, err := database.Connect(databaseURL, database.PoolOptions{MaxOpenConns: 1})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := resetPassword(db, username, newPassword); err != nil {
		return err
	}

	log.WithField("username", username).Info("Password has been reset, log in with the new password")
	return nil
}

func resetPassword(db *database.DB, username, newPassword string) error {
	var userID int64
	err := db.QueryRow(`SELECT id FROM "User" WHERE username = ? LIMIT 1`, username).Scan(&userID)
	if err == sql.ErrNoRows {
		return errors.Wrap(errUserNotFound, username)
	}
	if err != nil {
		return errors.Wrap(err, "lookup user")
	}

	_, err = db.Exec(`
		UPDATE "User"
		SET password = ?, "updatedAt" = ?
		WHERE id = ?
	`, credentials.Hash(newPassword), time.Now().UTC(), userID)
	return errors.Wrap(err, "update password")
}
