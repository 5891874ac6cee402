// internal/workers/admin_bootstrap.go
package workers

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"genmon-backend/internal/credentials"
	"genmon-backend/internal/database"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AdminBootstrapper при старте создаёт администратора из ADMIN_USERNAME/ADMIN_PASSWORD
// или выставляет флаг isAdmin существующему пользователю. Ошибки только логируются.
type AdminBootstrapper struct {
	db       *database.DB
	log      logrus.FieldLogger
	username string
	password string

	started bool
	running bool
	done    chan struct{}
	mu      sync.Mutex
}

func NewAdminBootstrapper(db *database.DB, log logrus.FieldLogger, username, password string) *AdminBootstrapper {
	return &AdminBootstrapper{
		db:       db,
		log:      log.WithField("worker", "admin_bootstrap"),
		username: username,
		password: password,
		done:     make(chan struct{}),
	}
}

// Run выполняет одну попытку. Повторные вызовы ничего не делают.
func (w *AdminBootstrapper) Run(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		w.log.Debug("Admin bootstrap has already run")
		return
	}
	w.started = true
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.done)
	}()

	if w.db == nil || w.username == "" || w.password == "" {
		w.log.Debug("Admin bootstrap skipped: database or admin credentials not configured")
		return
	}

	if err := ctx.Err(); err != nil {
		w.log.WithError(err).Warn("Admin bootstrap cancelled")
		return
	}

	if err := w.ensureAdmin(); err != nil {
		w.log.WithError(err).WithField("code", database.ErrorCode(err)).Error("Admin bootstrap failed")
	}
}

// Done закрывается, когда Run завершился
func (w *AdminBootstrapper) Done() <-chan struct{} {
	return w.done
}

// IsRunning возвращает статус работы
func (w *AdminBootstrapper) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *AdminBootstrapper) ensureAdmin() error {
	if err := database.EnsureAdminColumn(w.db, w.log); err != nil {
		return err
	}

	var userID int64
	var isAdmin sql.NullBool
	err := w.db.QueryRow(`
		SELECT id, "isAdmin"
		FROM "User"
		WHERE username = ?
		LIMIT 1
	`, w.username).Scan(&userID, &isAdmin)

	now := time.Now().UTC()
	switch {
	case err == sql.ErrNoRows:
		_, err = w.db.Exec(`
			INSERT INTO "User" (username, password, "isAdmin", "createdAt", "updatedAt")
			VALUES (?, ?, ?, ?, ?)
		`, w.username, credentials.Hash(w.password), true, now, now)
		if err != nil {
			return errors.Wrap(err, "create admin")
		}
		w.log.WithField("username", w.username).Info("Created admin user")

	case err != nil:
		return errors.Wrap(err, "lookup admin")

	case !isAdmin.Valid || !isAdmin.Bool:
		_, err = w.db.Exec(`UPDATE "User" SET "isAdmin" = ?, "updatedAt" = ? WHERE id = ?`, true, now, userID)
		if err != nil {
			return errors.Wrap(err, "grant admin")
		}
		w.log.WithField("username", w.username).Info("Granted admin flag to existing user")
	}

	return nil
}
