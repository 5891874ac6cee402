// internal/workers/schema_migrator.go
package workers

import (
	"context"
	"sync"
	"time"

	"genmon-backend/internal/database"

	"github.com/sirupsen/logrus"
)

const (
	DefaultRetryInterval    = time.Second
	DefaultMaxRetryInterval = 30 * time.Second
)

// SchemaMigrator ждёт, пока база начнёт отвечать, и один раз применяет миграции.
// Пока база недоступна, пауза между попытками удваивается до MaxRetryInterval.
type SchemaMigrator struct {
	db  *database.DB
	log logrus.FieldLogger

	RetryInterval    time.Duration
	MaxRetryInterval time.Duration

	running bool
	mu      sync.Mutex
}

func NewSchemaMigrator(db *database.DB, log logrus.FieldLogger) *SchemaMigrator {
	return &SchemaMigrator{
		db:               db,
		log:              log.WithField("worker", "schema_migrator"),
		RetryInterval:    DefaultRetryInterval,
		MaxRetryInterval: DefaultMaxRetryInterval,
	}
}

// Run возвращает nil, когда база ответила и миграции выполнены (ошибка миграции
// только логируется), или ошибку контекста, если ожидание прервали.
func (w *SchemaMigrator) Run(ctx context.Context) error {
	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	delay := w.RetryInterval
	for attempt := 1; ; attempt++ {
		err := w.db.PingContext(ctx)
		if err == nil {
			break
		}

		w.log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"retry":   delay.String(),
		}).Warn("Database is not reachable yet")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info("Schema migrator stopped before the database came up")
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > w.MaxRetryInterval {
			delay = w.MaxRetryInterval
		}
	}

	if err := database.Migrate(w.db, w.log); err != nil {
		w.log.WithError(err).WithField("code", database.ErrorCode(err)).Error("Database migration failed")
		return nil
	}

	w.log.WithField("dialect", w.db.Dialect.String()).Info("Database schema is up to date")
	return nil
}

// IsRunning возвращает статус работы
func (w *SchemaMigrator) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
