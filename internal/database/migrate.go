// internal/database/migrate.go
package database

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var createTables = map[Dialect][]string{
	MySQL: {`
		CREATE TABLE IF NOT EXISTS "User" (
			id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(191) NOT NULL,
			password VARCHAR(191) NOT NULL,
			"isAdmin" TINYINT(1) NOT NULL DEFAULT 0,
			"createdAt" DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			"updatedAt" DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			UNIQUE KEY "User_username_key" (username)
		)`, `
		CREATE TABLE IF NOT EXISTS "GameSave" (
			id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			"userId" INT NOT NULL,
			slot INT NOT NULL,
			data JSON NOT NULL,
			"createdAt" DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			"updatedAt" DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			UNIQUE KEY "GameSave_userId_slot_key" ("userId", slot),
			CONSTRAINT "GameSave_userId_fkey" FOREIGN KEY ("userId") REFERENCES "User" (id) ON DELETE CASCADE
		)`, `
		CREATE TABLE IF NOT EXISTS "Monster" (
			id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			"userId" INT NOT NULL,
			"clientId" VARCHAR(191) NULL,
			name VARCHAR(191) NOT NULL,
			element VARCHAR(191) NOT NULL,
			description TEXT NULL,
			"imageUrl" TEXT NULL,
			"modelUrl" TEXT NULL,
			"visualPrompt" TEXT NULL,
			data JSON NOT NULL,
			"createdAt" DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			"updatedAt" DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			UNIQUE KEY "Monster_userId_clientId_key" ("userId", "clientId"),
			CONSTRAINT "Monster_userId_fkey" FOREIGN KEY ("userId") REFERENCES "User" (id) ON DELETE CASCADE
		)`,
	},
	Postgres: {`
		CREATE TABLE IF NOT EXISTS "User" (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL,
			password TEXT NOT NULL,
			"isAdmin" BOOLEAN NOT NULL DEFAULT false,
			"createdAt" TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP,
			"updatedAt" TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT "User_username_key" UNIQUE (username)
		)`, `
		CREATE TABLE IF NOT EXISTS "GameSave" (
			id SERIAL PRIMARY KEY,
			"userId" INTEGER NOT NULL REFERENCES "User" (id) ON DELETE CASCADE,
			slot INTEGER NOT NULL,
			data JSON NOT NULL,
			"createdAt" TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP,
			"updatedAt" TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT "GameSave_userId_slot_key" UNIQUE ("userId", slot)
		)`, `
		CREATE TABLE IF NOT EXISTS "Monster" (
			id SERIAL PRIMARY KEY,
			"userId" INTEGER NOT NULL REFERENCES "User" (id) ON DELETE CASCADE,
			"clientId" TEXT NULL,
			name TEXT NOT NULL,
			element TEXT NOT NULL,
			description TEXT NULL,
			"imageUrl" TEXT NULL,
			"modelUrl" TEXT NULL,
			"visualPrompt" TEXT NULL,
			data JSON NOT NULL,
			"createdAt" TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP,
			"updatedAt" TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT "Monster_userId_clientId_key" UNIQUE ("userId", "clientId")
		)`,
	},
	SQLite: {`
		CREATE TABLE IF NOT EXISTS "User" (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			"isAdmin" INTEGER NOT NULL DEFAULT 0,
			"createdAt" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			"updatedAt" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, `
		CREATE TABLE IF NOT EXISTS "GameSave" (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			"userId" INTEGER NOT NULL REFERENCES "User" (id) ON DELETE CASCADE,
			slot INTEGER NOT NULL,
			data TEXT NOT NULL,
			"createdAt" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			"updatedAt" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE ("userId", slot)
		)`, `
		CREATE TABLE IF NOT EXISTS "Monster" (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			"userId" INTEGER NOT NULL REFERENCES "User" (id) ON DELETE CASCADE,
			"clientId" TEXT NULL,
			name TEXT NOT NULL,
			element TEXT NOT NULL,
			description TEXT NULL,
			"imageUrl" TEXT NULL,
			"modelUrl" TEXT NULL,
			"visualPrompt" TEXT NULL,
			data TEXT NOT NULL,
			"createdAt" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			"updatedAt" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE ("userId", "clientId")
		)`,
	},
}

var addAdminColumn = map[Dialect]string{
	MySQL:    `ALTER TABLE "User" ADD COLUMN "isAdmin" TINYINT(1) NOT NULL DEFAULT 0`,
	Postgres: `ALTER TABLE "User" ADD COLUMN "isAdmin" BOOLEAN NOT NULL DEFAULT false`,
	SQLite:   `ALTER TABLE "User" ADD COLUMN "isAdmin" INTEGER NOT NULL DEFAULT 0`,
}

var addClientIDColumn = map[Dialect]string{
	MySQL:    `ALTER TABLE "Monster" ADD COLUMN "clientId" VARCHAR(191) NULL`,
	Postgres: `ALTER TABLE "Monster" ADD COLUMN "clientId" TEXT NULL`,
	SQLite:   `ALTER TABLE "Monster" ADD COLUMN "clientId" TEXT NULL`,
}

var addClientIDIndex = map[Dialect]string{
	MySQL:    `ALTER TABLE "Monster" ADD UNIQUE KEY "Monster_userId_clientId_key" ("userId", "clientId")`,
	Postgres: `CREATE UNIQUE INDEX IF NOT EXISTS "Monster_userId_clientId_key" ON "Monster" ("userId", "clientId")`,
	SQLite:   `CREATE UNIQUE INDEX IF NOT EXISTS "Monster_userId_clientId_key" ON "Monster" ("userId", "clientId")`,
}

// Migrate приводит схему к виду, который ожидают обработчики.
// Выполняется один раз при старте, повторный запуск ничего не меняет.
func Migrate(db *DB, log logrus.FieldLogger) error {
	for _, stmt := range createTables[db.Dialect] {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "create tables")
		}
	}

	if err := EnsureAdminColumn(db, log); err != nil {
		return err
	}

	return ensureMonsterClientID(db, log)
}

// EnsureAdminColumn добавляет колонку isAdmin в User, если её нет
func EnsureAdminColumn(db *DB, log logrus.FieldLogger) error {
	added, err := ensureColumn(db, "User", "isAdmin", addAdminColumn[db.Dialect])
	if err != nil {
		return err
	}
	if added {
		log.Info("Added missing isAdmin column to User table")
	}
	return nil
}

func ensureMonsterClientID(db *DB, log logrus.FieldLogger) error {
	added, err := ensureColumn(db, "Monster", "clientId", addClientIDColumn[db.Dialect])
	if err != nil {
		return err
	}

	id := db.Dialect.JSONValue("data", "id")
	res, err := db.Exec(`UPDATE "Monster" SET "clientId" = ` + id +
		` WHERE "clientId" IS NULL AND ` + id + ` IS NOT NULL AND ` + id + ` NOT IN (?, ?)`, "null", `""`)
	if err != nil {
		return errors.Wrap(err, "backfill Monster.clientId")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Infof("Backfilled clientId for %d monsters", n)
	}

	if added {
		if _, err := db.Exec(addClientIDIndex[db.Dialect]); err != nil {
			return errors.Wrap(err, "create Monster clientId index")
		}
		log.Info("Added clientId column and unique index to Monster table")
	}
	return nil
}

// ensureColumn пробует прочитать колонку и добавляет её, если база ответила
// ошибкой «нет такой колонки». Имя квалифицировано таблицей: неизвестный
// "идентификатор" без квалификации SQLite читает как строковый литерал.
func ensureColumn(db *DB, table, column, alter string) (bool, error) {
	rows, err := db.Query(`SELECT "` + table + `"."` + column + `" FROM "` + table + `" LIMIT 1`)
	if err == nil {
		rows.Close()
		return false, nil
	}
	if !IsUndefinedColumn(err) {
		return false, errors.Wrapf(err, "probe %s.%s", table, column)
	}

	if _, err := db.Exec(alter); err != nil {
		return false, errors.Wrapf(err, "add %s.%s", table, column)
	}
	return true, nil
}
