// internal/database/database.go
package database

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// PoolOptions ограничивает пул соединений. Запросы сверх MaxOpenConns ждут
// свободного соединения внутри database/sql.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var DefaultPoolOptions = PoolOptions{
	MaxOpenConns:    10,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
}

// DB - пул соединений с диалектом. Exec/Query/QueryRow пропускают запрос через Rebind.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Tx - транзакция с тем же переписыванием запросов, что и у DB
type Tx struct {
	*sql.Tx
	dialect Dialect
}

// Row оборачивает sql.Row, чтобы ошибки сканирования несли текст запроса
type Row struct {
	row   *sql.Row
	query string
}

func (r *Row) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if err == nil || err == sql.ErrNoRows {
		return err
	}
	return &QueryError{Query: r.query, Err: err}
}

// Open открывает пул по DATABASE_URL, не проверяя соединение: database/sql
// подключается при первом запросе. Драйвер выбирается по схеме URL:
// mysql://, postgres:// (postgresql://), sqlite:// или file:.
func Open(rawURL string, opts PoolOptions) (*DB, error) {
	dialect, dsn, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dialect)
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return &DB{DB: sqlDB, Dialect: dialect}, nil
}

// Connect - Open с обязательной проверкой соединения
func Connect(rawURL string, opts PoolOptions) (*DB, error) {
	db, err := Open(rawURL, opts)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping %s", db.Dialect)
	}

	return db, nil
}

// ParseURL определяет диалект и собирает DSN для драйвера
func ParseURL(rawURL string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(rawURL, "sqlite://"):
		return SQLite, strings.TrimPrefix(rawURL, "sqlite://"), nil
	case strings.HasPrefix(rawURL, "sqlite:"):
		return SQLite, strings.TrimPrefix(rawURL, "sqlite:"), nil
	case strings.HasPrefix(rawURL, "file:"):
		return SQLite, rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, "", errors.Wrap(err, "parse database url")
	}

	switch u.Scheme {
	case "mysql":
		return MySQL, mysqlDSN(u), nil
	case "postgres", "postgresql":
		return Postgres, rawURL, nil
	default:
		return 0, "", fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

func mysqlDSN(u *url.URL) string {
	cfg := mysql.NewConfig()
	cfg.User = u.User.Username()
	cfg.Passwd, _ = u.User.Password()
	cfg.Net = "tcp"

	port := u.Port()
	if port == "" {
		port = "3306"
	}
	cfg.Addr = net.JoinHostPort(u.Hostname(), port)
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// RowsAffected должен считать найденные строки, а не изменённые:
	// повторное сохранение того же документа не должно превращаться в INSERT
	cfg.ClientFoundRows = true

	if tls := u.Query().Get("tls"); tls != "" {
		cfg.TLSConfig = tls
	}

	return cfg.FormatDSN()
}

func (db *DB) Rebind(query string) string {
	return db.Dialect.Rebind(query)
}

func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	query = db.Rebind(query)
	res, err := db.DB.Exec(query, args...)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return res, nil
}

func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	query = db.Rebind(query)
	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return rows, nil
}

func (db *DB) QueryRow(query string, args ...any) *Row {
	query = db.Rebind(query)
	return &Row{row: db.DB.QueryRow(query, args...), query: query}
}

// InsertID выполняет INSERT и возвращает сгенерированный id
func (db *DB) InsertID(query string, args ...any) (int64, error) {
	if db.Dialect == Postgres {
		var id int64
		err := db.QueryRow(query+" RETURNING id", args...).Scan(&id)
		return id, err
	}

	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) Begin() (*Tx, error) {
	tx, err := db.DB.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	return &Tx{Tx: tx, dialect: db.Dialect}, nil
}

func (tx *Tx) Exec(query string, args ...any) (sql.Result, error) {
	query = tx.dialect.Rebind(query)
	res, err := tx.Tx.Exec(query, args...)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return res, nil
}

func (tx *Tx) Query(query string, args ...any) (*sql.Rows, error) {
	query = tx.dialect.Rebind(query)
	rows, err := tx.Tx.Query(query, args...)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return rows, nil
}

func (tx *Tx) QueryRow(query string, args ...any) *Row {
	query = tx.dialect.Rebind(query)
	return &Row{row: tx.Tx.QueryRow(query, args...), query: query}
}

func (tx *Tx) InsertID(query string, args ...any) (int64, error) {
	if tx.dialect == Postgres {
		var id int64
		err := tx.QueryRow(query+" RETURNING id", args...).Scan(&id)
		return id, err
	}

	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
