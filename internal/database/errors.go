// internal/database/errors.go
package database

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// QueryError хранит текст запроса, на котором упала база
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string { return e.Err.Error() }
func (e *QueryError) Unwrap() error { return e.Err }
func (e *QueryError) Cause() error  { return e.Err }

// QueryText возвращает SQL из цепочки ошибок, если он там есть
func QueryText(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Query
	}
	return ""
}

var mysqlErrorNames = map[uint16]string{
	1040: "ER_CON_COUNT_ERROR",
	1045: "ER_ACCESS_DENIED_ERROR",
	1049: "ER_BAD_DB_ERROR",
	1054: "ER_BAD_FIELD_ERROR",
	1062: "ER_DUP_ENTRY",
	1064: "ER_PARSE_ERROR",
	1146: "ER_NO_SUCH_TABLE",
	1452: "ER_NO_REFERENCED_ROW_2",
}

var sqliteExtendedNames = map[sqlite3.ErrNoExtended]string{
	sqlite3.ErrConstraintCheck:      "SQLITE_CONSTRAINT_CHECK",
	sqlite3.ErrConstraintForeignKey: "SQLITE_CONSTRAINT_FOREIGNKEY",
	sqlite3.ErrConstraintNotNull:    "SQLITE_CONSTRAINT_NOTNULL",
	sqlite3.ErrConstraintPrimaryKey: "SQLITE_CONSTRAINT_PRIMARYKEY",
	sqlite3.ErrConstraintUnique:     "SQLITE_CONSTRAINT_UNIQUE",
}

var sqliteErrorNames = map[sqlite3.ErrNo]string{
	sqlite3.ErrError:      "SQLITE_ERROR",
	sqlite3.ErrInternal:   "SQLITE_INTERNAL",
	sqlite3.ErrPerm:       "SQLITE_PERM",
	sqlite3.ErrAbort:      "SQLITE_ABORT",
	sqlite3.ErrBusy:       "SQLITE_BUSY",
	sqlite3.ErrLocked:     "SQLITE_LOCKED",
	sqlite3.ErrNomem:      "SQLITE_NOMEM",
	sqlite3.ErrReadonly:   "SQLITE_READONLY",
	sqlite3.ErrIoErr:      "SQLITE_IOERR",
	sqlite3.ErrCorrupt:    "SQLITE_CORRUPT",
	sqlite3.ErrFull:       "SQLITE_FULL",
	sqlite3.ErrCantOpen:   "SQLITE_CANTOPEN",
	sqlite3.ErrConstraint: "SQLITE_CONSTRAINT",
	sqlite3.ErrMismatch:   "SQLITE_MISMATCH",
	sqlite3.ErrMisuse:     "SQLITE_MISUSE",
	sqlite3.ErrNotADB:     "SQLITE_NOTADB",
}

// IsUniqueViolation - нарушение уникального ключа (дубликат)
func IsUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}

// IsUndefinedColumn - обращение к отсутствующей колонке
func IsUndefinedColumn(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1054
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42703"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		msg := liteErr.Error()
		return strings.Contains(msg, "no such column") || strings.Contains(msg, "has no column named")
	}

	return false
}

// ErrorCode возвращает код ошибки производителя БД или UNKNOWN
func ErrorCode(err error) string {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if name, ok := mysqlErrorNames[mysqlErr.Number]; ok {
			return name
		}
		return fmt.Sprintf("ER_%d", mysqlErr.Number)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if name, ok := sqliteExtendedNames[liteErr.ExtendedCode]; ok {
			return name
		}
		if name, ok := sqliteErrorNames[liteErr.Code]; ok {
			return name
		}
		return fmt.Sprintf("SQLITE_%d", int(liteErr.ExtendedCode))
	}

	return "UNKNOWN"
}
