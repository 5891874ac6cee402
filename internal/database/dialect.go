// internal/database/dialect.go
package database

import (
	"strconv"
	"strings"
)

type Dialect int

const (
	MySQL Dialect = iota
	Postgres
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

func (d Dialect) DriverName() string {
	if d == SQLite {
		return "sqlite3"
	}
	return d.String()
}

// Rebind приводит запрос к диалекту. Исходный SQL пишется с плейсхолдерами `?`
// и идентификаторами в двойных кавычках: для Postgres `?` меняются на $1..$n,
// для MySQL двойные кавычки на обратные. Строковые литералы в одинарных
// кавычках не должны содержать `?` и `"`.
func (d Dialect) Rebind(query string) string {
	switch d {
	case MySQL:
		return strings.ReplaceAll(query, `"`, "`")
	case Postgres:
		var b strings.Builder
		b.Grow(len(query) + 8)
		n := 0
		for _, r := range query {
			if r == '?' {
				n++
				b.WriteByte('$')
				b.WriteString(strconv.Itoa(n))
				continue
			}
			b.WriteRune(r)
		}
		return b.String()
	default:
		return query
	}
}

// JSONValue - выражение, возвращающее поле верхнего уровня JSON-колонки
// как JSON-текст: строка остаётся в кавычках, число пишется как есть.
// Отсутствующее поле даёт NULL, JSON null - текст null.
func (d Dialect) JSONValue(column, key string) string {
	switch d {
	case Postgres:
		return "((" + column + "::jsonb -> '" + key + "')::text)"
	case SQLite:
		return "(" + column + " -> '$." + key + "')"
	default:
		return "CAST(JSON_EXTRACT(" + column + ", '$." + key + "') AS CHAR)"
	}
}
