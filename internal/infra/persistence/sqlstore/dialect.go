// Package sqlstore holds the database/sql plumbing shared by the element and
// note stores: dialect differences, transaction scoping and error wrapping.
package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
)

// ColumnType is a logical column type resolved per dialect.
type ColumnType int

// Logical column types understood by every dialect.
const (
	Integer ColumnType = iota
	Real
	Text
	Blob
)

// Dialect captures the handful of differences between the supported engines.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of '?'.
	Numbered bool
	Types    map[ColumnType]string
	// TxOptions used for multi-statement read-then-write scopes.
	TxOptions *sql.TxOptions
}

// SQLite is the dialect of the embedded engine. Serializable read-then-write
// behaviour comes from the connection's immediate transaction lock.
var SQLite = Dialect{
	Name: "sqlite",
	Types: map[ColumnType]string{
		Integer: "INTEGER",
		Real:    "REAL",
		Text:    "TEXT",
		Blob:    "BLOB",
	},
}

// Postgres is the dialect of a PostgreSQL server.
var Postgres = Dialect{
	Name:     "postgres",
	Numbered: true,
	Types: map[ColumnType]string{
		Integer: "BIGINT",
		Real:    "DOUBLE PRECISION",
		Text:    "TEXT",
		Blob:    "BYTEA",
	},
	TxOptions: &sql.TxOptions{Isolation: sql.LevelSerializable},
}

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d.Numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Placeholders returns count bind parameters starting at from, comma separated.
func (d Dialect) Placeholders(from, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.Placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}

// Type resolves a logical column type.
func (d Dialect) Type(t ColumnType) string {
	if name, ok := d.Types[t]; ok {
		return name
	}
	return "TEXT"
}
