// Package questref answers which elements and notes are still referenced by
// quests. The quest table is owned elsewhere; this package only reads it.
package questref

import (
	"context"
	"fmt"

	"mapstore/internal/infra/persistence/sqlstore"
	"mapstore/pkg/domain"
)

// Default names of the quest table and its referencing columns.
const (
	DefaultTable      = "osm_quests"
	DefaultIDColumn   = "element_id"
	DefaultTypeColumn = "element_type"
)

// SQL reads referenced ids from a quest table reachable through the
// querier handed to ReferencedIDs.
type SQL struct {
	Table      string
	IDColumn   string
	TypeColumn string
	Dialect    sqlstore.Dialect
}

var _ sqlstore.ReferenceProvider = SQL{}

// NewSQL returns a provider for the default quest table layout.
func NewSQL(d sqlstore.Dialect) SQL {
	return SQL{Table: DefaultTable, IDColumn: DefaultIDColumn, TypeColumn: DefaultTypeColumn, Dialect: d}
}

func (p SQL) names() (table, idCol, typeCol string, err error) {
	table, idCol, typeCol = p.Table, p.IDColumn, p.TypeColumn
	if table == "" {
		table = DefaultTable
	}
	if idCol == "" {
		idCol = DefaultIDColumn
	}
	if typeCol == "" {
		typeCol = DefaultTypeColumn
	}
	for _, n := range []string{table, idCol, typeCol} {
		if !sqlstore.ValidIdentifier(n) {
			return "", "", "", fmt.Errorf("invalid quest identifier %q", n)
		}
	}
	return table, idCol, typeCol, nil
}

// ReferencedIDs returns the distinct ids referenced by quest rows of elementType.
func (p SQL) ReferencedIDs(ctx context.Context, q sqlstore.Querier, elementType domain.ElementType) (map[int64]struct{}, error) {
	table, idCol, typeCol, err := p.names()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s = %s`, idCol, table, typeCol, p.Dialect.Placeholder(1))
	ids, err := sqlstore.ScanIDs(ctx, q, query, string(elementType))
	if err != nil {
		return nil, fmt.Errorf("quest references: %w", err)
	}
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// Static is a fixed reference set keyed by element type, for callers that
// track quests outside the database.
type Static map[domain.ElementType][]int64

var _ sqlstore.ReferenceProvider = Static{}

// ReferencedIDs returns the configured ids of elementType; the querier is unused.
func (s Static) ReferencedIDs(_ context.Context, _ sqlstore.Querier, elementType domain.ElementType) (map[int64]struct{}, error) {
	ids := s[elementType]
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// EnsureTable creates a minimal quest table holding only the referencing
// columns. Applications owning a richer quest table never need this; it keeps
// a fresh database usable for cleanup runs and tests.
func (p SQL) EnsureTable(ctx context.Context, q sqlstore.Querier) error {
	table, idCol, typeCol, err := p.names()
	if err != nil {
		return err
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s %s NOT NULL,
	%s %s NOT NULL
)`, table, idCol, p.Dialect.Type(sqlstore.Integer), typeCol, p.Dialect.Type(sqlstore.Text))
	if _, err := q.ExecContext(ctx, ddl); err != nil {
		return sqlstore.Wrap("create table "+table, err)
	}
	return nil
}
