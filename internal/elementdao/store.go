package elementdao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"mapstore/internal/infra/persistence/sqlstore"
	"mapstore/pkg/domain"
)

// ErrNoReferences is returned by DeleteUnreferenced when the store was built
// without a reference provider.
var ErrNoReferences = errors.New("elementdao: no reference provider configured")

// Option customises a Store.
type Option func(*options)

type options struct {
	refs sqlstore.ReferenceProvider
}

// WithReferences enables DeleteUnreferenced using the given provider.
func WithReferences(p sqlstore.ReferenceProvider) Option {
	return func(o *options) { o.refs = p }
}

// Store persists elements of one type. Every statement is filtered by the
// bound element type so kinds sharing a table never see each other's rows.
type Store[E any] struct {
	db      *sql.DB
	dialect sqlstore.Dialect
	m       Mapping[E]
	refs    sqlstore.ReferenceProvider

	upsertSQL string
	selectSQL string
	deleteSQL string
	idsSQL    string
}

var _ domain.ElementRepository[domain.Node] = (*Store[domain.Node])(nil)

// New builds a store for the mapping. The caller owns db.
func New[E any](db *sql.DB, d sqlstore.Dialect, m Mapping[E], opts ...Option) (*Store[E], error) {
	if db == nil {
		return nil, fmt.Errorf("elementdao: nil db")
	}
	m = m.withDefaults()
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("elementdao: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store[E]{db: db, dialect: d, m: m, refs: o.refs}
	s.buildQueries()
	return s, nil
}

func (s *Store[E]) buildQueries() {
	m, d := s.m, s.dialect
	valueCols := make([]string, len(m.Columns))
	updates := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		valueCols[i] = c.Name
		updates[i] = fmt.Sprintf("%s = excluded.%s", c.Name, c.Name)
	}
	insertCols := append([]string{m.TypeColumn, m.IDColumn}, valueCols...)
	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	s.upsertSQL = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s, %s) %s`,
		m.Table, strings.Join(insertCols, ", "), d.Placeholders(1, len(insertCols)),
		m.TypeColumn, m.IDColumn, conflict)
	s.selectSQL = fmt.Sprintf(`SELECT %s FROM %s WHERE %s = %s AND %s = %s`,
		strings.Join(append([]string{m.IDColumn}, valueCols...), ", "), m.Table,
		m.TypeColumn, d.Placeholder(1), m.IDColumn, d.Placeholder(2))
	s.deleteSQL = fmt.Sprintf(`DELETE FROM %s WHERE %s = %s AND %s = %s`,
		m.Table, m.TypeColumn, d.Placeholder(1), m.IDColumn, d.Placeholder(2))
	s.idsSQL = fmt.Sprintf(`SELECT %s FROM %s WHERE %s = %s`,
		m.IDColumn, m.Table, m.TypeColumn, d.Placeholder(1))
}

// ElementType returns the discriminator this store is bound to.
func (s *Store[E]) ElementType() domain.ElementType { return s.m.ElementType }

// EnsureTable creates the backing table when it does not exist yet.
func (s *Store[E]) EnsureTable(ctx context.Context) error {
	cols := []string{
		fmt.Sprintf("%s %s NOT NULL", s.m.TypeColumn, s.dialect.Type(sqlstore.Text)),
		fmt.Sprintf("%s %s NOT NULL", s.m.IDColumn, s.dialect.Type(sqlstore.Integer)),
	}
	for _, c := range s.m.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", c.Name, s.dialect.Type(c.Type)))
	}
	cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s, %s)", s.m.TypeColumn, s.m.IDColumn))
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", s.m.Table, strings.Join(cols, ",\n\t"))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return sqlstore.Wrap("create table "+s.m.Table, err)
	}
	return nil
}

// Put inserts the element or replaces every column of the existing row.
func (s *Store[E]) Put(ctx context.Context, element E) error {
	return s.put(ctx, s.db, element)
}

// PutAll upserts all elements in a single transaction.
func (s *Store[E]) PutAll(ctx context.Context, elements []E) error {
	if len(elements) == 0 {
		return nil
	}
	return sqlstore.RunInTx(ctx, s.db, s.dialect, func(tx *sql.Tx) error {
		for _, e := range elements {
			if err := s.put(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store[E]) put(ctx context.Context, q sqlstore.Querier, element E) error {
	id := s.m.ID(element)
	values, err := s.m.ToRow(element)
	if err != nil {
		return fmt.Errorf("encode %s %d: %w", s.m.ElementType, id, err)
	}
	if len(values) != len(s.m.Columns) {
		return fmt.Errorf("encode %s %d: mapping returned %d values for %d columns", s.m.ElementType, id, len(values), len(s.m.Columns))
	}
	args := append([]any{string(s.m.ElementType), id}, values...)
	if _, err := q.ExecContext(ctx, s.upsertSQL, args...); err != nil {
		return sqlstore.Wrap(fmt.Sprintf("put %s %d", s.m.ElementType, id), err)
	}
	return nil
}

// Get loads the element with id. The boolean is false when no row matches.
// Failures fetching the row are storage errors; a fetched row the mapping
// cannot decode is a *domain.DeserializationError.
func (s *Store[E]) Get(ctx context.Context, id int64) (E, bool, error) {
	var zero E
	op := fmt.Sprintf("get %s %d", s.m.ElementType, id)
	rows, err := s.db.QueryContext(ctx, s.selectSQL, string(s.m.ElementType), id)
	if err != nil {
		return zero, false, sqlstore.Wrap(op, err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, false, sqlstore.Wrap(op, err)
		}
		return zero, false, nil
	}
	element, err := s.m.FromRow(rows)
	if err != nil {
		return zero, false, &domain.DeserializationError{Table: s.m.Table, ID: id, Err: err}
	}
	if err := rows.Close(); err != nil {
		return zero, false, sqlstore.Wrap(op, err)
	}
	return element, true, nil
}

// Delete removes the element with id; deleting a missing id is not an error.
func (s *Store[E]) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, s.deleteSQL, string(s.m.ElementType), id); err != nil {
		return sqlstore.Wrap(fmt.Sprintf("delete %s %d", s.m.ElementType, id), err)
	}
	return nil
}

// DeleteUnreferenced removes every element of this store's type that no
// quest references and returns how many rows were deleted. The reference
// lookup and the deletes share one transaction.
func (s *Store[E]) DeleteUnreferenced(ctx context.Context) (int, error) {
	if s.refs == nil {
		return 0, ErrNoReferences
	}
	deleted := 0
	err := sqlstore.RunInTx(ctx, s.db, s.dialect, func(tx *sql.Tx) error {
		referenced, err := s.refs.ReferencedIDs(ctx, tx, s.m.ElementType)
		if err != nil {
			return sqlstore.Wrap("referenced ids", err)
		}
		ids, err := sqlstore.ScanIDs(ctx, tx, s.idsSQL, string(s.m.ElementType))
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, ok := referenced[id]; ok {
				continue
			}
			res, err := tx.ExecContext(ctx, s.deleteSQL, string(s.m.ElementType), id)
			if err != nil {
				return sqlstore.Wrap(fmt.Sprintf("delete %s %d", s.m.ElementType, id), err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return sqlstore.Wrap("rows affected", err)
			}
			deleted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
