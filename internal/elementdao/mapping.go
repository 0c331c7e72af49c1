// Package elementdao implements a typed store over one table shared by
// several element kinds, each store instance bound to a single element type.
package elementdao

import (
	"fmt"

	"mapstore/internal/infra/persistence/sqlstore"
	"mapstore/pkg/domain"
)

// Default column names used when a Mapping leaves them empty.
const (
	DefaultIDColumn   = "id"
	DefaultTypeColumn = "element_type"
)

// Column is a value column written and read by a Mapping.
type Column struct {
	Name string
	Type sqlstore.ColumnType
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// Mapping configures a Store for one element kind. FromRow receives a scanner
// positioned on a row holding the id column followed by Columns in order;
// ToRow returns the values of Columns in order.
type Mapping[E any] struct {
	Table       string
	IDColumn    string
	TypeColumn  string
	ElementType domain.ElementType
	Columns     []Column
	ID          func(E) int64
	ToRow       func(E) ([]any, error)
	FromRow     func(RowScanner) (E, error)
}

func (m Mapping[E]) withDefaults() Mapping[E] {
	if m.IDColumn == "" {
		m.IDColumn = DefaultIDColumn
	}
	if m.TypeColumn == "" {
		m.TypeColumn = DefaultTypeColumn
	}
	return m
}

func (m Mapping[E]) validate() error {
	if m.ElementType == "" {
		return fmt.Errorf("element type required")
	}
	if m.ID == nil || m.ToRow == nil || m.FromRow == nil {
		return fmt.Errorf("mapping for %s requires ID, ToRow and FromRow", m.ElementType)
	}
	if !sqlstore.ValidIdentifier(m.Table) {
		return fmt.Errorf("invalid table name %q for %s", m.Table, m.ElementType)
	}
	names := []string{m.IDColumn, m.TypeColumn}
	for _, c := range m.Columns {
		names = append(names, c.Name)
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if !sqlstore.ValidIdentifier(n) {
			return fmt.Errorf("invalid identifier %q in mapping for %s", n, m.ElementType)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("duplicate column %q in mapping for %s", n, m.ElementType)
		}
		seen[n] = struct{}{}
	}
	return nil
}
