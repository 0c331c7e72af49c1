// Package notedao persists note aggregates. Queryable fields live in columns;
// the ordered comment thread is serialized into a single blob column.
package notedao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"mapstore/internal/codec"
	"mapstore/internal/infra/persistence/sqlstore"
	"mapstore/pkg/domain"
)

// Table is the note table name.
const Table = "notes"

// ErrNoReferences is returned by DeleteUnreferenced when the store was built
// without a reference provider.
var ErrNoReferences = errors.New("notedao: no reference provider configured")

const (
	upsertCols = "id, latitude, longitude, status, date_created, date_closed, data"
	selectCols = upsertCols
)

// Store persists domain.Note values.
type Store struct {
	db      *sql.DB
	dialect sqlstore.Dialect
	codec   codec.Codec
	refs    sqlstore.ReferenceProvider

	upsertSQL string
	selectSQL string
	deleteSQL string
	idsSQL    string
}

var _ domain.NoteRepository = (*Store)(nil)

// New builds a note store. refs may be nil, in which case DeleteUnreferenced
// is unavailable. The caller owns db.
func New(db *sql.DB, d sqlstore.Dialect, c codec.Codec, refs sqlstore.ReferenceProvider) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("notedao: nil db")
	}
	if c == nil {
		return nil, fmt.Errorf("notedao: nil codec")
	}
	s := &Store{db: db, dialect: d, codec: c, refs: refs}
	s.upsertSQL = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
ON CONFLICT (id) DO UPDATE SET
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	status = excluded.status,
	date_created = excluded.date_created,
	date_closed = excluded.date_closed,
	data = excluded.data`, Table, upsertCols, d.Placeholders(1, 7))
	s.selectSQL = fmt.Sprintf(`SELECT %s FROM %s WHERE id = %s`, selectCols, Table, d.Placeholder(1))
	s.deleteSQL = fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, Table, d.Placeholder(1))
	s.idsSQL = fmt.Sprintf(`SELECT id FROM %s ORDER BY id`, Table)
	return s, nil
}

// EnsureTable creates the note table when it does not exist yet.
func (s *Store) EnsureTable(ctx context.Context) error {
	d := s.dialect
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s PRIMARY KEY,
	latitude %s NOT NULL,
	longitude %s NOT NULL,
	status %s NOT NULL,
	date_created %s NOT NULL,
	date_closed %s,
	data %s NOT NULL
)`, Table, d.Type(sqlstore.Integer), d.Type(sqlstore.Real), d.Type(sqlstore.Real),
		d.Type(sqlstore.Text), d.Type(sqlstore.Integer), d.Type(sqlstore.Integer), d.Type(sqlstore.Blob))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return sqlstore.Wrap("create table "+Table, err)
	}
	return nil
}

// Put inserts the note or replaces every column of the existing row.
func (s *Store) Put(ctx context.Context, note domain.Note) error {
	return s.put(ctx, s.db, note)
}

// PutAll upserts all notes in a single transaction.
func (s *Store) PutAll(ctx context.Context, notes []domain.Note) error {
	if len(notes) == 0 {
		return nil
	}
	return sqlstore.RunInTx(ctx, s.db, s.dialect, func(tx *sql.Tx) error {
		for _, n := range notes {
			if err := s.put(ctx, tx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) put(ctx context.Context, q sqlstore.Querier, note domain.Note) error {
	data, err := encodeComments(s.codec, note.Comments)
	if err != nil {
		return fmt.Errorf("encode note %d: %w", note.ID, err)
	}
	var closed any
	if note.DateClosed != nil {
		closed = toMillis(*note.DateClosed)
	}
	_, err = q.ExecContext(ctx, s.upsertSQL,
		note.ID,
		note.Position.Lat(),
		note.Position.Lon(),
		string(note.Status),
		toMillis(note.DateCreated),
		closed,
		data,
	)
	if err != nil {
		return sqlstore.Wrap(fmt.Sprintf("put note %d", note.ID), err)
	}
	return nil
}

// Get loads the note with id. The boolean is false when no row matches; a row
// that is fetched but cannot be decoded yields a *domain.DeserializationError.
func (s *Store) Get(ctx context.Context, id int64) (domain.Note, bool, error) {
	op := fmt.Sprintf("get note %d", id)
	rows, err := s.db.QueryContext(ctx, s.selectSQL, id)
	if err != nil {
		return domain.Note{}, false, sqlstore.Wrap(op, err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.Note{}, false, sqlstore.Wrap(op, err)
		}
		return domain.Note{}, false, nil
	}
	note, err := s.scanNote(rows)
	if err != nil {
		return domain.Note{}, false, &domain.DeserializationError{Table: Table, ID: id, Err: err}
	}
	if err := rows.Close(); err != nil {
		return domain.Note{}, false, sqlstore.Wrap(op, err)
	}
	return note, true, nil
}

func (s *Store) scanNote(rows *sql.Rows) (domain.Note, error) {
	var (
		note    domain.Note
		lat     float64
		lon     float64
		status  string
		created int64
		closed  sql.NullInt64
		data    []byte
	)
	if err := rows.Scan(&note.ID, &lat, &lon, &status, &created, &closed, &data); err != nil {
		return domain.Note{}, err
	}
	var err error
	if note.Status, err = domain.ParseNoteStatus(status); err != nil {
		return domain.Note{}, err
	}
	if note.Comments, err = decodeComments(s.codec, data); err != nil {
		return domain.Note{}, err
	}
	note.Position = orb.Point{lon, lat}
	note.DateCreated = fromMillis(created)
	if closed.Valid {
		t := fromMillis(closed.Int64)
		note.DateClosed = &t
	}
	return note, nil
}

// Delete removes the note with id; deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, s.deleteSQL, id); err != nil {
		return sqlstore.Wrap(fmt.Sprintf("delete note %d", id), err)
	}
	return nil
}

// IDs returns the ids of all stored notes in ascending order.
func (s *Store) IDs(ctx context.Context) ([]int64, error) {
	return sqlstore.ScanIDs(ctx, s.db, s.idsSQL)
}

// DeleteUnreferenced deletes every note no quest points at and returns the
// number of deleted rows. Reading the referenced ids and deleting happen in
// one transaction, so a note and its quest committed together are never
// split by a concurrent cleanup.
func (s *Store) DeleteUnreferenced(ctx context.Context) (int, error) {
	if s.refs == nil {
		return 0, ErrNoReferences
	}
	deleted := 0
	err := sqlstore.RunInTx(ctx, s.db, s.dialect, func(tx *sql.Tx) error {
		referenced, err := s.refs.ReferencedIDs(ctx, tx, domain.ElementNote)
		if err != nil {
			return sqlstore.Wrap("referenced ids", err)
		}
		ids, err := sqlstore.ScanIDs(ctx, tx, s.idsSQL)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, ok := referenced[id]; ok {
				continue
			}
			res, err := tx.ExecContext(ctx, s.deleteSQL, id)
			if err != nil {
				return sqlstore.Wrap(fmt.Sprintf("delete note %d", id), err)
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
