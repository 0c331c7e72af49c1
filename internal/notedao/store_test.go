package notedao

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"mapstore/internal/codec"
	pgtestutil "mapstore/internal/infra/persistence/postgres/testutil"
	"mapstore/internal/infra/persistence/sqlite"
	"mapstore/internal/infra/persistence/sqlstore"
	"mapstore/internal/questref"
	"mapstore/pkg/domain"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newStore(t *testing.T, db *sql.DB, c codec.Codec) *Store {
	t.Helper()
	ctx := context.Background()
	quests := questref.NewSQL(sqlite.Dialect())
	if err := quests.EnsureTable(ctx, db); err != nil {
		t.Fatalf("quest table: %v", err)
	}
	s, err := New(db, sqlite.Dialect(), c, quests)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.EnsureTable(ctx); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	return s
}

func strPtr(s string) *string { return &s }

func millis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func createNote() domain.Note {
	return domain.Note{
		ID:          5,
		Position:    orb.Point{1, 1},
		Status:      domain.NoteOpen,
		DateCreated: millis(5000),
		Comments: []domain.NoteComment{{
			Action: domain.ActionOpened,
			Date:   millis(5000),
			Text:   strPtr("hi"),
			User:   &domain.User{ID: 5, DisplayName: "PingPong"},
		}},
	}
}

func checkEqual(t *testing.T, want, got domain.Note) {
	t.Helper()
	if want.ID != got.ID {
		t.Fatalf("id: want %d got %d", want.ID, got.ID)
	}
	if !want.Position.Equal(got.Position) {
		t.Fatalf("position: want %v got %v", want.Position, got.Position)
	}
	if want.Status != got.Status {
		t.Fatalf("status: want %s got %s", want.Status, got.Status)
	}
	if !want.DateCreated.Equal(got.DateCreated) {
		t.Fatalf("date created: want %v got %v", want.DateCreated, got.DateCreated)
	}
	switch {
	case want.DateClosed == nil && got.DateClosed != nil:
		t.Fatalf("date closed: want nil got %v", *got.DateClosed)
	case want.DateClosed != nil && got.DateClosed == nil:
		t.Fatalf("date closed: want %v got nil", *want.DateClosed)
	case want.DateClosed != nil && !want.DateClosed.Equal(*got.DateClosed):
		t.Fatalf("date closed: want %v got %v", *want.DateClosed, *got.DateClosed)
	}
	if len(want.Comments) != len(got.Comments) {
		t.Fatalf("comments: want %d got %d", len(want.Comments), len(got.Comments))
	}
	for i := range want.Comments {
		w, g := want.Comments[i], got.Comments[i]
		if w.Action != g.Action || !w.Date.Equal(g.Date) {
			t.Fatalf("comment %d: want %+v got %+v", i, w, g)
		}
		if (w.Text == nil) != (g.Text == nil) || (w.Text != nil && *w.Text != *g.Text) {
			t.Fatalf("comment %d text mismatch", i)
		}
		if (w.User == nil) != (g.User == nil) || (w.User != nil && *w.User != *g.User) {
			t.Fatalf("comment %d user mismatch", i)
		}
	}
}

func mustGet(t *testing.T, s *Store, id int64) domain.Note {
	t.Helper()
	n, ok, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %d: %v", id, err)
	}
	if !ok {
		t.Fatalf("note %d not found", id)
	}
	return n
}

func TestPutGetNoClosedDate(t *testing.T) {
	s := newStore(t, openDB(t), codec.CBOR())
	note := createNote()
	if err := s.Put(context.Background(), note); err != nil {
		t.Fatalf("put: %v", err)
	}
	checkEqual(t, note, mustGet(t, s, 5))
}

func TestPutReplace(t *testing.T) {
	s := newStore(t, openDB(t), codec.CBOR())
	ctx := context.Background()
	note := createNote()
	if err := s.Put(ctx, note); err != nil {
		t.Fatalf("put: %v", err)
	}
	note.Status = domain.NoteClosed
	if err := s.Put(ctx, note); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got := mustGet(t, s, 5)
	checkEqual(t, note, got)
	if got.DateClosed != nil {
		t.Fatalf("status change alone must not invent a closed date")
	}
}

func TestPutGetWithClosedDate(t *testing.T) {
	s := newStore(t, openDB(t), codec.CBOR())
	note := createNote()
	closed := millis(6000)
	note.DateClosed = &closed
	note.Status = domain.NoteClosed
	if err := s.Put(context.Background(), note); err != nil {
		t.Fatalf("put: %v", err)
	}
	checkEqual(t, note, mustGet(t, s, 5))
}

func TestGetAbsent(t *testing.T) {
	s := newStore(t, openDB(t), codec.CBOR())
	_, ok, err := s.Get(context.Background(), 5)
	if err != nil || ok {
		t.Fatalf("expected absence, got ok=%v err=%v", ok, err)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t, openDB(t), codec.CBOR())
	ctx := context.Background()
	if err := s.Put(ctx, createNote()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(ctx, 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, 5); ok {
		t.Fatalf("note should be gone")
	}
	if err := s.Delete(ctx, 5); err != nil {
		t.Fatalf("deleting a missing note: %v", err)
	}
}

func TestDeleteUnreferenced(t *testing.T) {
	db := openDB(t)
	s := newStore(t, db, codec.CBOR())
	ctx := context.Background()
	if err := s.Put(ctx, createNote()); err != nil {
		t.Fatalf("put: %v", err)
	}
	n, err := s.DeleteUnreferenced(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 deleted, got %d (%v)", n, err)
	}
	if err := s.Put(ctx, createNote()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO osm_quests (element_id, element_type) VALUES (5, 'NOTE')`); err != nil {
		t.Fatalf("insert quest: %v", err)
	}
	n, err = s.DeleteUnreferenced(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected 0 deleted, got %d (%v)", n, err)
	}
	mustGet(t, s, 5)
}

func TestDeleteUnreferencedIgnoresOtherElementTypes(t *testing.T) {
	db := openDB(t)
	s := newStore(t, db, codec.CBOR())
	ctx := context.Background()
	if err := s.Put(ctx, createNote()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO osm_quests (element_id, element_type) VALUES (5, 'NODE')`); err != nil {
		t.Fatalf("insert quest: %v", err)
	}
	if n, err := s.DeleteUnreferenced(ctx); err != nil || n != 1 {
		t.Fatalf("a node quest must not keep note 5, got %d (%v)", n, err)
	}
}

func TestDeleteUnreferencedStaticProvider(t *testing.T) {
	db := openDB(t)
	s, err := New(db, sqlite.Dialect(), codec.CBOR(), questref.Static{domain.ElementNote: {7}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if err := s.EnsureTable(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	a, b := createNote(), createNote()
	b.ID = 7
	if err := s.PutAll(ctx, []domain.Note{a, b}); err != nil {
		t.Fatalf("put all: %v", err)
	}
	if n, err := s.DeleteUnreferenced(ctx); err != nil || n != 1 {
		t.Fatalf("expected 1 deleted, got %d (%v)", n, err)
	}
	ids, err := s.IDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("expected only note 7, got %v (%v)", ids, err)
	}
}

func TestDeleteUnreferencedWithoutProvider(t *testing.T) {
	s, err := New(openDB(t), sqlite.Dialect(), codec.CBOR(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.DeleteUnreferenced(context.Background()); !errors.Is(err, ErrNoReferences) {
		t.Fatalf("expected ErrNoReferences, got %v", err)
	}
}

func TestCommentsKeepOrderAndOptionalFields(t *testing.T) {
	s := newStore(t, openDB(t), codec.CBOR())
	note := createNote()
	note.AddComment(millis(5500), nil, "anonymous remark")
	note.Comments = append(note.Comments, domain.NoteComment{Action: domain.ActionHidden, Date: millis(5600)})
	note.Close(millis(6000), &domain.User{ID: 9, DisplayName: "Closer"}, nil)
	if err := s.Put(context.Background(), note); err != nil {
		t.Fatalf("put: %v", err)
	}
	got := mustGet(t, s, 5)
	checkEqual(t, note, got)
	if got.Comments[1].User != nil || got.Comments[2].Text != nil {
		t.Fatalf("absent fields should read back as nil: %+v", got.Comments)
	}
}

func TestEmptyCommentsReadBackNil(t *testing.T) {
	s := newStore(t, openDB(t), codec.CBOR())
	note := createNote()
	note.Comments = []domain.NoteComment{}
	if err := s.Put(context.Background(), note); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := mustGet(t, s, 5); got.Comments != nil {
		t.Fatalf("expected nil comments, got %v", got.Comments)
	}
}

func TestJSONCodec(t *testing.T) {
	s := newStore(t, openDB(t), codec.JSON())
	note := createNote()
	note.AddComment(millis(7000), nil, "second")
	if err := s.Put(context.Background(), note); err != nil {
		t.Fatalf("put: %v", err)
	}
	checkEqual(t, note, mustGet(t, s, 5))
}

func TestPutAllAndIDs(t *testing.T) {
	s := newStore(t, openDB(t), codec.CBOR())
	ctx := context.Background()
	var notes []domain.Note
	for _, id := range []int64{9, 3, 5} {
		n := createNote()
		n.ID = id
		notes = append(notes, n)
	}
	if err := s.PutAll(ctx, notes); err != nil {
		t.Fatalf("put all: %v", err)
	}
	ids, err := s.IDs(ctx)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	want := []int64{3, 5, 9}
	if len(ids) != len(want) {
		t.Fatalf("ids: want %v got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids: want %v got %v", want, ids)
		}
	}
}

func TestCorruptBlobIsDeserializationError(t *testing.T) {
	db := openDB(t)
	s := newStore(t, db, codec.CBOR())
	ctx := context.Background()
	if err := s.Put(ctx, createNote()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := db.Exec(`UPDATE notes SET data = ? WHERE id = 5`, []byte{0xff, 0x00, 0x13}); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	_, ok, err := s.Get(ctx, 5)
	if ok || !domain.IsDeserialization(err) {
		t.Fatalf("expected deserialization error, got ok=%v err=%v", ok, err)
	}
	var de *domain.DeserializationError
	if !errors.As(err, &de) || de.Table != Table || de.ID != 5 {
		t.Fatalf("unexpected error detail: %v", err)
	}
}

func TestUnknownStatusIsDeserializationError(t *testing.T) {
	db := openDB(t)
	s := newStore(t, db, codec.CBOR())
	ctx := context.Background()
	if err := s.Put(ctx, createNote()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := db.Exec(`UPDATE notes SET status = 'ARCHIVED' WHERE id = 5`); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, _, err := s.Get(ctx, 5); !domain.IsDeserialization(err) {
		t.Fatalf("expected deserialization error, got %v", err)
	}
}

func TestUnparsableColumnIsDeserializationError(t *testing.T) {
	db := openDB(t)
	s := newStore(t, db, codec.CBOR())
	ctx := context.Background()
	if err := s.Put(ctx, createNote()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := db.Exec(`UPDATE notes SET latitude = 'abc' WHERE id = 5`); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	_, found, err := s.Get(ctx, 5)
	if found || !domain.IsDeserialization(err) || domain.IsStorage(err) {
		t.Fatalf("expected deserialization error only, got found=%v err=%v", found, err)
	}
}

func TestFetchFailureIsStorageError(t *testing.T) {
	db, conn := pgtestutil.NewStubDB()
	t.Cleanup(func() { _ = db.Close() })
	conn.QueryCols = []string{"id", "latitude", "longitude", "status", "date_created", "date_closed", "data"}
	conn.NextErr = errors.New("disk I/O error")
	s, err := New(db, sqlstore.Postgres, codec.CBOR(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, found, err := s.Get(context.Background(), 1)
	if found || !domain.IsStorage(err) || domain.IsDeserialization(err) {
		t.Fatalf("expected storage error only, got found=%v err=%v", found, err)
	}
}

func TestDeleteUnreferencedKeepsNotesCommittedWithTheirQuest(t *testing.T) {
	db := openDB(t)
	s := newStore(t, db, codec.CBOR())
	ctx := context.Background()
	const total = 100

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		for {
			select {
			case <-stop:
				done <- nil
				return
			default:
			}
			if _, err := s.DeleteUnreferenced(ctx); err != nil {
				done <- err
				return
			}
		}
	}()

	for i := int64(1); i <= total; i++ {
		note := createNote()
		note.ID = i
		err := sqlstore.RunInTx(ctx, db, sqlite.Dialect(), func(tx *sql.Tx) error {
			if err := s.put(ctx, tx, note); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO osm_quests (element_id, element_type) VALUES (?, 'NOTE')`, i)
			return err
		})
		if err != nil {
			close(stop)
			t.Fatalf("commit note %d: %v", i, err)
		}
	}
	close(stop)
	if err := <-done; err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	ids, err := s.IDs(ctx)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != total {
		t.Fatalf("expected all %d referenced notes to survive, got %d", total, len(ids))
	}
}

func TestNewRequiresDBAndCodec(t *testing.T) {
	if _, err := New(nil, sqlite.Dialect(), codec.CBOR(), nil); err == nil {
		t.Fatalf("expected nil db error")
	}
	if _, err := New(openDB(t), sqlite.Dialect(), nil, nil); err == nil {
		t.Fatalf("expected nil codec error")
	}
}
