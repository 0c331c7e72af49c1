package mapdata

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"mapstore/internal/codec"
	"mapstore/internal/elementdao"
	"mapstore/internal/infra/persistence/sqlite"
	"mapstore/pkg/domain"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "map.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newStore[E any](t *testing.T, db *sql.DB, m elementdao.Mapping[E]) *elementdao.Store[E] {
	t.Helper()
	s, err := elementdao.New(db, sqlite.Dialect(), m)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.EnsureTable(context.Background()); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	return s
}

func TestNodeRoundTrip(t *testing.T) {
	for _, c := range []codec.Codec{codec.CBOR(), codec.JSON()} {
		t.Run(c.Name(), func(t *testing.T) {
			s := newStore(t, openDB(t), NodeMapping(c))
			ctx := context.Background()
			in := domain.Node{ID: 42, Version: 3, Position: orb.Point{13.4, 52.5}, Tags: domain.Tags{"amenity": "bench"}}
			if err := s.Put(ctx, in); err != nil {
				t.Fatalf("put: %v", err)
			}
			out, ok, err := s.Get(ctx, 42)
			if err != nil || !ok {
				t.Fatalf("get: ok=%v err=%v", ok, err)
			}
			if out.ID != 42 || out.Version != 3 || !out.Position.Equal(in.Position) {
				t.Fatalf("unexpected node %+v", out)
			}
			if out.Position.Lat() != 52.5 || out.Position.Lon() != 13.4 {
				t.Fatalf("lat/lon swapped: %v", out.Position)
			}
			if out.Tags["amenity"] != "bench" {
				t.Fatalf("tags lost: %v", out.Tags)
			}
		})
	}
}

func TestWayKeepsNodeOrder(t *testing.T) {
	s := newStore(t, openDB(t), WayMapping(codec.CBOR()))
	ctx := context.Background()
	in := domain.Way{ID: 7, Version: 1, NodeIDs: []int64{5, 3, 9, 5}}
	if err := s.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, ok, err := s.Get(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(out.NodeIDs) != len(in.NodeIDs) {
		t.Fatalf("node ids: want %v got %v", in.NodeIDs, out.NodeIDs)
	}
	for i := range in.NodeIDs {
		if out.NodeIDs[i] != in.NodeIDs[i] {
			t.Fatalf("node ids: want %v got %v", in.NodeIDs, out.NodeIDs)
		}
	}
	if out.Tags != nil {
		t.Fatalf("expected nil tags, got %v", out.Tags)
	}
}

func TestRelationMembers(t *testing.T) {
	s := newStore(t, openDB(t), RelationMapping(codec.CBOR()))
	ctx := context.Background()
	in := domain.Relation{
		ID:      11,
		Version: 2,
		Members: []domain.RelationMember{
			{Type: domain.ElementWay, Ref: 7, Role: "outer"},
			{Type: domain.ElementNode, Ref: 42, Role: ""},
		},
		Tags: domain.Tags{"type": "multipolygon"},
	}
	if err := s.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, ok, err := s.Get(ctx, 11)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(out.Members) != 2 || out.Members[0] != in.Members[0] || out.Members[1] != in.Members[1] {
		t.Fatalf("members: want %+v got %+v", in.Members, out.Members)
	}
}

func TestKindsShareTable(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	nodes := newStore(t, db, NodeMapping(codec.CBOR()))
	ways := newStore(t, db, WayMapping(codec.CBOR()))
	if err := nodes.Put(ctx, domain.Node{ID: 6, Position: orb.Point{1, 2}}); err != nil {
		t.Fatalf("put node: %v", err)
	}
	if err := ways.Put(ctx, domain.Way{ID: 6, NodeIDs: []int64{1, 2}}); err != nil {
		t.Fatalf("put way: %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + Table).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected both kinds in %s, got %d rows", Table, count)
	}
	n, ok, err := nodes.Get(ctx, 6)
	if err != nil || !ok || n.Position.Lat() != 2 {
		t.Fatalf("node 6: %+v ok=%v err=%v", n, ok, err)
	}
}

func TestUnknownMemberTypeIsDeserializationError(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	c := codec.CBOR()
	s := newStore(t, db, RelationMapping(c))
	blob, err := c.Marshal(relationData{Members: []memberData{{Type: "AREA", Ref: 1}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO elements (element_type, id, version, data) VALUES ('RELATION', 1, 1, ?)`, blob); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, _, err := s.Get(ctx, 1); !domain.IsDeserialization(err) {
		t.Fatalf("expected deserialization error, got %v", err)
	}
}
