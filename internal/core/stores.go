package core

import (
	"context"
	"database/sql"
	"fmt"

	"mapstore/internal/codec"
	"mapstore/internal/elementdao"
	"mapstore/internal/infra/persistence/postgres"
	"mapstore/internal/infra/persistence/sqlite"
	"mapstore/internal/infra/persistence/sqlstore"
	"mapstore/internal/mapdata"
	"mapstore/internal/notedao"
	"mapstore/internal/questref"
	"mapstore/pkg/domain"
)

// Stores bundles the repositories sharing one database handle.
type Stores struct {
	DB        *sql.DB
	Dialect   sqlstore.Dialect
	Codec     codec.Codec
	Quests    questref.SQL
	Notes     *notedao.Store
	Nodes     *elementdao.Store[domain.Node]
	Ways      *elementdao.Store[domain.Way]
	Relations *elementdao.Store[domain.Relation]
}

// OpenDatabase connects to the engine selected by cfg.
func OpenDatabase(ctx context.Context, cfg Config) (*sql.DB, sqlstore.Dialect, error) {
	driver := cfg.StorageDriver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		return db, sqlite.Dialect(), err
	case StoragePostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		return db, postgres.Dialect(), err
	default:
		return nil, sqlstore.Dialect{}, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenStores opens the database and prepares every table. The caller closes
// the returned Stores.
func OpenStores(ctx context.Context, cfg Config) (*Stores, error) {
	c, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	db, d, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := NewStores(ctx, db, d, c, cfg.QuestTable, cfg.EnsureQuestTable)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStores builds the repositories over an open handle and creates their
// tables if needed.
func NewStores(ctx context.Context, db *sql.DB, d sqlstore.Dialect, c codec.Codec, questTable string, ensureQuests bool) (*Stores, error) {
	quests := questref.NewSQL(d)
	if questTable != "" {
		quests.Table = questTable
	}
	if ensureQuests {
		if err := quests.EnsureTable(ctx, db); err != nil {
			return nil, err
		}
	}
	notes, err := notedao.New(db, d, c, quests)
	if err != nil {
		return nil, err
	}
	nodes, err := elementdao.New(db, d, mapdata.NodeMapping(c), elementdao.WithReferences(quests))
	if err != nil {
		return nil, err
	}
	ways, err := elementdao.New(db, d, mapdata.WayMapping(c), elementdao.WithReferences(quests))
	if err != nil {
		return nil, err
	}
	relations, err := elementdao.New(db, d, mapdata.RelationMapping(c), elementdao.WithReferences(quests))
	if err != nil {
		return nil, err
	}
	s := &Stores{
		DB:        db,
		Dialect:   d,
		Codec:     c,
		Quests:    quests,
		Notes:     notes,
		Nodes:     nodes,
		Ways:      ways,
		Relations: relations,
	}
	for _, ensure := range []func(context.Context) error{notes.EnsureTable, nodes.EnsureTable, ways.EnsureTable, relations.EnsureTable} {
		if err := ensure(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close releases the database handle.
func (s *Stores) Close() error { return s.DB.Close() }
