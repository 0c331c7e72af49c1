// Package mapdata provides the element mappings for nodes, ways and relations.
// All three kinds share one table, told apart by the element type column; the
// version is a plain column and the remaining attributes travel in a codec blob.
package mapdata

import (
	"fmt"

	"github.com/paulmach/orb"

	"mapstore/internal/codec"
	"mapstore/internal/elementdao"
	"mapstore/internal/infra/persistence/sqlstore"
	"mapstore/pkg/domain"
)

// Table is the element table shared by every map data kind.
const Table = "elements"

// Column names of the shared element table.
const (
	ColumnVersion = "version"
	ColumnData    = "data"
)

var columns = []elementdao.Column{
	{Name: ColumnVersion, Type: sqlstore.Integer},
	{Name: ColumnData, Type: sqlstore.Blob},
}

type nodeData struct {
	Lat  float64           `cbor:"lat" json:"lat"`
	Lon  float64           `cbor:"lon" json:"lon"`
	Tags map[string]string `cbor:"tags,omitempty" json:"tags,omitempty"`
}

type wayData struct {
	NodeIDs []int64           `cbor:"nodes" json:"nodes"`
	Tags    map[string]string `cbor:"tags,omitempty" json:"tags,omitempty"`
}

type memberData struct {
	Type string `cbor:"type" json:"type"`
	Ref  int64  `cbor:"ref" json:"ref"`
	Role string `cbor:"role" json:"role"`
}

type relationData struct {
	Members []memberData      `cbor:"members" json:"members"`
	Tags    map[string]string `cbor:"tags,omitempty" json:"tags,omitempty"`
}

// NodeMapping maps domain.Node rows.
func NodeMapping(c codec.Codec) elementdao.Mapping[domain.Node] {
	return elementdao.Mapping[domain.Node]{
		Table:       Table,
		ElementType: domain.ElementNode,
		Columns:     columns,
		ID:          func(n domain.Node) int64 { return n.ID },
		ToRow: func(n domain.Node) ([]any, error) {
			data, err := c.Marshal(nodeData{Lat: n.Position.Lat(), Lon: n.Position.Lon(), Tags: n.Tags})
			if err != nil {
				return nil, err
			}
			return []any{n.Version, data}, nil
		},
		FromRow: func(row elementdao.RowScanner) (domain.Node, error) {
			var n domain.Node
			var data []byte
			if err := row.Scan(&n.ID, &n.Version, &data); err != nil {
				return domain.Node{}, err
			}
			var nd nodeData
			if err := c.Unmarshal(data, &nd); err != nil {
				return domain.Node{}, err
			}
			n.Position = orb.Point{nd.Lon, nd.Lat}
			n.Tags = nd.Tags
			return n, nil
		},
	}
}

// WayMapping maps domain.Way rows.
func WayMapping(c codec.Codec) elementdao.Mapping[domain.Way] {
	return elementdao.Mapping[domain.Way]{
		Table:       Table,
		ElementType: domain.ElementWay,
		Columns:     columns,
		ID:          func(w domain.Way) int64 { return w.ID },
		ToRow: func(w domain.Way) ([]any, error) {
			data, err := c.Marshal(wayData{NodeIDs: w.NodeIDs, Tags: w.Tags})
			if err != nil {
				return nil, err
			}
			return []any{w.Version, data}, nil
		},
		FromRow: func(row elementdao.RowScanner) (domain.Way, error) {
			var w domain.Way
			var data []byte
			if err := row.Scan(&w.ID, &w.Version, &data); err != nil {
				return domain.Way{}, err
			}
			var wd wayData
			if err := c.Unmarshal(data, &wd); err != nil {
				return domain.Way{}, err
			}
			w.NodeIDs = wd.NodeIDs
			w.Tags = wd.Tags
			return w, nil
		},
	}
}

// RelationMapping maps domain.Relation rows.
func RelationMapping(c codec.Codec) elementdao.Mapping[domain.Relation] {
	return elementdao.Mapping[domain.Relation]{
		Table:       Table,
		ElementType: domain.ElementRelation,
		Columns:     columns,
		ID:          func(r domain.Relation) int64 { return r.ID },
		ToRow: func(r domain.Relation) ([]any, error) {
			rd := relationData{Tags: r.Tags, Members: make([]memberData, len(r.Members))}
			for i, m := range r.Members {
				rd.Members[i] = memberData{Type: string(m.Type), Ref: m.Ref, Role: m.Role}
			}
			data, err := c.Marshal(rd)
			if err != nil {
				return nil, err
			}
			return []any{r.Version, data}, nil
		},
		FromRow: func(row elementdao.RowScanner) (domain.Relation, error) {
			var r domain.Relation
			var data []byte
			if err := row.Scan(&r.ID, &r.Version, &data); err != nil {
				return domain.Relation{}, err
			}
			var rd relationData
			if err := c.Unmarshal(data, &rd); err != nil {
				return domain.Relation{}, err
			}
			if len(rd.Members) > 0 {
				r.Members = make([]domain.RelationMember, len(rd.Members))
			}
			for i, m := range rd.Members {
				t, err := domain.ParseElementType(m.Type)
				if err != nil {
					return domain.Relation{}, fmt.Errorf("member %d: %w", i, err)
				}
				r.Members[i] = domain.RelationMember{Type: t, Ref: m.Ref, Role: m.Role}
			}
			r.Tags = rd.Tags
			return r, nil
		},
	}
}
