package core

import (
	"context"
	"strings"

	"mapstore/pkg/domain"
)

// Elements is an instrumented view of one element repository.
type Elements[E any] struct {
	svc  *Service
	kind string
	repo domain.ElementRepository[E]
}

func newElements[E any](svc *Service, kind domain.ElementType, repo domain.ElementRepository[E]) Elements[E] {
	return Elements[E]{svc: svc, kind: strings.ToLower(kind.String()), repo: repo}
}

// Nodes returns the node repository view.
func (s *Service) Nodes() Elements[domain.Node] {
	return newElements[domain.Node](s, domain.ElementNode, s.stores.Nodes)
}

// Ways returns the way repository view.
func (s *Service) Ways() Elements[domain.Way] {
	return newElements[domain.Way](s, domain.ElementWay, s.stores.Ways)
}

// Relations returns the relation repository view.
func (s *Service) Relations() Elements[domain.Relation] {
	return newElements[domain.Relation](s, domain.ElementRelation, s.stores.Relations)
}

// Put inserts or replaces an element.
func (e Elements[E]) Put(ctx context.Context, element E) error {
	return e.svc.run(ctx, "put_"+e.kind, func(ctx context.Context) error {
		return e.repo.Put(ctx, element)
	})
}

// PutAll upserts elements in one transaction.
func (e Elements[E]) PutAll(ctx context.Context, elements []E) error {
	return e.svc.run(ctx, "put_"+e.kind+"s", func(ctx context.Context) error {
		return e.repo.PutAll(ctx, elements)
	})
}

// Get loads an element; found is false when it does not exist.
func (e Elements[E]) Get(ctx context.Context, id int64) (element E, found bool, err error) {
	err = e.svc.run(ctx, "get_"+e.kind, func(ctx context.Context) error {
		var getErr error
		element, found, getErr = e.repo.Get(ctx, id)
		return getErr
	})
	return element, found, err
}

// Delete removes an element; a missing id is not an error.
func (e Elements[E]) Delete(ctx context.Context, id int64) error {
	return e.svc.run(ctx, "delete_"+e.kind, func(ctx context.Context) error {
		return e.repo.Delete(ctx, id)
	})
}
