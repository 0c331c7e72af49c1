package domain

import "context"

// ElementRepository is the contract of a typed element store bound to one
// element type. Get reports absence through the boolean, never through a
// zero-valued element.
type ElementRepository[E any] interface {
	Put(ctx context.Context, element E) error
	PutAll(ctx context.Context, elements []E) error
	Get(ctx context.Context, id int64) (E, bool, error)
	Delete(ctx context.Context, id int64) error
	DeleteUnreferenced(ctx context.Context) (int, error)
}

// NoteRepository is the contract of the note aggregate store.
type NoteRepository interface {
	Put(ctx context.Context, note Note) error
	PutAll(ctx context.Context, notes []Note) error
	Get(ctx context.Context, id int64) (Note, bool, error)
	Delete(ctx context.Context, id int64) error
	DeleteUnreferenced(ctx context.Context) (int, error)
	IDs(ctx context.Context) ([]int64, error)
}
