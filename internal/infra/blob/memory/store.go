// Package memory keeps archived notes in process memory. It backs
// MAPSTORE_BLOB_DRIVER=memory, where an archive only has to outlive a single
// export/import cycle, and the archive tests.
package memory

import (
	"bytes"
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"mapstore/internal/blob/core"
)

type object struct {
	core.Info
	body []byte
}

func (o object) info() core.Info {
	i := o.Info
	i.Metadata = maps.Clone(i.Metadata)
	return i
}

// Store is a core.Store whose objects vanish with the process. ETags are the
// hex sha256 of the body, as in the fs driver.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{objects: make(map[string]object), now: time.Now}
}

// Driver reports core.DriverMemory.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put is create-only: an existing key fails with core.ErrExists.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, fmt.Errorf("read blob %s: %w", key, err)
	}
	sum := sha256.Sum256(body)
	obj := object{
		Info: core.Info{
			Key:          key,
			Size:         int64(len(body)),
			ContentType:  opts.ContentType,
			ETag:         hex.EncodeToString(sum[:]),
			Metadata:     maps.Clone(opts.Metadata),
			LastModified: s.now().UTC(),
		},
		body: body,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.objects[key]; taken {
		return core.Info{}, fmt.Errorf("put %s: %w", key, core.ErrExists)
	}
	s.objects[key] = obj
	return obj.info(), nil
}

func (s *Store) lookup(op, key string) (object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return object{}, fmt.Errorf("%s %s: %w", op, key, core.ErrNotFound)
	}
	return obj, nil
}

// Get returns the object's info and a reader over a copy of its body.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	obj, err := s.lookup("get", key)
	if err != nil {
		return core.Info{}, nil, err
	}
	return obj.info(), io.NopCloser(bytes.NewReader(bytes.Clone(obj.body))), nil
}

// Head returns the object's info.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	obj, err := s.lookup("head", key)
	if err != nil {
		return core.Info{}, err
	}
	return obj.info(), nil
}

// Delete reports whether key was present.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	delete(s.objects, key)
	return ok, nil
}

// List returns the objects under prefix ordered by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Info
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, obj.info())
		}
	}
	slices.SortFunc(out, func(a, b core.Info) int { return cmp.Compare(a.Key, b.Key) })
	return out, nil
}
