// Package archive copies notes between a note store and blob storage, one
// codec-encoded blob per note under a key prefix.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mapstore/internal/blob"
	"mapstore/internal/codec"
	"mapstore/internal/notedao"
	"mapstore/pkg/domain"
)

// DefaultPrefix is the key prefix notes are exported under.
const DefaultPrefix = "notes/"

const (
	codecMetaKey = "codec"
	archiveTable = "archive"
)

// NoteStore is the part of the note repository the archive needs.
type NoteStore interface {
	Get(ctx context.Context, id int64) (domain.Note, bool, error)
	PutAll(ctx context.Context, notes []domain.Note) error
	IDs(ctx context.Context) ([]int64, error)
}

// Archive exports and imports notes.
type Archive struct {
	notes  NoteStore
	blobs  blob.Store
	codec  codec.Codec
	prefix string
}

// New returns an archive writing with c under DefaultPrefix.
func New(notes NoteStore, blobs blob.Store, c codec.Codec) *Archive {
	return &Archive{notes: notes, blobs: blobs, codec: c, prefix: DefaultPrefix}
}

// Key returns the blob key of note id.
func (a *Archive) Key(id int64) string { return a.prefix + strconv.FormatInt(id, 10) }

// Export writes the given notes, or every stored note when ids is empty, and
// returns how many were written. Existing blobs for the same note are
// replaced. A missing id fails with domain.ErrNotFound.
func (a *Archive) Export(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		all, err := a.notes.IDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("list notes: %w", err)
		}
		ids = all
	}
	written := 0
	for _, id := range ids {
		n, ok, err := a.notes.Get(ctx, id)
		if err != nil {
			return written, fmt.Errorf("export note %d: %w", id, err)
		}
		if !ok {
			return written, fmt.Errorf("export note %d: %w", id, domain.ErrNotFound)
		}
		b, err := a.codec.Marshal(notedao.NewRecord(n))
		if err != nil {
			return written, fmt.Errorf("encode note %d: %w", id, err)
		}
		key := a.Key(id)
		if _, err := a.blobs.Delete(ctx, key); err != nil {
			return written, fmt.Errorf("replace %s: %w", key, err)
		}
		opts := blob.PutOptions{
			ContentType: "application/" + a.codec.Name(),
			Metadata:    map[string]string{codecMetaKey: a.codec.Name()},
		}
		if _, err := a.blobs.Put(ctx, key, bytes.NewReader(b), opts); err != nil {
			return written, fmt.Errorf("write %s: %w", key, err)
		}
		written++
	}
	return written, nil
}

// Import reads every archived note and upserts them in one batch. Each blob
// is decoded with the codec recorded in its metadata, falling back to the
// archive's own codec.
func (a *Archive) Import(ctx context.Context) (int, error) {
	infos, err := a.blobs.List(ctx, a.prefix)
	if err != nil {
		return 0, fmt.Errorf("list archive: %w", err)
	}
	notes := make([]domain.Note, 0, len(infos))
	for _, info := range infos {
		n, err := a.read(ctx, info.Key)
		if err != nil {
			return 0, err
		}
		notes = append(notes, n)
	}
	if err := a.notes.PutAll(ctx, notes); err != nil {
		return 0, fmt.Errorf("import notes: %w", err)
	}
	return len(notes), nil
}

func (a *Archive) read(ctx context.Context, key string) (domain.Note, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(key, a.prefix), 10, 64)
	if err != nil {
		return domain.Note{}, fmt.Errorf("archive key %s: not a note id", key)
	}
	info, rc, err := a.blobs.Get(ctx, key)
	if err != nil {
		return domain.Note{}, fmt.Errorf("read %s: %w", key, err)
	}
	b, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return domain.Note{}, fmt.Errorf("read %s: %w", key, err)
	}
	c := a.codec
	if name := info.Metadata[codecMetaKey]; name != "" {
		if c, err = codec.ByName(name); err != nil {
			return domain.Note{}, &domain.DeserializationError{Table: archiveTable, ID: id, Err: err}
		}
	}
	var r notedao.Record
	if err := c.Unmarshal(b, &r); err != nil {
		return domain.Note{}, &domain.DeserializationError{Table: archiveTable, ID: id, Err: err}
	}
	n, err := r.Note()
	if err != nil {
		return domain.Note{}, &domain.DeserializationError{Table: archiveTable, ID: id, Err: err}
	}
	if n.ID != id {
		return domain.Note{}, &domain.DeserializationError{Table: archiveTable, ID: id, Err: errors.New("id does not match key")}
	}
	return n, nil
}
