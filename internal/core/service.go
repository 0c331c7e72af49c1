package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mapstore/internal/archive"
	"mapstore/internal/blob"
	"mapstore/pkg/domain"
)

// Service exposes instrumented note and element operations, garbage
// collection of unreferenced rows and the note archive.
type Service struct {
	stores  *Stores
	archive *archive.Archive
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	now     func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder sets the metrics sink. When it also implements
// CleanupRecorder, garbage collection totals are reported too.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithArchive enables note export and import against blobs.
func WithArchive(blobs blob.Store) Option {
	return func(s *Service) {
		if blobs != nil {
			s.archive = archive.New(s.stores.Notes, blobs, s.stores.Codec)
		}
	}
}

// WithClock overrides the time source used for cleanup timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// ErrNoArchive is returned by the archive operations when no blob store was configured.
var ErrNoArchive = errors.New("core: archive not configured")

// NewService wraps stores. The service takes ownership of stores and closes
// them in Close.
func NewService(stores *Stores, opts ...Option) *Service {
	s := &Service{
		stores:  stores,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads stores and the blob store from cfg and returns a ready service.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	return NewService(stores, append([]Option{WithArchive(blobs)}, opts...)...), nil
}

// Stores returns the underlying repositories.
func (s *Service) Stores() *Stores { return s.stores }

// Close releases the database handle.
func (s *Service) Close() error { return s.stores.Close() }

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := fn(ctx)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	span.End(err)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", op, "duration", time.Since(start))
	}
	return err
}

// PutNote inserts or replaces a note.
func (s *Service) PutNote(ctx context.Context, note domain.Note) error {
	return s.run(ctx, "put_note", func(ctx context.Context) error {
		return s.stores.Notes.Put(ctx, note)
	})
}

// PutNotes upserts notes in one transaction.
func (s *Service) PutNotes(ctx context.Context, notes []domain.Note) error {
	return s.run(ctx, "put_notes", func(ctx context.Context) error {
		return s.stores.Notes.PutAll(ctx, notes)
	})
}

// GetNote loads a note; found is false when it does not exist.
func (s *Service) GetNote(ctx context.Context, id int64) (note domain.Note, found bool, err error) {
	err = s.run(ctx, "get_note", func(ctx context.Context) error {
		var getErr error
		note, found, getErr = s.stores.Notes.Get(ctx, id)
		return getErr
	})
	return note, found, err
}

// DeleteNote removes a note; a missing id is not an error.
func (s *Service) DeleteNote(ctx context.Context, id int64) error {
	return s.run(ctx, "delete_note", func(ctx context.Context) error {
		return s.stores.Notes.Delete(ctx, id)
	})
}

// NoteIDs lists stored note ids in ascending order.
func (s *Service) NoteIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.run(ctx, "list_notes", func(ctx context.Context) error {
		var listErr error
		ids, listErr = s.stores.Notes.IDs(ctx)
		return listErr
	})
	return ids, err
}

// ExportNotes writes the given notes (all when ids is empty) to the archive.
func (s *Service) ExportNotes(ctx context.Context, ids []int64) (int, error) {
	if s.archive == nil {
		return 0, ErrNoArchive
	}
	var n int
	err := s.run(ctx, "export_notes", func(ctx context.Context) error {
		var exportErr error
		n, exportErr = s.archive.Export(ctx, ids)
		return exportErr
	})
	if err == nil {
		s.logger.Info("notes exported", "count", n)
	}
	return n, err
}

// ImportNotes loads every archived note into the note store.
func (s *Service) ImportNotes(ctx context.Context) (int, error) {
	if s.archive == nil {
		return 0, ErrNoArchive
	}
	var n int
	err := s.run(ctx, "import_notes", func(ctx context.Context) error {
		var importErr error
		n, importErr = s.archive.Import(ctx)
		return importErr
	})
	if err == nil {
		s.logger.Info("notes imported", "count", n)
	}
	return n, err
}

// GCReport counts the rows removed by one garbage collection run.
type GCReport struct {
	Notes     int
	Nodes     int
	Ways      int
	Relations int
}

// Total returns the number of removed rows.
func (r GCReport) Total() int { return r.Notes + r.Nodes + r.Ways + r.Relations }

// CollectGarbage deletes every note and element no quest references. Each
// kind runs in its own transaction; the first failure stops the run and the
// report holds what was removed up to that point.
func (s *Service) CollectGarbage(ctx context.Context) (GCReport, error) {
	var report GCReport
	steps := []struct {
		kind  domain.ElementType
		count *int
		fn    func(context.Context) (int, error)
	}{
		{domain.ElementNote, &report.Notes, s.stores.Notes.DeleteUnreferenced},
		{domain.ElementNode, &report.Nodes, s.stores.Nodes.DeleteUnreferenced},
		{domain.ElementWay, &report.Ways, s.stores.Ways.DeleteUnreferenced},
		{domain.ElementRelation, &report.Relations, s.stores.Relations.DeleteUnreferenced},
	}
	cleanup, _ := s.metrics.(CleanupRecorder)
	err := s.run(ctx, "collect_garbage", func(ctx context.Context) error {
		for _, step := range steps {
			n, err := step.fn(ctx)
			if err != nil {
				return fmt.Errorf("delete unreferenced %s: %w", step.kind, err)
			}
			*step.count = n
			if cleanup != nil {
				cleanup.RecordDeleted(step.kind.String(), n)
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	if cleanup != nil {
		cleanup.MarkCleanup(s.now())
	}
	s.logger.Info("garbage collected",
		"notes", report.Notes, "nodes", report.Nodes,
		"ways", report.Ways, "relations", report.Relations)
	return report, nil
}

// RunCleanup collects garbage immediately and then every interval until ctx
// is cancelled. Failed runs are logged and retried on the next tick.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("cleanup interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.CollectGarbage(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("cleanup run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
