package service_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/events"
	"github.com/quilldocs/quill-api/internal/store"
	"github.com/quilldocs/quill-api/internal/tools"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeTaskStore implements store.TaskStore with overridable functions.
// Methods without an override return zero values.
type fakeTaskStore struct {
	CreateFn     func(ctx context.Context, task *domain.Task) error
	GetByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListByUserFn func(ctx context.Context, userID uuid.UUID, status domain.TaskStatus, limit, offset int) ([]*domain.Task, error)

	mu      sync.Mutex
	created []*domain.Task
}

func (f *fakeTaskStore) Create(ctx context.Context, task *domain.Task) error {
	f.mu.Lock()
	f.created = append(f.created, task)
	f.mu.Unlock()
	if f.CreateFn != nil {
		return f.CreateFn(ctx, task)
	}
	return nil
}

func (f *fakeTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if f.GetByIDFn != nil {
		return f.GetByIDFn(ctx, id)
	}
	return nil, store.ErrTaskNotFound
}

func (f *fakeTaskStore) ListByUser(ctx context.Context, userID uuid.UUID, status domain.TaskStatus, limit, offset int) ([]*domain.Task, error) {
	if f.ListByUserFn != nil {
		return f.ListByUserFn(ctx, userID, status, limit, offset)
	}
	return []*domain.Task{}, nil
}

func (f *fakeTaskStore) Claim(context.Context, uuid.UUID) (*domain.Task, error) {
	return nil, store.ErrTaskNotClaimable
}

func (f *fakeTaskStore) MarkCompleted(context.Context, uuid.UUID, json.RawMessage) error {
	return nil
}

func (f *fakeTaskStore) MarkFailed(context.Context, uuid.UUID, string) error {
	return nil
}

func (f *fakeTaskStore) ListPending(context.Context, int) ([]*domain.Task, error) {
	return []*domain.Task{}, nil
}

func (f *fakeTaskStore) ResetStuck(context.Context, time.Time) ([]*domain.Task, error) {
	return []*domain.Task{}, nil
}

func (f *fakeTaskStore) WithTx(*sql.Tx) store.TaskStore { return f }

// fakeDocumentStore implements store.DocumentStore with overridable
// functions.
type fakeDocumentStore struct {
	CreateFn  func(ctx context.Context, doc *domain.Document) error
	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Document, error)

	mu      sync.Mutex
	created []*domain.Document
}

func (f *fakeDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	f.mu.Lock()
	f.created = append(f.created, doc)
	f.mu.Unlock()
	if f.CreateFn != nil {
		return f.CreateFn(ctx, doc)
	}
	return nil
}

func (f *fakeDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	if f.GetByIDFn != nil {
		return f.GetByIDFn(ctx, id)
	}
	return nil, store.ErrDocumentNotFound
}

func (f *fakeDocumentStore) WithTx(*sql.Tx) store.DocumentStore { return f }

// fakeValidator approves or rejects tool parameters wholesale.
type fakeValidator struct {
	err error
}

func (f *fakeValidator) ValidateParams(tools.Tool, json.RawMessage) error {
	return f.err
}

// recordingEmitter captures emitted events and can fail on demand.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) emitted() []*events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*events.Event{}, e.events...)
}

// recordingBlobWriter captures stored objects and can fail on demand.
type recordingBlobWriter struct {
	mu     sync.Mutex
	stored map[string][]byte
	types  map[string]string
	err    error
}

func newRecordingBlobWriter() *recordingBlobWriter {
	return &recordingBlobWriter{
		stored: make(map[string][]byte),
		types:  make(map[string]string),
	}
}

func (b *recordingBlobWriter) StoreBytes(_ context.Context, storageKey string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.stored[storageKey] = data
	b.types[storageKey] = contentType
	return nil
}
