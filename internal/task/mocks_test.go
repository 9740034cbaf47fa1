package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/store"
	"github.com/quilldocs/quill-api/internal/tools"
)

// memoryTaskStore implements store.TaskStore on a map with the same
// transition guards as the real store. Individual methods can be
// overridden through the Fn fields.
type memoryTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	ClaimFn         func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	MarkCompletedFn func(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	MarkFailedFn    func(ctx context.Context, id uuid.UUID, message string) error
	ListPendingFn   func(ctx context.Context, limit int) ([]*domain.Task, error)
	ResetStuckFn    func(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)
}

func newMemoryTaskStore(tasks ...*domain.Task) *memoryTaskStore {
	s := &memoryTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
	for _, t := range tasks {
		s.put(t)
	}
	return s
}

// put stores a copy so later mutations by the caller cannot leak in.
func (s *memoryTaskStore) put(t *domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *t
	s.tasks[t.ID] = &clone
}

// snapshot returns a copy of the stored row, or nil when absent.
func (s *memoryTaskStore) snapshot(id uuid.UUID) *domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	clone := *t
	return &clone
}

func (s *memoryTaskStore) Create(_ context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	s.put(task)
	return nil
}

func (s *memoryTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	t := s.snapshot(id)
	if t == nil {
		return nil, store.ErrTaskNotFound
	}
	return t, nil
}

func (s *memoryTaskStore) ListByUser(_ context.Context, userID uuid.UUID, status domain.TaskStatus, limit, offset int) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []*domain.Task{}
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		clone := *t
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	if offset >= len(matched) {
		return []*domain.Task{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *memoryTaskStore) Claim(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if s.ClaimFn != nil {
		return s.ClaimFn(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Status != domain.TaskStatusPending {
		return nil, store.ErrTaskNotClaimable
	}
	now := time.Now().UTC()
	t.Status = domain.TaskStatusProcessing
	t.StartedAt = &now

	clone := *t
	return &clone, nil
}

func (s *memoryTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	if s.MarkCompletedFn != nil {
		return s.MarkCompletedFn(ctx, id, result)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Status != domain.TaskStatusProcessing {
		return store.ErrTaskNotProcessing
	}
	now := time.Now().UTC()
	t.Status = domain.TaskStatusCompleted
	t.Result = result
	t.ErrorMessage = ""
	t.CompletedAt = &now
	return nil
}

func (s *memoryTaskStore) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	if s.MarkFailedFn != nil {
		return s.MarkFailedFn(ctx, id, message)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Status != domain.TaskStatusProcessing {
		return store.ErrTaskNotProcessing
	}
	now := time.Now().UTC()
	t.Status = domain.TaskStatusFailed
	t.Result = nil
	t.ErrorMessage = message
	t.CompletedAt = &now
	return nil
}

func (s *memoryTaskStore) ListPending(ctx context.Context, limit int) ([]*domain.Task, error) {
	if s.ListPendingFn != nil {
		return s.ListPendingFn(ctx, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending := []*domain.Task{}
	for _, t := range s.tasks {
		if t.Status != domain.TaskStatusPending {
			continue
		}
		clone := *t
		pending = append(pending, &clone)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })

	if limit > 0 && limit < len(pending) {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *memoryTaskStore) ResetStuck(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	if s.ResetStuckFn != nil {
		return s.ResetStuckFn(ctx, cutoff)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reset := []*domain.Task{}
	for _, t := range s.tasks {
		if t.Status != domain.TaskStatusProcessing || t.StartedAt == nil || !t.StartedAt.Before(cutoff) {
			continue
		}
		t.Status = domain.TaskStatusPending
		t.StartedAt = nil

		clone := *t
		reset = append(reset, &clone)
	}
	return reset, nil
}

func (s *memoryTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return s }

// memoryDocumentStore implements store.DocumentStore on a map.
type memoryDocumentStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*domain.Document

	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Document, error)
}

func newMemoryDocumentStore(docs ...*domain.Document) *memoryDocumentStore {
	s := &memoryDocumentStore{docs: make(map[uuid.UUID]*domain.Document)}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *memoryDocumentStore) Create(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *memoryDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *memoryDocumentStore) WithTx(_ *sql.Tx) store.DocumentStore { return s }

// memoryUserStore implements store.UserStore on a map.
type memoryUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User

	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

func newMemoryUserStore(users ...*domain.User) *memoryUserStore {
	s := &memoryUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memoryUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *memoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (s *memoryUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memoryUserStore) WithTx(_ *sql.Tx) store.UserStore { return s }

// stubBlobStore serves canned document bytes.
type stubBlobStore struct {
	data    []byte
	FetchFn func(ctx context.Context, storageKey string) ([]byte, error)
}

func (s *stubBlobStore) FetchBytes(ctx context.Context, storageKey string) ([]byte, error) {
	if s.FetchFn != nil {
		return s.FetchFn(ctx, storageKey)
	}
	return s.data, nil
}

func (s *stubBlobStore) StoreBytes(context.Context, string, []byte, string) error {
	return nil
}

// stubExtractor turns bytes into text verbatim unless overridden.
type stubExtractor struct {
	ExtractFn func(ctx context.Context, data []byte, mimeType string) (string, error)
}

func (s *stubExtractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if s.ExtractFn != nil {
		return s.ExtractFn(ctx, data, mimeType)
	}
	return string(data), nil
}

// stubToolRunner returns a canned result unless overridden.
type stubToolRunner struct {
	result json.RawMessage
	RunFn  func(ctx context.Context, tool tools.Tool, docText string, params json.RawMessage) (json.RawMessage, error)
}

func (s *stubToolRunner) Run(ctx context.Context, tool tools.Tool, docText string, params json.RawMessage) (json.RawMessage, error) {
	if s.RunFn != nil {
		return s.RunFn(ctx, tool, docText, params)
	}
	return s.result, nil
}

// notification records a single delivery attempt.
type notification struct {
	recipient string
	status    domain.TaskStatus
}

// recordingNotifier captures deliveries and can fail them on demand.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (n *recordingNotifier) TaskCompleted(_ context.Context, recipient string, task *domain.Task) error {
	n.record(recipient, task.Status)
	return n.err
}

func (n *recordingNotifier) TaskFailed(_ context.Context, recipient string, task *domain.Task) error {
	n.record(recipient, task.Status)
	return n.err
}

func (n *recordingNotifier) record(recipient string, status domain.TaskStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{recipient: recipient, status: status})
}

func (n *recordingNotifier) notifications() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification{}, n.sent...)
}

// stubProcessor lets runner tests control task execution directly.
type stubProcessor struct {
	ProcessFn func(ctx context.Context, task *domain.Task) error
}

func (p *stubProcessor) Process(ctx context.Context, task *domain.Task) error {
	if p.ProcessFn != nil {
		return p.ProcessFn(ctx, task)
	}
	return nil
}
