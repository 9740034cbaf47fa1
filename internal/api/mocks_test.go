package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quilldocs/quill-api/internal/api/shared"
	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/generation"
	"github.com/quilldocs/quill-api/internal/model"
	"github.com/quilldocs/quill-api/internal/service/auth"
	"github.com/quilldocs/quill-api/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// withUser attaches the authenticated user ID to the request context the
// way the auth middleware does.
func withUser(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
	return r.WithContext(ctx)
}

// newTestExecutor builds a generation executor over the given backend
// with a small call pool that is torn down with the test.
func newTestExecutor(t *testing.T, backend generation.Backend) *generation.Executor {
	t.Helper()

	router, err := model.NewRouter(model.DefaultRegistry())
	require.NoError(t, err)

	pool := generation.NewCallPool(2)
	t.Cleanup(pool.Close)

	executor, err := generation.NewExecutor(generation.ExecutorConfig{
		Router:  router,
		Backend: backend,
		Pool:    pool,
		Logger:  discardLogger(),
	})
	require.NoError(t, err)
	return executor
}

// fakeUserStore implements store.UserStore backed by an in-memory map.
// Create mimics the real store: it persists a hash and drops the
// plaintext. Overridable functions take precedence when set.
type fakeUserStore struct {
	CreateFn     func(ctx context.Context, user *domain.User) error
	GetByEmailFn func(ctx context.Context, email string) (*domain.User, error)

	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*domain.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, user)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[user.Email]; exists {
		return store.ErrEmailExists
	}
	stored := *user
	stored.HashedPassword = "hashed:" + user.Password
	stored.Password = ""
	f.users[user.Email] = &stored
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.GetByEmailFn != nil {
		return f.GetByEmailFn(ctx, email)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) WithTx(*sql.Tx) store.UserStore { return f }

// seed inserts a stored user directly, bypassing Create.
func (f *fakeUserStore) seed(user *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.Email] = user
}

// fakeJWTService returns canned tokens and claims.
type fakeJWTService struct {
	Token       string
	GenerateErr error
	Claims      *auth.Claims
	ValidateErr error
}

func (f *fakeJWTService) GenerateToken(context.Context, uuid.UUID) (string, error) {
	if f.GenerateErr != nil {
		return "", f.GenerateErr
	}
	return f.Token, nil
}

func (f *fakeJWTService) ValidateToken(context.Context, string) (*auth.Claims, error) {
	if f.ValidateErr != nil {
		return nil, f.ValidateErr
	}
	return f.Claims, nil
}

// fakePasswordVerifier approves or rejects every comparison.
type fakePasswordVerifier struct {
	Err error
}

func (f *fakePasswordVerifier) Compare(_, _ string) error {
	return f.Err
}

// fakeTaskService implements service.TaskService with overridable
// functions.
type fakeTaskService struct {
	SubmitFn    func(ctx context.Context, ownerID, documentID uuid.UUID, tool string, params json.RawMessage) (*domain.Task, error)
	GetTaskFn   func(ctx context.Context, taskID, callerID uuid.UUID) (*domain.Task, error)
	ListTasksFn func(ctx context.Context, ownerID uuid.UUID, status domain.TaskStatus, limit, offset int) ([]*domain.Task, error)
}

func (f *fakeTaskService) Submit(ctx context.Context, ownerID, documentID uuid.UUID, tool string, params json.RawMessage) (*domain.Task, error) {
	if f.SubmitFn != nil {
		return f.SubmitFn(ctx, ownerID, documentID, tool, params)
	}
	return nil, errors.New("submit not configured")
}

func (f *fakeTaskService) GetTask(ctx context.Context, taskID, callerID uuid.UUID) (*domain.Task, error) {
	if f.GetTaskFn != nil {
		return f.GetTaskFn(ctx, taskID, callerID)
	}
	return nil, store.ErrTaskNotFound
}

func (f *fakeTaskService) ListTasks(ctx context.Context, ownerID uuid.UUID, status domain.TaskStatus, limit, offset int) ([]*domain.Task, error) {
	if f.ListTasksFn != nil {
		return f.ListTasksFn(ctx, ownerID, status, limit, offset)
	}
	return []*domain.Task{}, nil
}

// fakeDocumentService implements service.DocumentService with
// overridable functions.
type fakeDocumentService struct {
	UploadFn      func(ctx context.Context, ownerID uuid.UUID, filename, mimeType string, data []byte) (*domain.Document, error)
	GetDocumentFn func(ctx context.Context, documentID, callerID uuid.UUID) (*domain.Document, error)
}

func (f *fakeDocumentService) Upload(ctx context.Context, ownerID uuid.UUID, filename, mimeType string, data []byte) (*domain.Document, error) {
	if f.UploadFn != nil {
		return f.UploadFn(ctx, ownerID, filename, mimeType, data)
	}
	return nil, errors.New("upload not configured")
}

func (f *fakeDocumentService) GetDocument(ctx context.Context, documentID, callerID uuid.UUID) (*domain.Document, error) {
	if f.GetDocumentFn != nil {
		return f.GetDocumentFn(ctx, documentID, callerID)
	}
	return nil, store.ErrDocumentNotFound
}
