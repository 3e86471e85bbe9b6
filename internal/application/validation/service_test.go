package validation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ifcvalidation/bff/internal/domain/identity"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/ifcvalidation/bff/internal/domain/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================================================
// Mocks
// ============================================================================

// MockRequestRepository is a mock implementation of ValidationRequestRepository
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) FindByIDForUser(ctx context.Context, userID, id int64) (*validation.ValidationRequest, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*validation.ValidationRequest), args.Error(1)
}

func (m *MockRequestRepository) ListForUser(ctx context.Context, userID int64, offset, limit int) ([]*validation.ValidationRequest, error) {
	args := m.Called(ctx, userID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*validation.ValidationRequest), args.Error(1)
}

func (m *MockRequestRepository) CountForUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRequestRepository) Create(ctx context.Context, req *validation.ValidationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRequestRepository) Update(ctx context.Context, req *validation.ValidationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRequestRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRequestRepository) FindByID(ctx context.Context, id int64) (*validation.ValidationRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*validation.ValidationRequest), args.Error(1)
}

var _ validation.ValidationRequestRepository = (*MockRequestRepository)(nil)

// MockModelRepository is a mock implementation of ModelRepository
type MockModelRepository struct {
	mock.Mock
}

func (m *MockModelRepository) UpdateStatus(ctx context.Context, model *validation.Model) error {
	args := m.Called(ctx, model)
	return args.Error(0)
}

// MockTaskRepository is a mock implementation of ValidationTaskRepository
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) FindLatestByType(ctx context.Context, requestID int64, taskType validation.TaskType) (*validation.ValidationTask, error) {
	args := m.Called(ctx, requestID, taskType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*validation.ValidationTask), args.Error(1)
}

// MockOutcomeRepository is a mock implementation of ValidationOutcomeRepository
type MockOutcomeRepository struct {
	mock.Mock
}

func (m *MockOutcomeRepository) ListByTask(ctx context.Context, taskID int64) ([]*validation.ValidationOutcome, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*validation.ValidationOutcome), args.Error(1)
}

// MockFileStorage is a mock implementation of FileStorage
type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Save(ctx context.Context, fileName string, content io.Reader) (string, int64, error) {
	args := m.Called(ctx, fileName, content)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockFileStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockFileStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockFileStorage) LocalPath(ctx context.Context, key string) (string, func(), error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Get(1).(func()), args.Error(2)
}

// MockEnqueuer is a mock implementation of ValidationEnqueuer
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueValidation(ctx context.Context, requestID int64, fileName string) error {
	args := m.Called(ctx, requestID, fileName)
	return args.Error(0)
}

// fakeTxScope runs the function against the mocks and reports whether the
// transaction committed
type fakeTxScope struct {
	requests  *MockRequestRepository
	models    *MockModelRepository
	committed int
	rolled    int
}

func (f *fakeTxScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	if err := fn(f); err != nil {
		f.rolled++
		return err
	}
	f.committed++
	return nil
}

func (f *fakeTxScope) RequestRepo() validation.ValidationRequestRepository { return f.requests }
func (f *fakeTxScope) ModelRepo() validation.ModelRepository { return f.models }

type countingRecorder struct {
	uploads  int
	enqueued int
	failed   int
}

func (r *countingRecorder) RecordUpload(context.Context, int64) { r.uploads++ }
func (r *countingRecorder) RecordEnqueue(_ context.Context, err error) {
	if err != nil {
		r.failed++
		return
	}
	r.enqueued++
}

// ============================================================================
// Fixture
// ============================================================================

type serviceFixture struct {
	requests *MockRequestRepository
	models   *MockModelRepository
	tasks    *MockTaskRepository
	outcomes *MockOutcomeRepository
	storage  *MockFileStorage
	enqueuer *MockEnqueuer
	tx       *fakeTxScope
	recorder *countingRecorder
	service  *Service
}

func newServiceFixture(opts ...ServiceOption) *serviceFixture {
	f := &serviceFixture{
		requests: new(MockRequestRepository),
		models:   new(MockModelRepository),
		tasks:    new(MockTaskRepository),
		outcomes: new(MockOutcomeRepository),
		storage:  new(MockFileStorage),
		enqueuer: new(MockEnqueuer),
		recorder: &countingRecorder{},
	}
	f.tx = &fakeTxScope{requests: f.requests, models: f.models}
	opts = append([]ServiceOption{WithActivityRecorder(f.recorder)}, opts...)
	f.service = NewService(f.requests, f.tasks, f.outcomes, f.tx, f.storage, f.enqueuer, zap.NewNop(), opts...)
	return f
}

func activeUser() *identity.User {
	u := &identity.User{Username: "jane@example.org", Email: "jane@example.org", FirstName: "Jane", LastName: "Doe", IsActive: true}
	u.ID = 7
	return u
}

func newRequest(id int64, name string) *validation.ValidationRequest {
	r := &validation.ValidationRequest{
		FileName:  name,
		File:      "files/" + name,
		Size:      2048,
		Status:    validation.RequestStatusPending,
		CreatedBy: 7,
	}
	r.ID = id
	r.CreatedAt = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return r
}

func statusPtr(s validation.ModelStatus) *validation.ModelStatus { return &s }
func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }

func uploadOf(name, content string) UploadFile {
	return UploadFile{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

// ============================================================================
// Me
// ============================================================================

func TestService_Me(t *testing.T) {
	f := newServiceFixture()

	t.Run("active user", func(t *testing.T) {
		view, err := f.service.Me(activeUser())
		require.NoError(t, err)

		b, err := json.Marshal(view)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"user_data": {
				"sub": "jane@example.org",
				"email": "jane@example.org",
				"family_name": "Doe",
				"given_name": "Jane",
				"name": "Jane Doe",
				"is_active": true
			},
			"sandbox_info": {"pr_title": null, "commit_id": null},
			"redirect": null
		}`, string(b))
	})

	t.Run("inactive user is sent to the waiting zone", func(t *testing.T) {
		u := activeUser()
		u.IsActive = false
		u.LastName = ""

		view, err := f.service.Me(u)
		require.NoError(t, err)
		require.NotNil(t, view.Redirect)
		assert.Equal(t, "/waiting_zone", *view.Redirect)
		assert.Equal(t, "Jane", view.UserData.Name)
	})

	t.Run("no user", func(t *testing.T) {
		_, err := f.service.Me(nil)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}

// ============================================================================
// ListPaginated
// ============================================================================

func TestService_ListPaginated(t *testing.T) {
	ctx := context.Background()

	t.Run("projects requests", func(t *testing.T) {
		f := newServiceFixture()
		pending := newRequest(1, "a.ifc")

		failed := newRequest(2, "b.ifc")
		failed.Status = validation.RequestStatusFailed
		failed.Progress = 30
		updated := time.Date(2024, 5, 2, 10, 11, 12, 0, time.UTC)
		failed.UpdatedAt = &updated
		failed.Model = &validation.Model{
			ProducedBy:              &validation.AuthoringTool{Name: "Revit"},
			NumberOfElements:        int64Ptr(12),
			StatusSchema:            statusPtr(validation.ModelStatusInvalid),
			StatusIndustryPractices: statusPtr(validation.ModelStatusWarning),
		}

		f.requests.On("ListForUser", ctx, int64(7), 0, 10).Return([]*validation.ValidationRequest{pending, failed}, nil)
		f.requests.On("CountForUser", ctx, int64(7)).Return(int64(12), nil)

		page, err := f.service.ListPaginated(ctx, activeUser(), 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(12), page.Count)
		require.Len(t, page.Models, 2)

		first := page.Models[0]
		assert.Equal(t, int64(1), first.Code)
		assert.Equal(t, "PENDING", first.Status)
		assert.Equal(t, "2024-05-01 08:00:00", first.Date)
		assert.Nil(t, first.AuthoringApplication)
		assert.Nil(t, first.NumberOfElements)
		assert.Equal(t, "p", first.StatusSyntax)

		second := page.Models[1]
		assert.Equal(t, validation.FailedProgress, second.Progress)
		assert.Equal(t, "2024-05-02 10:11:12", second.Date)
		assert.Equal(t, "Revit", *second.AuthoringApplication)
		assert.Equal(t, int64(12), *second.NumberOfElements)
		assert.Equal(t, "i", second.StatusSchema)
		assert.Equal(t, "w", second.StatusInd)
		assert.Equal(t, "p", second.StatusPrereq)

		b, err := json.Marshal(page)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"status_ind":"w"`)
		assert.Contains(t, string(b), `"count":12`)
		f.requests.AssertExpectations(t)
	})

	t.Run("empty window still counts", func(t *testing.T) {
		f := newServiceFixture()
		f.requests.On("CountForUser", ctx, int64(7)).Return(int64(3), nil)

		page, err := f.service.ListPaginated(ctx, activeUser(), 5, 2)
		require.NoError(t, err)
		assert.Empty(t, page.Models)
		assert.NotNil(t, page.Models)
		assert.Equal(t, int64(3), page.Count)
		f.requests.AssertNotCalled(t, "ListForUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("negative bounds", func(t *testing.T) {
		f := newServiceFixture()
		_, err := f.service.ListPaginated(ctx, activeUser(), -1, 10)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

// ============================================================================
// Download
// ============================================================================

func TestService_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("returns content", func(t *testing.T) {
		f := newServiceFixture()
		req := newRequest(3, "house.ifc")
		body := io.NopCloser(strings.NewReader("ISO-10303-21;"))
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(3)).Return(req, nil)
		f.storage.On("Open", ctx, "files/house.ifc").Return(body, nil)

		dl, err := f.service.Download(ctx, activeUser(), 3)
		require.NoError(t, err)
		assert.Equal(t, "house.ifc", dl.FileName)
		assert.Equal(t, int64(2048), dl.Size)
		b, _ := io.ReadAll(dl.Content)
		assert.Equal(t, "ISO-10303-21;", string(b))
	})

	t.Run("someone else's request", func(t *testing.T) {
		f := newServiceFixture()
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(4)).Return(nil, shared.ErrNotFound)

		_, err := f.service.Download(ctx, activeUser(), 4)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		f.storage.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	})

	t.Run("missing stored file", func(t *testing.T) {
		f := newServiceFixture()
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(3)).Return(newRequest(3, "house.ifc"), nil)
		f.storage.On("Open", ctx, "files/house.ifc").Return(nil, shared.ErrNotFound)

		_, err := f.service.Download(ctx, activeUser(), 3)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

// ============================================================================
// Upload
// ============================================================================

func TestService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores, creates and enqueues each file", func(t *testing.T) {
		f := newServiceFixture()
		nextID := int64(100)
		f.storage.On("Save", ctx, "a.ifc", mock.Anything).Return("k/a.ifc", int64(5), nil)
		f.storage.On("Save", ctx, "b.ifc", mock.Anything).Return("k/b.ifc", int64(6), nil)
		f.requests.On("Create", ctx, mock.AnythingOfType("*validation.ValidationRequest")).
			Run(func(args mock.Arguments) {
				req := args.Get(1).(*validation.ValidationRequest)
				assert.Equal(t, int64(7), req.CreatedBy)
				assert.Equal(t, validation.RequestStatusPending, req.Status)
				nextID++
				req.ID = nextID
			}).Return(nil)
		f.enqueuer.On("EnqueueValidation", ctx, int64(101), "a.ifc").Return(nil)
		f.enqueuer.On("EnqueueValidation", ctx, int64(102), "b.ifc").Return(nil)

		result, err := f.service.Upload(ctx, activeUser(), []UploadFile{uploadOf("a.ifc", "aaaaa"), uploadOf("b.ifc", "bbbbbb")})

		require.NoError(t, err)
		assert.Equal(t, []int64{101, 102}, result.RequestIDs)
		assert.Equal(t, 2, f.tx.committed)
		assert.Equal(t, 2, f.recorder.uploads)
		assert.Equal(t, 2, f.recorder.enqueued)
		f.enqueuer.AssertExpectations(t)
	})

	t.Run("inactive user", func(t *testing.T) {
		f := newServiceFixture()
		u := activeUser()
		u.IsActive = false

		_, err := f.service.Upload(ctx, u, []UploadFile{uploadOf("a.ifc", "x")})
		assert.ErrorIs(t, err, ErrWaitingZone)
		f.storage.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no files", func(t *testing.T) {
		f := newServiceFixture()
		_, err := f.service.Upload(ctx, activeUser(), nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("too many files", func(t *testing.T) {
		f := newServiceFixture(WithServiceConfig(ServiceConfig{MaxFilesPerUpload: 2}))
		files := []UploadFile{uploadOf("a.ifc", "x"), uploadOf("b.ifc", "x"), uploadOf("c.ifc", "x")}

		_, err := f.service.Upload(ctx, activeUser(), files)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("file over the size limit", func(t *testing.T) {
		f := newServiceFixture(WithServiceConfig(ServiceConfig{MaxFilesPerUpload: 5, MaxFileSize: 4}))
		small := uploadOf("a.ifc", "abc")
		small.Size = 3
		big := uploadOf("b.ifc", "abcdef")
		big.Size = 6

		_, err := f.service.Upload(ctx, activeUser(), []UploadFile{small, big})

		assert.ErrorIs(t, err, ErrFileTooLarge)
		assert.Contains(t, err.Error(), "b.ifc")
		f.storage.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stored size over the limit is rolled back", func(t *testing.T) {
		f := newServiceFixture(WithServiceConfig(ServiceConfig{MaxFilesPerUpload: 5, MaxFileSize: 4}))
		f.storage.On("Save", ctx, "a.ifc", mock.Anything).Return("k/a.ifc", int64(9), nil)
		f.storage.On("Delete", ctx, "k/a.ifc").Return(nil)

		result, err := f.service.Upload(ctx, activeUser(), []UploadFile{uploadOf("a.ifc", "abcdefghi")})

		assert.ErrorIs(t, err, ErrFileTooLarge)
		assert.Empty(t, result.RequestIDs)
		f.storage.AssertCalled(t, "Delete", ctx, "k/a.ifc")
		f.requests.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("zero size limit accepts any file", func(t *testing.T) {
		f := newServiceFixture(WithServiceConfig(ServiceConfig{MaxFilesPerUpload: 5}))
		f.storage.On("Save", ctx, "a.ifc", mock.Anything).Return("k/a.ifc", int64(1<<30), nil)
		f.requests.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*validation.ValidationRequest).ID = 11
		}).Return(nil)
		f.enqueuer.On("EnqueueValidation", ctx, int64(11), "a.ifc").Return(nil)

		big := uploadOf("a.ifc", "x")
		big.Size = 1 << 30
		result, err := f.service.Upload(ctx, activeUser(), []UploadFile{big})

		require.NoError(t, err)
		assert.Equal(t, []int64{11}, result.RequestIDs)
	})

	t.Run("failed insert removes the stored file", func(t *testing.T) {
		f := newServiceFixture()
		f.storage.On("Save", ctx, "a.ifc", mock.Anything).Return("k/a.ifc", int64(1), nil)
		f.requests.On("Create", ctx, mock.Anything).Return(errors.New("db down"))
		f.storage.On("Delete", ctx, "k/a.ifc").Return(nil)

		result, err := f.service.Upload(ctx, activeUser(), []UploadFile{uploadOf("a.ifc", "x")})

		assert.EqualError(t, err, "db down")
		assert.Empty(t, result.RequestIDs)
		assert.Equal(t, 1, f.tx.rolled)
		f.storage.AssertCalled(t, "Delete", ctx, "k/a.ifc")
		f.enqueuer.AssertNotCalled(t, "EnqueueValidation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("enqueue failure keeps the committed request", func(t *testing.T) {
		f := newServiceFixture()
		f.storage.On("Save", ctx, "a.ifc", mock.Anything).Return("k/a.ifc", int64(1), nil)
		f.requests.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*validation.ValidationRequest).ID = 9
		}).Return(nil)
		f.enqueuer.On("EnqueueValidation", ctx, int64(9), "a.ifc").Return(errors.New("broker down"))

		result, err := f.service.Upload(ctx, activeUser(), []UploadFile{uploadOf("a.ifc", "x")})

		assert.EqualError(t, err, "broker down")
		assert.Equal(t, []int64{9}, result.RequestIDs)
		assert.Equal(t, 1, f.recorder.failed)
		f.storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

// ============================================================================
// Delete
// ============================================================================

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes rows then files", func(t *testing.T) {
		f := newServiceFixture()
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(1)).Return(newRequest(1, "a.ifc"), nil)
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(2)).Return(newRequest(2, "b.ifc"), nil)
		f.requests.On("Delete", ctx, int64(1)).Return(nil)
		f.requests.On("Delete", ctx, int64(2)).Return(nil)
		f.storage.On("Delete", ctx, "files/a.ifc").Return(nil)
		f.storage.On("Delete", ctx, "files/b.ifc").Return(errors.New("disk error"))

		err := f.service.Delete(ctx, activeUser(), "1,2,1")

		require.NoError(t, err)
		assert.Equal(t, 1, f.tx.committed)
		f.requests.AssertNumberOfCalls(t, "Delete", 2)
		f.storage.AssertNumberOfCalls(t, "Delete", 2)
	})

	t.Run("unknown id rolls back the batch", func(t *testing.T) {
		f := newServiceFixture()
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(1)).Return(newRequest(1, "a.ifc"), nil)
		f.requests.On("Delete", ctx, int64(1)).Return(nil)
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(99)).Return(nil, shared.ErrNotFound)

		err := f.service.Delete(ctx, activeUser(), "1,99")

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, 1, f.tx.rolled)
		f.storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("malformed ids", func(t *testing.T) {
		f := newServiceFixture()
		err := f.service.Delete(ctx, activeUser(), "1,abc")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Equal(t, 0, f.tx.committed+f.tx.rolled)
	})
}

// ============================================================================
// Revalidate
// ============================================================================

func TestService_Revalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("resets and re-enqueues after commit", func(t *testing.T) {
		f := newServiceFixture()
		withModel := newRequest(1, "a.ifc")
		withModel.Status = validation.RequestStatusCompleted
		withModel.Progress = 100
		withModel.Model = &validation.Model{StatusSchema: statusPtr(validation.ModelStatusValid)}
		withoutModel := newRequest(2, "b.ifc")
		withoutModel.Status = validation.RequestStatusFailed

		f.requests.On("FindByIDForUser", ctx, int64(7), int64(1)).Return(withModel, nil)
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(2)).Return(withoutModel, nil)
		f.requests.On("Update", ctx, mock.Anything).Return(nil)
		f.models.On("UpdateStatus", ctx, withModel.Model).Return(nil)
		f.enqueuer.On("EnqueueValidation", ctx, int64(1), "a.ifc").Return(nil)
		f.enqueuer.On("EnqueueValidation", ctx, int64(2), "b.ifc").Return(nil)

		err := f.service.Revalidate(ctx, activeUser(), "1,2")

		require.NoError(t, err)
		assert.Equal(t, validation.RequestStatusPending, withModel.Status)
		assert.Equal(t, validation.ResubmittedReason, withModel.StatusReason)
		assert.Equal(t, 0, withModel.Progress)
		assert.Equal(t, validation.ModelStatusNotValidated, *withModel.Model.StatusSchema)
		assert.Equal(t, validation.RequestStatusPending, withoutModel.Status)
		f.models.AssertNumberOfCalls(t, "UpdateStatus", 1)
		f.enqueuer.AssertExpectations(t)
	})

	t.Run("unknown id enqueues nothing", func(t *testing.T) {
		f := newServiceFixture()
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(5)).Return(nil, shared.ErrNotFound)

		err := f.service.Revalidate(ctx, activeUser(), "5")

		assert.ErrorIs(t, err, shared.ErrNotFound)
		f.enqueuer.AssertNotCalled(t, "EnqueueValidation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("enqueue errors are combined", func(t *testing.T) {
		f := newServiceFixture()
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(1)).Return(newRequest(1, "a.ifc"), nil)
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(2)).Return(newRequest(2, "b.ifc"), nil)
		f.requests.On("Update", ctx, mock.Anything).Return(nil)
		f.enqueuer.On("EnqueueValidation", ctx, int64(1), "a.ifc").Return(errors.New("broker down"))
		f.enqueuer.On("EnqueueValidation", ctx, int64(2), "b.ifc").Return(nil)

		err := f.service.Revalidate(ctx, activeUser(), "1,2")

		assert.EqualError(t, err, "broker down")
		f.enqueuer.AssertNumberOfCalls(t, "EnqueueValidation", 2)
	})
}

// ============================================================================
// Report
// ============================================================================

func TestService_Report(t *testing.T) {
	ctx := context.Background()

	t.Run("request without model", func(t *testing.T) {
		f := newServiceFixture()
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(1)).Return(newRequest(1, "a.ifc"), nil)

		report, err := f.service.Report(ctx, activeUser(), 1)
		require.NoError(t, err)

		b, err := json.Marshal(report)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"instances": {},
			"model": {
				"id": 1, "code": 1, "filename": "a.ifc", "user_id": 7, "progress": 0,
				"date": "2024-05-01 08:00:00", "license": "-",
				"number_of_elements": null, "number_of_geometries": null, "number_of_properties": null,
				"authoring_application": "-", "schema": "-", "size": 2048, "mvd": "-",
				"status_syntax": "p", "status_schema": "p", "status_bsdd": "p", "status_mvd": "p",
				"status_ids": "p", "status_ia": "p", "status_ip": "p", "status_ind": "p", "status_prereq": "p",
				"deleted": 0, "commit_id": null
			},
			"results": {"syntax_result": [], "schema_result": [], "bsdd_results": []},
			"tasks": {
				"syntax_validation_task": {},
				"schema_validation_task": {},
				"bsdd_validation_task": [],
				"gherkin_rules_validation_task": {"results": []},
				"industry_practices_validation_task": {"results": []}
			}
		}`, string(b))
		f.tasks.AssertNotCalled(t, "FindLatestByType", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("maps schema and rule outcomes", func(t *testing.T) {
		f := newServiceFixture()
		req := newRequest(1, "a.ifc")
		req.Model = &validation.Model{
			Schema:       strPtr("IFC4"),
			StatusSchema: statusPtr(validation.ModelStatusInvalid),
		}
		wall := &validation.ModelInstance{StepfileID: 42, IfcType: "IfcWall"}
		wall.ID = 5

		f.requests.On("FindByIDForUser", ctx, int64(7), int64(1)).Return(req, nil)

		schemaTask := &validation.ValidationTask{Type: validation.TaskTypeSchema}
		schemaTask.ID = 10
		f.tasks.On("FindLatestByType", ctx, int64(1), validation.TaskTypeSchema).Return(schemaTask, nil)
		schemaOutcome := &validation.ValidationOutcome{
			TaskID:     10,
			InstanceID: int64Ptr(5),
			Instance:   wall,
			Feature:    `{"attribute": "IfcWall.WR1", "type": "entity_rule"}`,
			Severity:   validation.SeverityError,
			Observed:   strPtr("bad wall"),
		}
		schemaOutcome.ID = 100
		f.outcomes.On("ListByTask", ctx, int64(10)).Return([]*validation.ValidationOutcome{schemaOutcome}, nil)

		iaTask := &validation.ValidationTask{Type: validation.TaskTypeNormativeIA}
		iaTask.ID = 11
		f.tasks.On("FindLatestByType", ctx, int64(1), validation.TaskTypeNormativeIA).Return(iaTask, nil)
		version := 2
		ruleOutcome := &validation.ValidationOutcome{
			TaskID:         11,
			InstanceID:     int64Ptr(5),
			Instance:       wall,
			Feature:        "ALB001 - Alignment in spatial structure",
			FeatureVersion: &version,
			Severity:       validation.SeverityPassed,
		}
		ruleOutcome.ID = 200
		f.outcomes.On("ListByTask", ctx, int64(11)).Return([]*validation.ValidationOutcome{ruleOutcome}, nil)

		// remaining rule steps never ran
		f.tasks.On("FindLatestByType", ctx, int64(1), mock.Anything).Return(nil, shared.ErrNotFound)

		report, err := f.service.Report(ctx, activeUser(), 1)
		require.NoError(t, err)

		assert.Equal(t, map[int64]InstanceView{5: {GUID: "#42", Type: "IfcWall"}}, report.Instances)
		assert.Equal(t, "IFC4", report.Model.Schema)
		assert.Equal(t, "i", report.Model.StatusSchema)

		require.Len(t, report.Results.SchemaResult, 1)
		sr := report.Results.SchemaResult[0]
		assert.Equal(t, "IfcWall.WR1", sr.Attribute)
		assert.Equal(t, "entity_rule", sr.ConstraintType)
		assert.Equal(t, "bad wall", *sr.Msg)
		assert.Equal(t, int64(10), sr.TaskID)

		require.Len(t, report.Tasks.GherkinRulesValidationTask.Results, 1)
		gr := report.Tasks.GherkinRulesValidationTask.Results[0]
		assert.Equal(t, "Passed", gr.Step)
		assert.Equal(t, "Rule passed", gr.Message)
		assert.Equal(t, 2, *gr.FeatureURL)
		assert.Equal(t, report.Tasks.GherkinRulesValidationTask, report.Tasks.IndustryPracticesValidationTask)

		b, err := json.Marshal(report)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"instances":{"5":{"guid":"#42","type":"IfcWall"}}`)
	})

	t.Run("valid schema skips schema outcomes", func(t *testing.T) {
		f := newServiceFixture()
		req := newRequest(1, "a.ifc")
		req.Model = &validation.Model{StatusSchema: statusPtr(validation.ModelStatusValid)}
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(1)).Return(req, nil)
		f.tasks.On("FindLatestByType", ctx, int64(1), mock.Anything).Return(nil, shared.ErrNotFound)

		report, err := f.service.Report(ctx, activeUser(), 1)
		require.NoError(t, err)
		assert.Empty(t, report.Results.SchemaResult)
		f.tasks.AssertNotCalled(t, "FindLatestByType", ctx, int64(1), validation.TaskTypeSchema)
		f.tasks.AssertNumberOfCalls(t, "FindLatestByType", len(validation.GherkinTaskTypes))
	})

	t.Run("not found", func(t *testing.T) {
		f := newServiceFixture()
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(1)).Return(nil, shared.ErrNotFound)

		_, err := f.service.Report(ctx, activeUser(), 1)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("repository error", func(t *testing.T) {
		f := newServiceFixture()
		req := newRequest(1, "a.ifc")
		req.Model = &validation.Model{}
		f.requests.On("FindByIDForUser", ctx, int64(7), int64(1)).Return(req, nil)
		f.tasks.On("FindLatestByType", ctx, int64(1), validation.TaskTypeSchema).Return(nil, errors.New("db down"))

		_, err := f.service.Report(ctx, activeUser(), 1)
		assert.EqualError(t, err, "db down")
	})
}

func TestParseIDList(t *testing.T) {
	ids, err := ParseIDList("3, 1,3,2")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids)

	for _, bad := range []string{"", "1,", "a", "0", "-4"} {
		_, err := ParseIDList(bad)
		assert.ErrorIs(t, err, shared.ErrInvalidInput, bad)
	}
}
