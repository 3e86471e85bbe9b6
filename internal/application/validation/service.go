package validation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ifcvalidation/bff/internal/domain/identity"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/ifcvalidation/bff/internal/domain/validation"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultMaxFilesPerUpload caps the number of files accepted in one upload
const DefaultMaxFilesPerUpload = 100

// ErrWaitingZone is returned when an inactive account tries to upload
var ErrWaitingZone = shared.NewDomainError("WAITING_ZONE", "Account is waiting for activation")

// ErrFileTooLarge is returned when an uploaded file exceeds MaxFileSize
var ErrFileTooLarge = shared.NewDomainError("FILE_TOO_LARGE", "Uploaded file exceeds the size limit")

// ServiceConfig holds service limits
type ServiceConfig struct {
	MaxFilesPerUpload int
	MaxFileSize       int64 // bytes per file, 0 means unlimited
}

// DefaultServiceConfig returns the default service limits
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{MaxFilesPerUpload: DefaultMaxFilesPerUpload}
}

// Service implements the dashboard operations on validation requests
type Service struct {
	requestRepo validation.ValidationRequestRepository
	taskRepo    validation.ValidationTaskRepository
	outcomeRepo validation.ValidationOutcomeRepository
	txScope     TransactionScope
	storage     FileStorage
	enqueuer    ValidationEnqueuer
	recorder    ActivityRecorder
	config      ServiceConfig
	logger      *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithActivityRecorder sets the metrics recorder
func WithActivityRecorder(recorder ActivityRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithServiceConfig overrides the default limits
func WithServiceConfig(config ServiceConfig) ServiceOption {
	return func(s *Service) {
		if config.MaxFilesPerUpload > 0 {
			s.config = config
		}
	}
}

// NewService creates a new Service
func NewService(
	requestRepo validation.ValidationRequestRepository,
	taskRepo validation.ValidationTaskRepository,
	outcomeRepo validation.ValidationOutcomeRepository,
	txScope TransactionScope,
	storage FileStorage,
	enqueuer ValidationEnqueuer,
	logger *zap.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		requestRepo: requestRepo,
		taskRepo:    taskRepo,
		outcomeRepo: outcomeRepo,
		txScope:     txScope,
		storage:     storage,
		enqueuer:    enqueuer,
		recorder:    noopRecorder{},
		config:      DefaultServiceConfig(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireUser(user *identity.User) error {
	if user == nil {
		return shared.ErrUnauthorized
	}
	return nil
}

// Me returns the profile payload of the signed-in user
func (s *Service) Me(user *identity.User) (MeView, error) {
	if err := requireUser(user); err != nil {
		return MeView{}, err
	}
	return ToMeView(user), nil
}

// ListPaginated returns requests start..end (exclusive) of the user's list
// together with the total number of requests
func (s *Service) ListPaginated(ctx context.Context, user *identity.User, start, end int) (*ModelPage, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if start < 0 || end < 0 {
		return nil, shared.ErrInvalidInput.Wrap(fmt.Errorf("page bounds must not be negative: %d..%d", start, end))
	}

	page := &ModelPage{Models: []ModelSummary{}}
	if end > start {
		requests, err := s.requestRepo.ListForUser(ctx, user.ID, start, end-start)
		if err != nil {
			return nil, err
		}
		for _, r := range requests {
			page.Models = append(page.Models, ToModelSummary(r))
		}
	}

	count, err := s.requestRepo.CountForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	page.Count = count
	return page, nil
}

// Download opens the stored file of one of the user's requests
func (s *Service) Download(ctx context.Context, user *identity.User, id int64) (*Download, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	s.logger.Debug("Locating file", zap.Int64("request_id", id))
	req, err := s.requestRepo.FindByIDForUser(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("Requested file does not exist",
				zap.Int64("request_id", id),
				zap.Int64("user_id", user.ID),
			)
		}
		return nil, err
	}

	content, err := s.storage.Open(ctx, req.File)
	if err != nil {
		return nil, err
	}
	return &Download{FileName: req.FileName, Size: req.Size, Content: content}, nil
}

// Upload stores each file, creates its validation request and submits it to
// the worker once the request is committed. Files stored before a failure
// stay committed.
func (s *Service) Upload(ctx context.Context, user *identity.User, files []UploadFile) (*UploadResult, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrWaitingZone
	}
	if len(files) == 0 {
		return nil, shared.ErrInvalidInput.Wrap(errors.New("no files uploaded"))
	}
	if len(files) > s.config.MaxFilesPerUpload {
		return nil, shared.ErrInvalidInput.Wrap(fmt.Errorf("at most %d files can be uploaded at once, got %d", s.config.MaxFilesPerUpload, len(files)))
	}
	if limit := s.config.MaxFileSize; limit > 0 {
		for _, f := range files {
			if f.Size > limit {
				return nil, ErrFileTooLarge.Wrap(fmt.Errorf("file %q has %d bytes, limit is %d", f.Name, f.Size, limit))
			}
		}
	}

	s.logger.Info("Received files", zap.Int("count", len(files)), zap.Int64("user_id", user.ID))

	result := &UploadResult{RequestIDs: make([]int64, 0, len(files))}
	for _, f := range files {
		req, err := s.storeAndCreate(ctx, user, f)
		if err != nil {
			return result, err
		}
		result.RequestIDs = append(result.RequestIDs, req.ID)

		if err := s.enqueue(ctx, req); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Service) storeAndCreate(ctx context.Context, user *identity.User, f UploadFile) (*validation.ValidationRequest, error) {
	if f.Open == nil {
		return nil, shared.ErrInvalidInput.Wrap(fmt.Errorf("file %q has no content", f.Name))
	}
	content, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file %q: %w", f.Name, err)
	}
	key, size, err := s.storage.Save(ctx, f.Name, content)
	_ = content.Close()
	if err != nil {
		return nil, err
	}
	if limit := s.config.MaxFileSize; limit > 0 && size > limit {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Failed to remove oversized upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, ErrFileTooLarge.Wrap(fmt.Errorf("file %q has %d bytes, limit is %d", f.Name, size, limit))
	}
	s.logger.Info("Stored uploaded file", zap.String("file_name", f.Name), zap.String("key", key), zap.Int64("size", size))

	req, err := validation.NewValidationRequest(user.ID, f.Name, key, size)
	if err == nil {
		req.SetUpdatedBy(user.ID)
		err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			return repos.RequestRepo().Create(ctx, req)
		})
	}
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	s.recorder.RecordUpload(ctx, size)
	return req, nil
}

// Delete removes the listed requests of the user together with their stored
// files. ids is a comma-separated list; if any id is unknown nothing is deleted.
func (s *Service) Delete(ctx context.Context, user *identity.User, ids string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	parsed, err := ParseIDList(ids)
	if err != nil {
		return err
	}

	var keys []string
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		keys = keys[:0]
		for _, id := range parsed {
			s.logger.Info("Locating file", zap.Int64("request_id", id), zap.Int64("user_id", user.ID))
			req, err := repos.RequestRepo().FindByIDForUser(ctx, user.ID, id)
			if err != nil {
				return err
			}
			if err := repos.RequestRepo().Delete(ctx, id); err != nil {
				return err
			}
			keys = append(keys, req.File)
			s.logger.Info("Validation request and related entities deleted", zap.Int64("request_id", id))
		}
		return nil
	})
	if err != nil {
		return err
	}

	var fileErr error
	for _, key := range keys {
		fileErr = multierr.Append(fileErr, s.storage.Delete(ctx, key))
	}
	if fileErr != nil {
		s.logger.Warn("Some stored files could not be removed", zap.Error(fileErr))
	}
	return nil
}

// Revalidate puts the listed requests back in the queue and resets their
// model statuses. Requests are submitted to the worker after the commit.
func (s *Service) Revalidate(ctx context.Context, user *identity.User, ids string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	parsed, err := ParseIDList(ids)
	if err != nil {
		return err
	}

	var pending []*validation.ValidationRequest
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		pending = pending[:0]
		for _, id := range parsed {
			req, err := repos.RequestRepo().FindByIDForUser(ctx, user.ID, id)
			if err != nil {
				return err
			}
			req.MarkAsPending(validation.ResubmittedReason)
			req.SetUpdatedBy(user.ID)
			if err := repos.RequestRepo().Update(ctx, req); err != nil {
				return err
			}
			if req.Model != nil {
				req.Model.ResetStatus()
				if err := repos.ModelRepo().UpdateStatus(ctx, req.Model); err != nil {
					return err
				}
			}
			pending = append(pending, req)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var enqueueErr error
	for _, req := range pending {
		enqueueErr = multierr.Append(enqueueErr, s.enqueue(ctx, req))
	}
	return enqueueErr
}

func (s *Service) enqueue(ctx context.Context, req *validation.ValidationRequest) error {
	err := s.enqueuer.EnqueueValidation(ctx, req.ID, req.FileName)
	s.recorder.RecordEnqueue(ctx, err)
	if err != nil {
		s.logger.Error("Failed to submit validation task",
			zap.Int64("request_id", req.ID),
			zap.String("file_name", req.FileName),
			zap.Error(err),
		)
		return err
	}
	s.logger.Info("Validation task submitted",
		zap.Int64("request_id", req.ID),
		zap.String("file_name", req.FileName),
	)
	return nil
}

// Report builds the detailed validation report of one of the user's requests
func (s *Service) Report(ctx context.Context, user *identity.User, id int64) (*Report, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	req, err := s.requestRepo.FindByIDForUser(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}

	b := &reportBuilder{instances: make(map[int64]InstanceView)}

	if req.Model != nil && !req.Model.IsSchemaValid() {
		outcomes, err := s.latestOutcomes(ctx, req.ID, validation.TaskTypeSchema)
		if err != nil {
			return nil, err
		}
		for _, o := range outcomes {
			feature, err := o.ParseSchemaFeature()
			if err != nil {
				s.logger.Warn("Schema outcome has an unreadable feature", zap.Int64("outcome_id", o.ID), zap.Error(err))
			}
			b.addSchema(o, feature)
		}
	}

	if req.Model != nil {
		for _, taskType := range validation.GherkinTaskTypes {
			outcomes, err := s.latestOutcomes(ctx, req.ID, taskType)
			if err != nil {
				return nil, err
			}
			for _, o := range outcomes {
				b.addGherkin(o)
			}
		}
	}

	return b.build(req), nil
}

// latestOutcomes returns the outcomes of the most recent task of a type.
// A request without such a task has no outcomes.
func (s *Service) latestOutcomes(ctx context.Context, requestID int64, taskType validation.TaskType) ([]*validation.ValidationOutcome, error) {
	task, err := s.taskRepo.FindLatestByType(ctx, requestID, taskType)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.outcomeRepo.ListByTask(ctx, task.ID)
}

type reportBuilder struct {
	instances map[int64]InstanceView
	schema    []SchemaResult
	gherkin   []GherkinResult
}

func (b *reportBuilder) addInstance(o *validation.ValidationOutcome) {
	inst := o.Instance
	if inst == nil {
		return
	}
	if _, seen := b.instances[inst.ID]; !seen {
		b.instances[inst.ID] = InstanceView{GUID: inst.GUID(), Type: inst.IfcType}
	}
}

func (b *reportBuilder) addSchema(o *validation.ValidationOutcome, f validation.SchemaFeature) {
	b.schema = append(b.schema, SchemaResult{
		ID:             o.ID,
		Attribute:      f.Attribute,
		ConstraintType: f.Type,
		InstanceID:     o.InstanceID,
		Msg:            o.Observed,
		TaskID:         o.TaskID,
	})
	b.addInstance(o)
}

func (b *reportBuilder) addGherkin(o *validation.ValidationOutcome) {
	b.gherkin = append(b.gherkin, GherkinResult{
		ID:         o.ID,
		Feature:    o.Feature,
		FeatureURL: o.FeatureVersion,
		Step:       o.Severity.Display(),
		InstanceID: o.InstanceID,
		Message:    o.UIMessage(),
		TaskID:     o.TaskID,
		Msg:        o.Observed,
	})
	b.addInstance(o)
}

func (b *reportBuilder) build(req *validation.ValidationRequest) *Report {
	schema := b.schema
	if schema == nil {
		schema = []SchemaResult{}
	}
	gherkin := b.gherkin
	if gherkin == nil {
		gherkin = []GherkinResult{}
	}
	return &Report{
		Instances: b.instances,
		Model:     ToReportModel(req),
		Results: ReportResults{
			SyntaxResult: []any{},
			SchemaResult: schema,
			BSDDResults:  []any{},
		},
		Tasks: ReportTasks{
			BSDDValidationTask:              []any{},
			GherkinRulesValidationTask:      GherkinTaskView{Results: gherkin},
			IndustryPracticesValidationTask: GherkinTaskView{Results: gherkin},
		},
	}
}

// ParseIDList parses a comma-separated list of request ids. Duplicates are
// dropped, keeping the first occurrence.
func ParseIDList(ids string) ([]int64, error) {
	parts := strings.Split(ids, ",")
	seen := make(map[int64]struct{}, len(parts))
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, shared.ErrInvalidInput.Wrap(fmt.Errorf("invalid request id %q", p))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
