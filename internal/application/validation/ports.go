package validation

import (
	"context"
	"io"
)

// FileStorage defines the interface for storing uploaded IFC files.
// It is implemented by the infrastructure layer (local MEDIA_ROOT, S3).
type FileStorage interface {
	// Save stores the content under a name derived from fileName and returns
	// the storage key and the number of bytes written. An existing file is
	// never overwritten; a unique suffix is added instead.
	Save(ctx context.Context, fileName string, content io.Reader) (key string, size int64, err error)

	// Open returns the stored content, or shared.ErrNotFound
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a stored file. Missing files are not an error.
	Delete(ctx context.Context, key string) error

	// LocalPath makes the stored file available on the local filesystem.
	// The returned cleanup must be called once the path is no longer needed.
	LocalPath(ctx context.Context, key string) (path string, cleanup func(), err error)
}

// ValidationEnqueuer submits validation requests to the background worker
type ValidationEnqueuer interface {
	// EnqueueValidation submits the ifc_file_validation_task for a request
	EnqueueValidation(ctx context.Context, requestID int64, fileName string) error
}

// ActivityRecorder receives counters about user-facing validation activity
type ActivityRecorder interface {
	// RecordUpload counts a stored upload of size bytes
	RecordUpload(ctx context.Context, size int64)

	// RecordEnqueue counts a submission to the worker queue; err is nil on success
	RecordEnqueue(ctx context.Context, err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordUpload(context.Context, int64) {}
func (noopRecorder) RecordEnqueue(context.Context, error) {}
