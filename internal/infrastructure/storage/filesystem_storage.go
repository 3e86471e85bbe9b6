// Package storage provides file storage implementations for uploaded IFC files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	appvalidation "github.com/ifcvalidation/bff/internal/application/validation"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// maxNameAttempts bounds the search for a free file name
const maxNameAttempts = 20

// Ensure FilesystemStorage implements FileStorage
var _ appvalidation.FileStorage = (*FilesystemStorage)(nil)

// FilesystemStorage keeps uploads as flat files under a media root directory.
type FilesystemStorage struct {
	fs     afero.Fs
	logger *zap.Logger
}

// FilesystemOption is a functional option for configuring FilesystemStorage
type FilesystemOption func(*FilesystemStorage)

// WithFilesystemLogger sets a custom logger for FilesystemStorage
func WithFilesystemLogger(logger *zap.Logger) FilesystemOption {
	return func(s *FilesystemStorage) {
		s.logger = logger
	}
}

// NewFilesystemStorage creates the media root if needed and confines all
// operations to it.
func NewFilesystemStorage(mediaRoot string, opts ...FilesystemOption) (*FilesystemStorage, error) {
	if mediaRoot == "" {
		return nil, errors.New("media root is required")
	}
	root, err := filepath.Abs(mediaRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid media root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return NewFilesystemStorageFromFs(afero.NewBasePathFs(afero.NewOsFs(), root), opts...), nil
}

// NewFilesystemStorageFromFs wraps an existing afero filesystem, typically an
// in-memory one in tests.
func NewFilesystemStorageFromFs(fsys afero.Fs, opts ...FilesystemOption) *FilesystemStorage {
	s := &FilesystemStorage{
		fs:     fsys,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the content to a temporary file first and then moves it to a
// free name, so readers never observe a partially written upload.
func (s *FilesystemStorage) Save(ctx context.Context, fileName string, content io.Reader) (string, int64, error) {
	name, err := cleanFileName(fileName)
	if err != nil {
		return "", 0, err
	}

	tmp, err := afero.TempFile(s.fs, ".", ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, readerWithContext(ctx, content))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(tmpName)
		return "", 0, fmt.Errorf("failed to write %s: %w", name, err)
	}

	key, err := s.reserve(name)
	if err != nil {
		_ = s.fs.Remove(tmpName)
		return "", 0, err
	}
	if err := s.fs.Rename(tmpName, key); err != nil {
		_ = s.fs.Remove(tmpName)
		_ = s.fs.Remove(key)
		return "", 0, fmt.Errorf("failed to store %s: %w", name, err)
	}

	s.logger.Info("File stored",
		zap.String("file_name", fileName),
		zap.String("key", key),
		zap.Int64("size", size),
	)
	return key, size, nil
}

// reserve claims a free name by creating it exclusively. The caller replaces
// the placeholder with the real content.
func (s *FilesystemStorage) reserve(name string) (string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		candidate := name
		if attempt > 0 {
			candidate = withSuffix(name)
		}
		f, err := s.fs.OpenFile(candidate, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_ = f.Close()
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to reserve %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", name, maxNameAttempts)
}

// Open returns the stored content
func (s *FilesystemStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, shared.ErrNotFound.Wrap(err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

// Delete removes a stored file; a file that is already gone is ignored
func (s *FilesystemStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.fs.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	s.logger.Info("File deleted", zap.String("key", key))
	return nil
}

// LocalPath returns the real path for files on the OS filesystem and a
// temporary copy for anything else.
func (s *FilesystemStorage) LocalPath(ctx context.Context, key string) (string, func(), error) {
	if err := validateKey(key); err != nil {
		return "", nil, err
	}
	if base, ok := s.fs.(*afero.BasePathFs); ok {
		if _, err := base.Stat(key); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", nil, shared.ErrNotFound.Wrap(err)
			}
			return "", nil, err
		}
		p, err := base.RealPath(key)
		if err != nil {
			return "", nil, err
		}
		return p, func() {}, nil
	}

	r, err := s.Open(ctx, key)
	if err != nil {
		return "", nil, err
	}
	defer r.Close()
	return spoolToTemp(ctx, key, r)
}

// cleanFileName reduces an uploaded file name to a single safe path element
func cleanFileName(fileName string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "", shared.ErrInvalidInput.Wrap(fmt.Errorf("invalid file name %q", fileName))
	}
	return name, nil
}

func validateKey(key string) error {
	if key == "" || !filepath.IsLocal(key) {
		return shared.ErrInvalidInput.Wrap(fmt.Errorf("invalid storage key %q", key))
	}
	return nil
}

// withSuffix turns "model.ifc" into "model_1a2b3c4d.ifc"
func withSuffix(name string) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return stem + "_" + uuid.NewString()[:8] + ext
}

// spoolToTemp copies r into a temporary OS file that keeps the key's extension
func spoolToTemp(ctx context.Context, key string, r io.Reader) (string, func(), error) {
	tmp, err := os.CreateTemp("", "ifc-*"+path.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	_, err = io.Copy(tmp, readerWithContext(ctx, r))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to copy %s: %w", key, err)
	}
	return tmp.Name(), cleanup, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// readerWithContext stops long copies once the request is cancelled
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
