package rendering

import (
	"context"
	"errors"
	"factoriotech/domain"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStore reads renderings from a directory tree shared with the renderer.
// Files live at <root>/<type>/<hash[0:2]>/<hash[2:4]>/<hash>.png.
type LocalStore struct {
	root   string
	logger *zap.Logger
}

// NewLocalStore creates a LocalStore rooted at root, creating it if needed
func NewLocalStore(root string, logger *zap.Logger) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("local rendering root is required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}

	return &LocalStore{root: abs, logger: logger}, nil
}

// Path is the file a rendering is read from
func (l *LocalStore) Path(hash domain.Hash, renderingType domain.RenderingType) string {
	h := hash.String()
	return filepath.Join(l.root, renderingType.Slug(), h[0:2], h[2:4], h+".png")
}

// TryLoad implements Store
func (l *LocalStore) TryLoad(ctx context.Context, hash domain.Hash, renderingType domain.RenderingType) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if hash.IsEmpty() {
		return nil, false, domain.ErrInvalidHash
	}

	path := l.Path(hash, renderingType)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}

	if err != nil {
		l.logger.Error("Error reading rendering", zap.String("path", path), zap.Error(err))
		return nil, false, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	return data, true, nil
}

// Save implements Publisher. The file is written under a temporary name
// and renamed so readers never observe a partial image.
func (l *LocalStore) Save(ctx context.Context, hash domain.Hash, renderingType domain.RenderingType, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if hash.IsEmpty() {
		return domain.ErrInvalidHash
	}

	dst := l.Path(hash, renderingType)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	l.logger.Debug("Saved rendering", zap.String("path", dst), zap.Int("size", len(data)))
	return nil
}
