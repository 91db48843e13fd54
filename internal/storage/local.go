package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/anonto42/chirp/backend/pkg/logger"
)

// LocalBackend writes objects below a directory that the server exposes
// under baseURL.
type LocalBackend struct {
	basePath string
	baseURL  string
}

// NewLocalBackend creates a new LocalBackend
func NewLocalBackend(basePath, baseURL string) (*LocalBackend, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalBackend{basePath: basePath, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Put implements Backend
func (b *LocalBackend) Put(_ context.Context, path, _ string, body io.Reader) (string, error) {
	fullPath := filepath.Join(b.basePath, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, body); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	logger.L().Debug("upload stored", zap.String("path", fullPath))
	return b.baseURL + "/" + path, nil
}
