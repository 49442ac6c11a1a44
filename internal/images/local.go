// Package images stores listing photos on local disk and serves them by
// URL under a static route.
package images

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultMaxSize is the per-file upload limit (5 MiB).
	DefaultMaxSize = 5 << 20
)

// DefaultAllowedTypes are the MIME types accepted when none are configured.
var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

// LocalStore writes images below Dir and builds URLs by joining BaseURL
// with the relative path.
type LocalStore struct {
	dir     string
	baseURL string
	maxSize int
	allowed []string
	logger  *zap.Logger
}

func NewLocalStore(dir, baseURL string, maxSize int, allowed []string, logger *zap.Logger) (*LocalStore, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		dir:     abs,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		allowed: allowed,
		logger:  logger,
	}, nil
}

// Dir is the directory served under the upload base URL.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Validate checks size and sniffed content type. The client's filename
// and Content-Type are not trusted.
func (s *LocalStore) Validate(f models.Upload) (*mimetype.MIME, error) {
	if len(f.Data) == 0 {
		return nil, apperr.Validation("file %q is empty", f.Filename)
	}
	if len(f.Data) > s.maxSize {
		return nil, apperr.Validation("file size must be less than %dMB", s.maxSize>>20)
	}
	mt := mimetype.Detect(f.Data)
	if !mimetype.EqualsAny(mt.String(), s.allowed...) {
		return nil, apperr.Validation("file type not allowed, allowed types: %s", strings.Join(s.allowed, ", "))
	}
	return mt, nil
}

func (s *LocalStore) Upload(ctx context.Context, folder string, files []models.Upload) ([]string, error) {
	exts := make([]string, len(files))
	for i, f := range files {
		mt, err := s.Validate(f)
		if err != nil {
			return nil, err
		}
		exts[i] = mt.Extension()
	}

	rel, err := cleanRelative(folder)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(s.dir, filepath.FromSlash(rel)), 0o755); err != nil {
		return nil, fmt.Errorf("create image folder: %w", err)
	}

	urls := make([]string, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			s.rollback(ctx, urls)
			return nil, err
		}
		name := path.Join(rel, uuid.NewString()+exts[i])
		if err := os.WriteFile(filepath.Join(s.dir, filepath.FromSlash(name)), f.Data, 0o644); err != nil {
			s.rollback(ctx, urls)
			return nil, fmt.Errorf("write image: %w", err)
		}
		urls = append(urls, s.baseURL+"/"+name)
	}
	return urls, nil
}

// Delete removes the file behind url. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, rawURL string) error {
	rel, err := s.relative(rawURL)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

func (s *LocalStore) rollback(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := s.Delete(ctx, u); err != nil {
			s.logger.Warn("failed to roll back uploaded image", zap.String("url", u), zap.Error(err))
		}
	}
}

// relative maps a URL this store produced back to a path under dir.
func (s *LocalStore) relative(rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, s.baseURL+"/") {
		return "", fmt.Errorf("image %q is not stored here", rawURL)
	}
	rest := strings.TrimPrefix(rawURL, s.baseURL+"/")
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}
	return cleanRelative(rest)
}

// cleanRelative rejects absolute paths and any path that climbs out of the
// upload directory.
func cleanRelative(p string) (string, error) {
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || slices.Contains(strings.Split(p, "/"), "..") {
		return "", fmt.Errorf("invalid image path %q", p)
	}
	return cleaned, nil
}
