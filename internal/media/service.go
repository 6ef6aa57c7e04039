package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"casa-backend/internal/shared/metrics"
	"casa-backend/internal/shared/storage/object"
	"casa-backend/internal/shared/telemetry"
)

const sniffLen = 3072

// Service stores uploaded samples and records them as assets.
type Service struct {
	Store           object.ObjectStore
	Repo            Repo
	StorageProvider string
	Now             func() time.Time
}

// UploadInput describes one object write.
type UploadInput struct {
	OwnerID     string
	Path        string
	ContentType string
	// DeclaredSize is the Content-Length when known, otherwise -1.
	DeclaredSize int64
	Body         io.Reader
}

// Upload validates the object against the media rules, writes it to the
// store and records the asset.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Asset, error) {
	key, err := object.CleanKey(in.Path)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !OwnsPath(in.OwnerID, key) {
		return Asset{}, ErrForbiddenPath
	}
	if in.Body == nil {
		return Asset{}, fmt.Errorf("%w: empty body", ErrInvalidInput)
	}

	head := make([]byte, sniffLen)
	n, readErr := io.ReadFull(in.Body, head)
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return Asset{}, fmt.Errorf("read body: %w", readErr)
	}
	head = head[:n]

	contentType := normalizeContentType(in.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(head).String()
	}

	size := in.DeclaredSize
	if size < 0 {
		size = 0
	}
	category, err := Classify(contentType, size)
	if err != nil {
		return Asset{}, err
	}

	body := &capReader{r: io.MultiReader(bytes.NewReader(head), in.Body), remaining: MaxBytes(category)}
	written, err := s.Store.Put(ctx, key, contentType, body)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return Asset{}, ErrFileTooLarge
		case errors.Is(err, object.ErrExists):
			return Asset{}, fmt.Errorf("%w: %s", ErrExists, key)
		}
		return Asset{}, fmt.Errorf("store object: %w", err)
	}

	asset := Asset{
		ID:               uuid.NewString(),
		OwnerID:          in.OwnerID,
		StoragePath:      key,
		PublicURL:        s.Store.PublicURL(key),
		Category:         category,
		MimeType:         contentType,
		SizeBytes:        written,
		OriginalFilename: originalName(key),
		StorageProvider:  s.StorageProvider,
		CreatedAt:        s.now(),
	}
	if err := s.Repo.Create(ctx, asset); err != nil {
		return Asset{}, fmt.Errorf("record asset: %w", err)
	}

	metrics.IncMediaUploaded()
	telemetry.Info("media.stored", map[string]any{
		"user_id":    asset.OwnerID,
		"media_path": asset.StoragePath,
		"media_type": string(asset.Category),
		"size_bytes": asset.SizeBytes,
	})
	return asset, nil
}

// List returns the owner's assets newest first.
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]Asset, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id required", ErrInvalidInput)
	}
	return s.Repo.ListByOwner(ctx, ownerID, limit, offset)
}

// Open streams a stored object.
func (s *Service) Open(ctx context.Context, path string) (io.ReadCloser, Asset, error) {
	key, err := object.CleanKey(path)
	if err != nil {
		return nil, Asset{}, ErrNotFound
	}
	asset, err := s.Repo.GetByPath(ctx, key)
	if err != nil {
		return nil, Asset{}, err
	}
	rc, err := s.Store.Open(ctx, key)
	if errors.Is(err, object.ErrNotFound) {
		telemetry.Warn("media.object_missing", map[string]any{"media_path": key})
		return nil, Asset{}, ErrNotFound
	}
	if err != nil {
		return nil, Asset{}, fmt.Errorf("open object: %w", err)
	}
	return rc, asset, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func normalizeContentType(raw string) string {
	ct := strings.TrimSpace(raw)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return strings.ToLower(ct)
}

// originalName strips the "{millis}_" prefix from the last path segment.
func originalName(key string) string {
	name := key
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "_"); i > 0 {
		return name[i+1:]
	}
	return name
}

// capReader fails with ErrFileTooLarge once more than remaining bytes are read.
type capReader struct {
	r         io.Reader
	remaining int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, ErrFileTooLarge
	}
	return n, err
}
