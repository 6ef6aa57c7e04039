package media

import (
	"fmt"
	"strings"
	"time"

	"casa-backend/internal/shared/util"
)

const (
	MaxVideoBytes int64 = 2 << 30   // 2 GiB
	MaxPhotoBytes int64 = 100 << 20 // 100 MiB
)

// Classify maps a MIME type and size onto a category, enforcing the per
// category size ceiling.
func Classify(mimeType string, size int64) (Category, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	var category Category
	switch {
	case strings.HasPrefix(mt, "video/"):
		category = CategoryVideo
	case strings.HasPrefix(mt, "image/"):
		category = CategoryPhoto
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
	if size > MaxBytes(category) {
		return "", fmt.Errorf("%w: %d bytes exceeds %s limit of %d", ErrFileTooLarge, size, category, MaxBytes(category))
	}
	return category, nil
}

// MaxBytes returns the size ceiling for a category.
func MaxBytes(c Category) int64 {
	if c == CategoryVideo {
		return MaxVideoBytes
	}
	return MaxPhotoBytes
}

// ObjectPath builds the storage path "{userId}/{unixMillis}_{fileName}".
func ObjectPath(userID string, at time.Time, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return fmt.Sprintf("%s/%d_%s", userID, at.UnixMilli(), name), nil
}

// OwnsPath reports whether path lives in userID's namespace.
func OwnsPath(userID, path string) bool {
	if userID == "" {
		return false
	}
	return strings.HasPrefix(strings.TrimLeft(path, "/"), userID+"/")
}
