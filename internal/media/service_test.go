package media

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casa-backend/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Service{
		Store:           local.New(t.TempDir(), "http://localhost:8080/api/v1/storage/public"),
		Repo:            NewMemoryRepo(),
		StorageProvider: "local",
		Now:             func() time.Time { return fixed },
	}
}

func TestUploadStoresAndRecordsAsset(t *testing.T) {
	svc := newTestService(t)
	body := []byte("fake mp4 payload")

	asset, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:      "user-1",
		Path:         "user-1/1740830400000_sample.mp4",
		ContentType:  "video/mp4",
		DeclaredSize: int64(len(body)),
		Body:         bytes.NewReader(body),
	})
	require.NoError(t, err)
	assert.Equal(t, CategoryVideo, asset.Category)
	assert.Equal(t, int64(len(body)), asset.SizeBytes)
	assert.Equal(t, "sample.mp4", asset.OriginalFilename)
	assert.Equal(t, "http://localhost:8080/api/v1/storage/public/user-1/1740830400000_sample.mp4", asset.PublicURL)

	rc, got, err := svc.Open(context.Background(), asset.StoragePath)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assert.Equal(t, asset.ID, got.ID)
}

func TestUploadSniffsMissingContentType(t *testing.T) {
	svc := newTestService(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	asset, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:      "user-1",
		Path:         "user-1/1_slide.png",
		ContentType:  "application/octet-stream",
		DeclaredSize: -1,
		Body:         bytes.NewReader(png),
	})
	require.NoError(t, err)
	assert.Equal(t, CategoryPhoto, asset.Category)
	assert.Equal(t, "image/png", asset.MimeType)
}

func TestUploadRejectsForeignNamespace(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:     "user-1",
		Path:        "user-2/1_sample.mp4",
		ContentType: "video/mp4",
		Body:        strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, ErrForbiddenPath)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:      "user-1",
		Path:         "user-1/1_notes.txt",
		ContentType:  "text/plain",
		DeclaredSize: 5,
		Body:         strings.NewReader("hello"),
	})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestUploadRejectsDeclaredOversizePhoto(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:      "user-1",
		Path:         "user-1/1_big.jpg",
		ContentType:  "image/jpeg",
		DeclaredSize: MaxPhotoBytes + 1,
		Body:         strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestCapReaderStopsAtLimit(t *testing.T) {
	r := &capReader{r: strings.NewReader("0123456789"), remaining: 4}
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestClassifyAndPaths(t *testing.T) {
	c, err := Classify("Video/QuickTime", 10)
	require.NoError(t, err)
	assert.Equal(t, CategoryVideo, c)

	_, err = Classify("video/mp4", MaxVideoBytes+1)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	p, err := ObjectPath("user-9", time.UnixMilli(1700000000000), "my clip.mov")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "user-9/1700000000000_"))
	assert.True(t, OwnsPath("user-9", p))
	assert.False(t, OwnsPath("user-90", p))
	assert.False(t, OwnsPath("", p))
}
