package media

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateDefaultsProvider(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	asset := Asset{
		ID:               "asset-1",
		OwnerID:          "user-1",
		StoragePath:      "user-1/1_a.mp4",
		PublicURL:        "http://x/user-1/1_a.mp4",
		Category:         CategoryVideo,
		MimeType:         "video/mp4",
		SizeBytes:        42,
		OriginalFilename: "a.mp4",
		CreatedAt:        time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO media_assets").
		WithArgs(
			asset.ID,
			asset.OwnerID,
			asset.StoragePath,
			asset.PublicURL,
			"video",
			asset.MimeType,
			asset.SizeBytes,
			asset.OriginalFilename,
			"local",
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), asset); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByPathMapsNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT (.+) FROM media_assets WHERE storage_path").
		WithArgs("user-1/missing.mp4").
		WillReturnError(sql.ErrNoRows)

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByPath(context.Background(), "user-1/missing.mp4"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListByOwnerClampsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "storage_path", "public_url", "media_type", "mime_type",
		"size_bytes", "original_filename", "storage_provider", "created_at",
	}).AddRow("asset-1", "user-1", "user-1/1_a.jpg", "http://x", "photo", "image/jpeg", 10, "a.jpg", "s3", created)

	mock.ExpectQuery("SELECT (.+) FROM media_assets").
		WithArgs("user-1", 20, 0).
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	assets, err := repo.ListByOwner(context.Background(), "user-1", 500, -3)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(assets) != 1 || assets[0].Category != CategoryPhoto || assets[0].StorageProvider != "s3" {
		t.Fatalf("unexpected assets: %+v", assets)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
