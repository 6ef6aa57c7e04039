package media

import "time"

// Category is the coarse media kind a sample was captured as.
type Category string

const (
	CategoryVideo Category = "video"
	CategoryPhoto Category = "photo"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryVideo || c == CategoryPhoto
}

// Asset is an uploaded sample owned by a user. It is immutable once stored.
type Asset struct {
	ID               string
	OwnerID          string
	StoragePath      string
	PublicURL        string
	Category         Category
	MimeType         string
	SizeBytes        int64
	OriginalFilename string
	StorageProvider  string
	CreatedAt        time.Time
}
