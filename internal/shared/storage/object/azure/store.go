package azure

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"casa-backend/internal/shared/storage/object"
)

type blobAPI interface {
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

// Store implements ObjectStore on an Azure Blob Storage container.
type Store struct {
	client     blobAPI
	container  string
	prefix     string
	serviceURL string
}

// New builds a Store authenticated with a shared key.
func New(account, key, container, prefix string) (*Store, error) {
	if account == "" || key == "" || container == "" {
		return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT/AZURE_STORAGE_KEY/AZURE_STORAGE_CONTAINER required for azure store")
	}
	credential, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("build shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return &Store{
		client:     client,
		container:  container,
		prefix:     strings.Trim(prefix, "/"),
		serviceURL: serviceURL,
	}, nil
}

// Put streams r into a new block blob. A blob already at the name yields
// object.ErrExists.
func (s *Store) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	name, err := s.blobName(key)
	if err != nil {
		return 0, err
	}
	counter := &object.CountingReader{R: r}
	createOnly := &blob.AccessConditions{
		ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
	}
	opts := &azblob.UploadStreamOptions{
		HTTPHeaders:      &blob.HTTPHeaders{BlobContentType: &contentType},
		AccessConditions: createOnly,
	}
	_, err = s.client.UploadStream(ctx, s.container, name, counter, opts)
	if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
		return 0, fmt.Errorf("%w: %s", object.ErrExists, name)
	}
	if err != nil {
		return 0, fmt.Errorf("azure upload container=%s blob=%s: %w", s.container, name, err)
	}
	return counter.N, nil
}

// Open downloads a blob for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	name, err := s.blobName(key)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("azure download container=%s blob=%s: %w", s.container, name, err)
	}
	return resp.Body, nil
}

// PublicURL returns the blob URL. The container must allow anonymous blob reads.
func (s *Store) PublicURL(key string) string {
	name, err := s.blobName(key)
	if err != nil {
		return ""
	}
	return object.JoinURL(s.serviceURL+s.container, name)
}

func (s *Store) blobName(key string) (string, error) {
	clean, err := object.CleanKey(key)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return clean, nil
	}
	return path.Join(s.prefix, clean), nil
}

var _ object.ObjectStore = (*Store)(nil)
