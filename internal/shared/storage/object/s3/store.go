package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"casa-backend/internal/shared/storage/object"
)

// Media keys embed an upload timestamp and are never rewritten, so
// downstream caches may keep them indefinitely.
const mediaCacheControl = "public, max-age=31536000, immutable"

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config locates the bucket. PublicBase overrides the virtual-hosted bucket
// URL, e.g. for a CDN in front of the bucket.
type Config struct {
	Region     string
	Bucket     string
	Prefix     string
	KMSKeyID   string
	PublicBase string
}

// Store keeps uploaded media in S3, encrypted at rest with SSE-KMS when a
// key is configured and SSE-S3 otherwise.
type Store struct {
	api        s3API
	bucket     string
	prefix     string
	kmsKeyID   string
	publicBase string
}

// New builds a Store with the default AWS credential chain.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if strings.TrimSpace(cfg.PublicBase) == "" {
		cfg.PublicBase = defaultPublicBase(cfg.Bucket, awsCfg.Region)
	}
	return newStore(s3.NewFromConfig(awsCfg), cfg), nil
}

func newStore(api s3API, cfg Config) *Store {
	return &Store{
		api:        api,
		bucket:     cfg.Bucket,
		prefix:     strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		kmsKeyID:   strings.TrimSpace(cfg.KMSKeyID),
		publicBase: cfg.PublicBase,
	}
}

// Put streams r to the object at key and returns the bytes sent. The write
// is conditional on the key being free; a taken key yields object.ErrExists.
func (s *Store) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return 0, err
	}
	body := &object.CountingReader{R: r}
	in := &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(objectKey),
		Body:                 body,
		IfNoneMatch:          aws.String("*"),
		ContentType:          aws.String(contentType),
		CacheControl:         aws.String(mediaCacheControl),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	}
	if s.kmsKeyID != "" {
		in.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		in.SSEKMSKeyId = aws.String(s.kmsKeyID)
	}
	if _, err := s.api.PutObject(ctx, in); err != nil {
		if keyTaken(err) {
			return 0, fmt.Errorf("%w: %s", object.ErrExists, objectKey)
		}
		return 0, fmt.Errorf("s3 put %s/%s: %w", s.bucket, objectKey, err)
	}
	return body.N, nil
}

// Open streams the object at key. A missing object yields object.ErrNotFound.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, objectKey)
	}
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", s.bucket, objectKey, err)
	}
	return out.Body, nil
}

// PublicURL returns the URL the analysis platform fetches the object from.
func (s *Store) PublicURL(key string) string {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return ""
	}
	return object.JoinURL(s.publicBase, objectKey)
}

func (s *Store) objectKey(key string) (string, error) {
	clean, err := object.CleanKey(key)
	if err != nil {
		return "", err
	}
	return applyPrefix(s.prefix, clean), nil
}

// keyTaken reports whether a conditional put lost to an existing object.
// S3 answers 412 when the object exists and 409 when a concurrent
// conditional write is in flight.
func keyTaken(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

func defaultPublicBase(bucket, region string) string {
	if region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

func applyPrefix(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimLeft(key, "/")
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "/" + key
}

var _ object.ObjectStore = (*Store)(nil)
