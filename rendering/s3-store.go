package rendering

import (
	"bytes"
	"context"
	"factoriotech/config"
	"factoriotech/domain"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Store reads renderings from an S3 compatible bucket
type S3Store struct {
	s3Client *minio.Client
	bucket   string
	prefix   string
	buffer   int
	logger   *zap.Logger
}

// NewS3Client creates a minio client from the S3 section of the configuration
func NewS3Client(conf config.S3Config) (*minio.Client, error) {
	return minio.New(conf.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.S3AccessKeyID, conf.S3SecretAccessKey, ""),
		Secure: conf.S3UseSSL,
		Region: conf.S3Region,
	})
}

// NewS3Store creates an S3Store
func NewS3Store(s3Client *minio.Client, bucketName string, prefix string, logger *zap.Logger) *S3Store {
	return &S3Store{
		s3Client: s3Client,
		bucket:   bucketName,
		prefix:   strings.Trim(prefix, "/"),
		buffer:   256 * 1024,
		logger:   logger,
	}
}

// EnsureBucket creates the bucket if it does not exist yet
func (s *S3Store) EnsureBucket(ctx context.Context, region string) error {
	bucketExists, err := s.s3Client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("Error checking if bucket exists: %w", err)
	}

	if bucketExists {
		return nil
	}

	s.logger.Info("Creating rendering bucket", zap.String("bucket", s.bucket), zap.String("region", region))

	err = s.s3Client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{
		Region:        region,
		ObjectLocking: false,
	})

	if err != nil {
		return fmt.Errorf("Error creating S3 rendering bucket: %w", err)
	}

	return nil
}

// TryLoad implements Store
func (s *S3Store) TryLoad(ctx context.Context, hash domain.Hash, renderingType domain.RenderingType) ([]byte, bool, error) {
	key := ObjectKey(s.prefix, hash, renderingType)

	object, err := s.s3Client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return s.classify(ctx, key, err)
	}
	defer object.Close()

	buffer := bytes.NewBuffer(make([]byte, 0, s.buffer))
	if _, err := buffer.ReadFrom(object); err != nil {
		return s.classify(ctx, key, err)
	}

	return buffer.Bytes(), true, nil
}

// Save implements Publisher
func (s *S3Store) Save(ctx context.Context, hash domain.Hash, renderingType domain.RenderingType, data []byte) error {
	key := ObjectKey(s.prefix, hash, renderingType)

	if _, err := s.s3Client.PutObject(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  ContentType,
			CacheControl: CacheControl,
		},
	); err != nil {
		s.logger.Error("Error putting rendering on S3", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	s.logger.Debug("Successfully put rendering on S3", zap.String("key", key), zap.Int("size", len(data)))
	return nil
}

func (s *S3Store) classify(ctx context.Context, key string, err error) ([]byte, bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}

	if isMissingObject(err) {
		return nil, false, nil
	}

	s.logger.Error("Error loading rendering from S3", zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
	return nil, false, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

func isMissingObject(err error) bool {
	errorResponse := minio.ToErrorResponse(err)

	if errorResponse.Code == "NoSuchKey" {
		return true
	}

	return errorResponse.StatusCode == http.StatusNotFound && errorResponse.Code != "NoSuchBucket"
}
