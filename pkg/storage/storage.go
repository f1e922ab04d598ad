package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/errutil"
)

var Module = fx.Module("storage",
	fx.Provide(registerClient, NewUploader),
)

func registerClient(c *config.Config) *minio.Client {
	client, err := minio.New(c.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Minio.AccessKey, c.Minio.SecretKey, ""),
		Secure: c.Minio.Secure,
	})
	if err != nil {
		zap.L().Fatal("failed to create MinIO client", zap.Error(err))
	}

	exists, errBucketExists := client.BucketExists(context.Background(), c.Minio.BucketName)
	if errBucketExists != nil {
		zap.L().Fatal("failed to check if bucket exists", zap.Error(errBucketExists))
	}
	zap.L().Info("MinIO client initialized", zap.String("endpoint", c.Minio.Endpoint), zap.Bool("bucketExists", exists))

	return client
}

// Uploader is the opaque upload(file) -> url collaborator used for avatars,
// KYC documents and event media.
type Uploader interface {
	Upload(ctx context.Context, dir, filename, contentType string, r io.Reader, size int64) (string, error)
}

type minioUploader struct {
	client  *minio.Client
	bucket  string
	baseURL string
	timeout time.Duration
}

type UploaderParams struct {
	fx.In
	Client *minio.Client
	Config *config.Config
}

func NewUploader(p UploaderParams) Uploader {
	timeout := p.Config.Upload.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &minioUploader{
		client:  p.Client,
		bucket:  p.Config.Minio.BucketName,
		baseURL: p.Config.Minio.PublicURL,
		timeout: timeout,
	}
}

func (u *minioUploader) Upload(ctx context.Context, dir, filename, contentType string, r io.Reader, size int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	object := path.Join(dir, filename)
	_, err := u.client.PutObject(ctx, u.bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", errutil.Timeout("object storage upload timed out", errutil.WithErr(err))
		}
		return "", errutil.BadGateway("object storage upload failed", errutil.WithErr(err))
	}

	return fmt.Sprintf("%s/%s/%s", u.baseURL, u.bucket, object), nil
}
