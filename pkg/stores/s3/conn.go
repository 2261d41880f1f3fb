package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config points at an S3-compatible endpoint such as MinIO.
type Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Secure    bool   `mapstructure:"secure"`
}

type Conn struct {
	client *minio.Client
}

/*
NewConn creates a client for the configured endpoint. No request is made until
the first operation.
*/
func NewConn(cfg Config) (*Conn, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("diagram store endpoint is not configured")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	return &Conn{client: client}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (conn *Conn) EnsureBucket(ctx context.Context, bucketName, region string) error {
	exists, err := conn.client.BucketExists(ctx, bucketName)

	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucketName, err)
	}

	if exists {
		return nil
	}

	log.Info("creating bucket", "bucket", bucketName)

	return conn.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: region})
}

func (conn *Conn) Put(
	ctx context.Context,
	bucketName string,
	objectKey string,
	body io.Reader,
	size int64,
	contentType string,
) error {
	_, err := conn.client.PutObject(ctx, bucketName, objectKey, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})

	return err
}
