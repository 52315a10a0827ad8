package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Uploader copies a committed snapshot to remote storage. The local
// filesystem remains the canonical store; an upload failure is soft and
// never changes the outcome of the run.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (location string, err error)
}

// S3Config holds settings for the optional post-commit S3 upload.
type S3Config struct {
	Enabled   bool   `mapstructure:"enabled" json:"enabled"`
	Bucket    string `mapstructure:"bucket" json:"bucket"`
	Region    string `mapstructure:"region" json:"region"`
	Prefix    string `mapstructure:"prefix" json:"prefix"`
	AccessKey string `mapstructure:"access_key" json:"-"`
	SecretKey string `mapstructure:"secret_key" json:"-"`
}

// Validate checks the S3 configuration for completeness.
func (c *S3Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3 region is required")
	}
	// Static credentials are optional; the default AWS credential chain
	// (instance profile, env, shared config) is used when absent.
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("s3 access_key and secret_key must be set together")
	}
	return nil
}

// S3Uploader implements Uploader for Amazon S3.
type S3Uploader struct {
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Uploader creates an S3Uploader from config.
func NewS3Uploader(config *S3Config) (*S3Uploader, error) {
	if config == nil {
		return nil, fmt.Errorf("s3 configuration is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid s3 configuration: %w", err)
	}

	awsConfig := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = "backups"
	}

	return &S3Uploader{
		uploader: s3manager.NewUploader(sess),
		bucket:   config.Bucket,
		prefix:   strings.Trim(prefix, "/"),
	}, nil
}

// Upload streams the snapshot at localPath to the configured bucket.
// The object key is the prefix joined with the snapshot filename, so the
// remote layout mirrors the backup directory.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open snapshot for upload: %w", err)
	}
	defer file.Close()

	key := path.Join(u.prefix, filepath.Base(localPath))
	_, err = u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot to s3: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
