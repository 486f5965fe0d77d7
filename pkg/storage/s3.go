package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FolderIngest is the S3 prefix for files staged for provider ingest.
const FolderIngest = "ingest"

// AllowedVideoExtensions maps accepted upload extensions to their MIME type.
var AllowedVideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".wmv":  "video/x-ms-wmv",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	IngestBucket         string
	PresignExpireMinutes int
	// Endpoint overrides the S3 endpoint (MinIO, localstack).
	Endpoint string
}

// S3 stages uploaded videos so the provider can pull them by URL.
type S3 struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config, AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY,
// or the default credential chain, in that order.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using static credentials", zap.String("region", cfg.Region), zap.String("ingest_bucket", cfg.IngestBucket))
	} else {
		logger.Warn("S3 client using default credential chain")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
	})
	return &S3{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// SplitFilename returns the base name without extension and the lower-cased
// extension without its dot: "Launch Day.MP4" -> ("Launch Day", "mp4").
func SplitFilename(filename string) (name, ext string) {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	e := path.Ext(base)
	return strings.TrimSuffix(base, e), strings.ToLower(strings.TrimPrefix(e, "."))
}

// ValidateVideoFile reports whether filename has an accepted video extension.
func ValidateVideoFile(filename string) bool {
	_, ext := SplitFilename(filename)
	_, ok := AllowedVideoExtensions["."+ext]
	return ok
}

// ContentTypeForFilename returns the MIME type for a video filename.
func ContentTypeForFilename(filename string) string {
	_, ext := SplitFilename(filename)
	if ct, ok := AllowedVideoExtensions["."+ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// StagingKey returns a unique object key: ingest/{uuid}/{basename}.
func StagingKey(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return path.Join(FolderIngest, uuid.New().String(), base)
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// Stage streams body into the ingest bucket under key.
func (s *S3) Stage(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.IngestBucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if contentLength > 0 {
		input.ContentLength = aws.Int64(contentLength)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Debug("staged ingest file", zap.String("key", key), zap.Int64("size", contentLength))
	return nil
}

// SourceURL returns a pre-signed GET URL the provider can fetch the staged object from.
func (s *S3) SourceURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.IngestBucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.PresignExpire()
	})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// DeleteStaged removes a staged object once the provider no longer needs it.
func (s *S3) DeleteStaged(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.IngestBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
