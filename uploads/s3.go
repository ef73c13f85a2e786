// Package uploads stores images attached to posts in S3.
package uploads

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/config"
	"github.com/rpupo63/blog-backend/errs"
)

// MaxSize is the largest accepted upload, in bytes.
const MaxSize = 10 << 20

var allowedTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// ObjectPutter is the slice of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3 struct {
	client  ObjectPutter
	bucket  string
	baseURL string
	prefix  string
	logger  zerolog.Logger
}

func NewS3(client ObjectPutter, bucket, baseURL, prefix string) *S3 {
	return &S3{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  strings.Trim(prefix, "/"),
		logger:  log.With().Str("component", "uploads").Logger(),
	}
}

// FromConfig builds an uploader from S3_BUCKET, S3_PUBLIC_BASE_URL,
// S3_KEY_PREFIX and AWS_REGION. It returns nil when no bucket is set.
func FromConfig(ctx context.Context, cfg map[string]string) (*S3, error) {
	bucket := config.GetString(cfg, "S3_BUCKET", "")
	if bucket == "" {
		return nil, nil
	}

	region := config.GetString(cfg, "AWS_REGION", "us-east-1")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errs.NewConfigError("AWS_REGION", err)
	}

	baseURL := config.GetString(cfg, "S3_PUBLIC_BASE_URL", fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region))
	return NewS3(s3.NewFromConfig(awsCfg), bucket, baseURL, config.GetString(cfg, "S3_KEY_PREFIX", "blog")), nil
}

// Put stores body under a fresh key and returns its public URL.
func (u *S3) Put(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", errs.NewValidationError("file", "unsupported content type "+contentType)
	}
	key := uuid.NewString() + ext
	if u.prefix != "" {
		key = u.prefix + "/" + key
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		u.logger.Error().Err(err).Str("filename", filename).Msg("put object failed")
		return "", errs.NewServiceUnavailableError("s3", err)
	}

	u.logger.Info().Str("key", key).Msg("stored upload")
	return u.baseURL + "/" + key, nil
}
