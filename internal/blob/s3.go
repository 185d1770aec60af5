package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/audio"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures an S3-compatible bucket (Supabase Storage, MinIO)
type S3Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// S3Store uploads into a public bucket and returns the object's public URL
type S3Store struct {
	client        *s3.Client
	bucket        string
	prefix        string
	publicBaseURL string
	logger        *slog.Logger
	now           func() time.Time
}

// NewS3Store builds a path-style client against opts.Endpoint with static credentials
func NewS3Store(ctx context.Context, opts S3Options, logger *slog.Logger) (*S3Store, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})

	return &S3Store{
		client:        client,
		bucket:        opts.Bucket,
		prefix:        strings.Trim(opts.Prefix, "/"),
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (s *S3Store) Backend() string { return "s3" }

func (s *S3Store) Store(ctx context.Context, r io.Reader, size int64, originalName string) (string, error) {
	key := path.Join(s.prefix, ObjectName(s.now(), originalName))

	// the SDK needs a seekable body to sign plain-http requests
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read upload: %w", err)
		}
		body = bytes.NewReader(data)
		size = int64(len(data))
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(audio.ContentType(originalName)),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	s.logger.Debug("Blob uploaded",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.Int64("size", size),
	)

	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key), nil
}
