package storage

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
	Prefix    string
}

// ObjectPutter is the slice of the S3 API the mirror needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SpacesClient copies finished transcripts to an S3-compatible bucket.
type SpacesClient struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewSpacesClient(ctx context.Context, cfg SpacesConfig) (*SpacesClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load SDK config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewSpacesClientWith(client, cfg.Bucket, cfg.Prefix), nil
}

func NewSpacesClientWith(client ObjectPutter, bucket, prefix string) *SpacesClient {
	return &SpacesClient{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Key maps a transcript's path relative to the transcription root to an object key.
func (s *SpacesClient) Key(relPath string) string {
	relPath = strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(relPath, "\\", "/")), "/")
	if s.prefix == "" {
		return relPath
	}
	return s.prefix + "/" + relPath
}

func (s *SpacesClient) SaveTranscript(ctx context.Context, relPath string, content []byte) (string, error) {
	key := s.Key(relPath)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to save %s to bucket %s", key, s.bucket)
	}
	return key, nil
}
