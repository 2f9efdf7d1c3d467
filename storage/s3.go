package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rs/zerolog/log"
)

// S3Config addresses the Supabase Storage S3-compatible endpoint.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL is the project URL; objects are served from
	// <PublicBaseURL>/storage/v1/object/public/<bucket>/<key>.
	PublicBaseURL string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client        putObjectAPI
	publicBaseURL string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errs.NewConfigError("object storage", errs.ErrConfigMissing)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, errs.NewConfigError("object storage", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return newS3Store(client, cfg.PublicBaseURL), nil
}

func newS3Store(client putObjectAPI, publicBaseURL string) *S3Store {
	return &S3Store{client: client, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (s *S3Store) Put(ctx context.Context, bucket Bucket, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(string(bucket)),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		log.Error().Err(err).Str("bucket", string(bucket)).Str("key", key).Msg("object upload failed")
		return "", errs.NewUploadError(string(bucket), err)
	}
	return s.PublicURL(bucket, key), nil
}

func (s *S3Store) PublicURL(bucket Bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.publicBaseURL, bucket, key)
}
