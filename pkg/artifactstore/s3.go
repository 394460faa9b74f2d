package artifactstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// S3Config configures an object-store ArtifactStore backend.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// S3Store persists artifacts to an S3-compatible bucket under a prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds an S3Store from cfg.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, ingesterr.New(ingesterr.ConfigInvalid, "artifactstore", "new", "object-store bucket (container) must not be empty", nil)
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, ingesterr.WrapWithContext(err, ingesterr.CredentialInvalid, "artifactstore", "new", "failed to load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *S3Store) fullKey(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// Upload writes data to the bucket at prefix/path and returns an s3:// URL.
func (s *S3Store) Upload(ctx context.Context, path string, data []byte) (string, error) {
	key := s.fullKey(path)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(string(data)),
	})
	if err != nil {
		return "", ingesterr.WrapWithContext(err, ingesterr.TransientNetwork, "artifactstore", "upload", fmt.Sprintf("s3 PutObject %q failed", key))
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// List returns every path under prefix+subprefix, stripped back down to
// store-relative paths.
func (s *S3Store) List(ctx context.Context, subprefix string) ([]string, error) {
	var out []string
	var token *string
	listPrefix := s.fullKey(subprefix)
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(listPrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, ingesterr.WrapWithContext(err, ingesterr.TransientNetwork, "artifactstore", "list", "s3 ListObjectsV2 failed")
		}
		for _, obj := range resp.Contents {
			key := aws.ToString(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			out = append(out, key)
		}
		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		token = resp.NextContinuationToken
	}
	return out, nil
}

// Delete removes the object at path. A missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, path string) error {
	key := s.fullKey(path)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) || strings.Contains(err.Error(), "NoSuchKey") {
			return nil
		}
		return ingesterr.WrapWithContext(err, ingesterr.TransientNetwork, "artifactstore", "delete", fmt.Sprintf("s3 DeleteObject %q failed", key))
	}
	return nil
}
