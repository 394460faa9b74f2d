package inputsource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// S3Config configures an object-store InputSource against an S3 or
// S3-compatible (MinIO, etc.) bucket.
type S3Config struct {
	Bucket       string
	Prefix       string
	Filter       string // file extension filter, e.g. ".pdf"; empty matches everything
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// S3Source lists and reads documents from an S3-compatible bucket.
type S3Source struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Source builds an S3Source, resolving credentials the same way as
// this codebase's other cloud-backed collaborators: explicit static keys
// when given, the default AWS credential chain otherwise.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, ingesterr.New(ingesterr.ConfigInvalid, "inputsource", "new", "object-store bucket (container) must not be empty", nil)
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
		return nil, ingesterr.WrapWithContext(err, ingesterr.CredentialInvalid, "inputsource", "new", "failed to load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Source{client: client, cfg: cfg}, nil
}

// List returns every object key under the configured prefix, filtered by
// extension when Filter is set.
func (s *S3Source) List(ctx context.Context) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.cfg.Bucket),
			Prefix:            aws.String(s.cfg.Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, ingesterr.WrapWithContext(err, ingesterr.TransientNetwork, "inputsource", "list", "s3 ListObjectsV2 failed")
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if s.cfg.Filter == "" || strings.HasSuffix(strings.ToLower(key), strings.ToLower(s.cfg.Filter)) {
				keys = append(keys, key)
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return keys, nil
}

// Read downloads the object at key (the file ID returned by List).
func (s *S3Source) Read(ctx context.Context, key string) (string, []byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", nil, "", ingesterr.WrapWithContext(err, ingesterr.TransientNetwork, "inputsource", "read", fmt.Sprintf("s3 GetObject %q failed", key))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", nil, "", ingesterr.WrapWithContext(err, ingesterr.TransientNetwork, "inputsource", "read", "reading s3 object body failed")
	}

	idx := strings.LastIndex(key, "/")
	filename := key
	if idx >= 0 {
		filename = key[idx+1:]
	}
	url := fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
	return filename, data, url, nil
}
