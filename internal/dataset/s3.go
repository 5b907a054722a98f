package dataset

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// S3Source reads a JSON array or JSON Lines object from an S3-compatible bucket.
type S3Source struct {
	client     *s3.Client
	bucket     string
	key        string
	dateFields []string
}

// NewS3Source creates an S3 source. If endpoint is non-empty, path-style
// addressing is enabled (for MinIO and similar).
func NewS3Source(ctx context.Context, bucket, key, region, endpoint string, dateFields []string) (*S3Source, error) {
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Source{
		client:     s3.NewFromConfig(cfg, s3opts...),
		bucket:     bucket,
		key:        key,
		dateFields: dateFields,
	}, nil
}

func (s *S3Source) Load(ctx context.Context) ([]model.Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object %s: %w", s, err)
	}
	defer out.Body.Close()

	rows, err := Decode(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	Normalize(rows, s.dateFields)
	return rows, nil
}

func (s *S3Source) String() string {
	return "s3://" + s.bucket + "/" + s.key
}
