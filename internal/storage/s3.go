package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	lconfig "github.com/OFFIS-RIT/lodstats/internal/config"
	"github.com/OFFIS-RIT/lodstats/internal/util"
)

const (
	publishTries   = 3
	publishBackoff = 500 * time.Millisecond
)

// ObjectPutter is the part of the S3 client used for publishing.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func NewS3Client(ctx context.Context, cfg lconfig.S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})
	return client, nil
}

// Publisher uploads written sidecars to a bucket under
// <prefix>/<dataset>/<file name>.
type Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
}

type NewPublisherParams struct {
	Client ObjectPutter
	Bucket string
	Prefix string
}

func NewPublisher(params NewPublisherParams) *Publisher {
	return &Publisher{
		client: params.Client,
		bucket: params.Bucket,
		prefix: params.Prefix,
	}
}

// Key returns the object key of file in dataset.
func (p *Publisher) Key(dataset string, file string) string {
	return path.Join(p.prefix, dataset, path.Base(file))
}

// Publish uploads the file at localPath, retrying transient failures.
func (p *Publisher) Publish(ctx context.Context, dataset string, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	key := p.Key(dataset, localPath)

	err = util.RetryErrWithContext(ctx, publishTries, publishBackoff, func(ctx context.Context) error {
		_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	return nil
}
