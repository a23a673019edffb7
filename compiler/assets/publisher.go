package assets

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ObjectPutter is the slice of the S3 client the publisher needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads materialized assets to the deployment bucket. Publishing
// is optional: local synthesis works entirely from the working directory.
type Publisher struct {
	client  ObjectPutter
	bucket  string
	workDir string
}

// NewPublisher builds a publisher over the default AWS config chain.
func NewPublisher(ctx context.Context, region, bucket, endpoint, workDir string) (*Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &Publisher{client: client, bucket: bucket, workDir: workDir}, nil
}

// NewPublisherWithClient injects a client, for tests and custom setups.
func NewPublisherWithClient(client ObjectPutter, bucket, workDir string) *Publisher {
	return &Publisher{client: client, bucket: bucket, workDir: workDir}
}

// NewDeploymentRootKey returns a fresh root key for one deployment. The key
// is unique per deployment on purpose: asset contents under one root key
// never change after upload.
func NewDeploymentRootKey() string {
	return "deployments/" + uuid.NewString()
}

// Publish uploads every materialized file under the given deployment root
// key. The key must be the one the assets were materialized with, so that
// the uploaded templates reference the locations the upload creates.
func (p *Publisher) Publish(ctx context.Context, a *StackAssets, rootKey string) error {
	for _, rel := range a.Files {
		data, err := os.ReadFile(filepath.Join(p.workDir, rel))
		if err != nil {
			return fmt.Errorf("read asset %s: %w", rel, err)
		}
		key := path.Join(rootKey, filepath.ToSlash(rel))
		_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType(rel)),
		})
		if err != nil {
			return fmt.Errorf("s3 put object %s: %w", key, err)
		}
	}
	return nil
}

func contentType(rel string) string {
	switch {
	case strings.HasSuffix(rel, ".json"):
		return "application/json"
	case strings.HasSuffix(rel, ".js"):
		return "application/javascript"
	default:
		return "text/plain"
	}
}
