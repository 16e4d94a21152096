package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/observability"
)

const receiptPathPrefix = "receipts"

var ErrBucketCreationFailed = errors.New("failed to create storage bucket")

// MinIOPublisher stores receipts in an S3-compatible bucket whose receipts/
// prefix is readable anonymously, and returns the plain object URL. The
// bucket and its policy are set up on first publish, not at construction,
// so startup never waits on object storage.
type MinIOPublisher struct {
	client     *minio.Client
	bucketName string
	publicURL  *url.URL

	mu          sync.Mutex
	bucketReady bool
}

// NewMinIOPublisher builds a publisher for bucketName. publicURL is the base
// readers use to reach the bucket; empty means the MinIO endpoint itself.
func NewMinIOPublisher(endpoint, accessKey, secretKey, bucketName string, useSSL bool, publicURL string) (*MinIOPublisher, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	base := client.EndpointURL()
	if publicURL != "" {
		base, err = url.Parse(publicURL)
		if err != nil {
			return nil, fmt.Errorf("parse public url: %w", err)
		}
	}
	return &MinIOPublisher{client: client, bucketName: bucketName, publicURL: base}, nil
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

// readPolicy grants anonymous GetObject on the receipts prefix only.
func readPolicy(bucket string) (string, error) {
	b, err := json.Marshal(bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/" + receiptPathPrefix + "/*"},
		}},
	})
	return string(b), err
}

func (p *MinIOPublisher) ensureBucketExists(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bucketReady {
		return nil
	}
	exists, err := p.client.BucketExists(ctx, p.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
		}
	}
	policy, err := readPolicy(p.bucketName)
	if err != nil {
		return err
	}
	if err := p.client.SetBucketPolicy(ctx, p.bucketName, policy); err != nil {
		return fmt.Errorf("%w: set read policy: %v", ErrBucketCreationFailed, err)
	}
	p.bucketReady = true
	return nil
}

// Publish uploads data under receipts/ and returns its permanent URL.
func (p *MinIOPublisher) Publish(ctx context.Context, filename string, data []byte) (string, error) {
	if err := p.ensureBucketExists(ctx); err != nil {
		observability.RecordIntegrationCall(ctx, "minio", err)
		return "", err
	}
	key := objectKey(filename)
	_, err := p.client.PutObject(ctx, p.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/pdf",
		UserMetadata: map[string]string{
			"Uploaded-At": time.Now().UTC().Format(time.RFC3339),
		},
	})
	observability.RecordIntegrationCall(ctx, "minio", err)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return p.objectURL(key), nil
}

func (p *MinIOPublisher) objectURL(key string) string {
	return p.publicURL.JoinPath(p.bucketName, key).String()
}

func objectKey(filename string) string {
	return path.Join(receiptPathPrefix, path.Base("/"+filename))
}
