package aws

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/resource"
)

type bucketConfig struct {
	Region string `json:"region,omitempty"`
}

// createBucket creates the bucket in the configured region. S3 treats
// us-east-1 as the default and rejects an explicit location constraint
// naming it.
func (p *Provider) createBucket(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired bucketConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	region := desired.Region
	if region == "" {
		region = p.region
	}

	input := &s3.CreateBucketInput{Bucket: &key}
	if region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := p.s3Client.CreateBucket(ctx, input); err != nil {
		return "", classify(err)
	}
	return key, nil
}

func (p *Provider) findBucket(ctx context.Context, key string) (string, error) {
	if _, err := p.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &key}); err != nil {
		return "", classify(err)
	}
	return key, nil
}

// bucketAvailable probes the bucket with HeadBucket. A newly created
// bucket can 404 for a short window while the name propagates.
func (p *Provider) bucketAvailable(ctx context.Context, id string) (bool, error) {
	if _, err := p.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &id}); err != nil {
		return false, classify(err)
	}
	return true, nil
}

// splitObjectKey separates a "bucket/path/to/object" resource key into
// its bucket and object parts at the first slash.
func splitObjectKey(key string) (bucket, objectKey string, err error) {
	bucket, objectKey, found := strings.Cut(key, "/")
	if !found || bucket == "" || objectKey == "" {
		return "", "", cloud.Errorf(resource.ProviderError,
			"bucket object key %q must take the form bucket/objectKey", key)
	}
	return bucket, objectKey, nil
}

func objectID(bucket, objectKey string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, objectKey)
}

type bucketObjectConfig struct {
	Body        string `json:"body"`
	ContentType string `json:"contentType,omitempty"`
}

// createBucketObject uploads the object body. PutObject overwrites
// silently, so an existing object is simply replaced with the same
// content rather than reported as a duplicate.
func (p *Provider) createBucketObject(ctx context.Context, key string, props map[string]any) (string, error) {
	var desired bucketObjectConfig
	if err := decodeProps(props, &desired); err != nil {
		return "", err
	}

	bucket, objectKey, err := splitObjectKey(key)
	if err != nil {
		return "", err
	}
	if err := p.PutObject(ctx, bucket, objectKey, []byte(desired.Body), desired.ContentType); err != nil {
		return "", err
	}
	return objectID(bucket, objectKey), nil
}

func (p *Provider) findBucketObject(ctx context.Context, key string) (string, error) {
	bucket, objectKey, err := splitObjectKey(key)
	if err != nil {
		return "", err
	}
	_, err = p.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &objectKey,
	})
	if err != nil {
		return "", classify(err)
	}
	return objectID(bucket, objectKey), nil
}

// PutObject uploads a single object.
func (p *Provider) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	_, err := p.s3Client.PutObject(ctx, input)
	return classify(err)
}

// GetObject downloads a single object into memory.
func (p *Provider) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cloud.Errorf(resource.ProviderError, "reading s3://%s/%s: %v", bucket, key, err)
	}
	return body, nil
}

func (p *Provider) tagBucket(ctx context.Context, providerID string, tags map[string]string) error {
	tagSet := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		tagSet = append(tagSet, types.Tag{Key: &k, Value: &v})
	}
	_, err := p.s3Client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  &providerID,
		Tagging: &types.Tagging{TagSet: tagSet},
	})
	return classify(err)
}
