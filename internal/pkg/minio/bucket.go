package minio

import (
	"context"
	"strings"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// EnsureBucket creates the configured bucket when it does not exist yet
func (c *Client) EnsureBucket(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	bucket := c.config.Bucket
	exists, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return WrapError("BucketExists", err, bucket, "")
	}
	if exists {
		return nil
	}

	err = c.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Region})
	if err != nil && !IsBucketAlreadyExists(err) {
		return WrapError("MakeBucket", err, bucket, "")
	}

	c.logger.WithContext(ctx).Info("bucket created", zap.String("bucket", bucket))
	return nil
}

// ListObjects lists every object below the configured prefix
func (c *Client) ListObjects(ctx context.Context) ([]ObjectInfo, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	prefix := ""
	if c.config.Prefix != "" {
		prefix = c.config.Prefix + "/"
	}

	var objects []ObjectInfo
	for object := range c.client.ListObjects(ctx, c.config.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, WrapError("ListObjects", object.Err, c.config.Bucket, "")
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		objects = append(objects, ObjectInfo{
			Key:          strings.TrimPrefix(object.Key, prefix),
			Size:         object.Size,
			ETag:         object.ETag,
			ContentType:  object.ContentType,
			LastModified: object.LastModified,
		})
	}
	return objects, nil
}
