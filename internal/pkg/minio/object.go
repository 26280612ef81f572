package minio

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ObjectInfo represents object metadata
type ObjectInfo struct {
	Key          string // key without the configured prefix
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// ObjectKey joins the configured prefix and name
func (c *Client) ObjectKey(name string) string {
	if c.config.Prefix == "" {
		return name
	}
	return path.Join(c.config.Prefix, name)
}

// PutObject uploads an object into the configured bucket
func (c *Client) PutObject(ctx context.Context, name string, reader io.Reader, size int64, contentType string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if name == "" {
		return WrapError("PutObject", ErrInvalidObjectKey, c.config.Bucket, name)
	}

	key := c.ObjectKey(name)
	info, err := c.client.PutObject(ctx, c.config.Bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return WrapError("PutObject", err, c.config.Bucket, key)
	}

	c.logger.WithContext(ctx).Debug("object uploaded",
		zap.String("object", key),
		zap.Int64("size", info.Size),
		zap.String("etag", info.ETag),
	)
	return nil
}

// GetObject opens an object for reading. A missing object is reported as ErrObjectNotFound.
func (c *Client) GetObject(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	key := c.ObjectKey(name)
	obj, err := c.client.GetObject(ctx, c.config.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, WrapError("GetObject", err, c.config.Bucket, key)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller starts reading
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if IsNotFound(err) {
			return nil, WrapError("GetObject", ErrObjectNotFound, c.config.Bucket, key)
		}
		return nil, WrapError("GetObject", err, c.config.Bucket, key)
	}
	return obj, nil
}

// StatObject returns object metadata
func (c *Client) StatObject(ctx context.Context, name string) (ObjectInfo, error) {
	if err := c.checkClosed(); err != nil {
		return ObjectInfo{}, err
	}

	key := c.ObjectKey(name)
	info, err := c.client.StatObject(ctx, c.config.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if IsNotFound(err) {
			return ObjectInfo{}, WrapError("StatObject", ErrObjectNotFound, c.config.Bucket, key)
		}
		return ObjectInfo{}, WrapError("StatObject", err, c.config.Bucket, key)
	}

	return ObjectInfo{
		Key:          name,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// RemoveObject deletes an object. S3 deletes are idempotent so a missing object is not an error here.
func (c *Client) RemoveObject(ctx context.Context, name string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	key := c.ObjectKey(name)
	if err := c.client.RemoveObject(ctx, c.config.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return WrapError("RemoveObject", err, c.config.Bucket, key)
	}

	c.logger.WithContext(ctx).Debug("object removed", zap.String("object", key))
	return nil
}
