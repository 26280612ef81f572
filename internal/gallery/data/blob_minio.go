package data

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/pkg/minio"
)

// objectStorage *minio.Client 中 ObjectBlobStore 用到的部分
type objectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutObject(ctx context.Context, name string, reader io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, name string) (io.ReadCloser, error)
	StatObject(ctx context.Context, name string) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, name string) error
	ListObjects(ctx context.Context) ([]minio.ObjectInfo, error)
}

// ObjectBlobStore 基于 MinIO/S3 的文件存储，bucket 充当上传目录
type ObjectBlobStore struct {
	store    objectStorage
	location string
}

// NewObjectBlobStore 创建对象存储
func NewObjectBlobStore(client *minio.Client) *ObjectBlobStore {
	cfg := client.Config()
	return newObjectBlobStore(client, fmt.Sprintf("s3://%s/%s", cfg.Bucket, cfg.Prefix))
}

func newObjectBlobStore(store objectStorage, location string) *ObjectBlobStore {
	return &ObjectBlobStore{store: store, location: location}
}

func (s *ObjectBlobStore) Location() string {
	return s.location
}

func (s *ObjectBlobStore) EnsureDirectory(ctx context.Context) error {
	return s.store.EnsureBucket(ctx)
}

func (s *ObjectBlobStore) Write(ctx context.Context, name string, data []byte) error {
	contentType := mimetype.Detect(data).String()
	return s.store.PutObject(ctx, name, bytes.NewReader(data), int64(len(data)), contentType)
}

// Remove S3 删除是幂等的，先 Stat 判断对象是否存在
func (s *ObjectBlobStore) Remove(ctx context.Context, name string) error {
	if _, err := s.store.StatObject(ctx, name); err != nil {
		if minio.IsNotFound(err) {
			return fmt.Errorf("%s: %w", name, biz.ErrBlobNotFound)
		}
		return err
	}
	return s.store.RemoveObject(ctx, name)
}

func (s *ObjectBlobStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.store.GetObject(ctx, name)
	if err != nil {
		if minio.IsNotFound(err) {
			return nil, fmt.Errorf("%s: %w", name, biz.ErrBlobNotFound)
		}
		return nil, err
	}
	return rc, nil
}

func (s *ObjectBlobStore) List(ctx context.Context) ([]biz.BlobInfo, error) {
	objects, err := s.store.ListObjects(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]biz.BlobInfo, len(objects))
	for i, obj := range objects {
		infos[i] = biz.BlobInfo{
			Name:    obj.Key,
			Size:    obj.Size,
			ModTime: obj.LastModified,
		}
	}
	return infos, nil
}

var _ biz.BlobStore = (*ObjectBlobStore)(nil)
