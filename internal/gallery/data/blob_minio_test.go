package data

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/pkg/minio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	data        []byte
	contentType string
}

type fakeObjectStorage struct {
	mu            sync.Mutex
	bucketCreated bool
	objects       map[string]fakeObject
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: make(map[string]fakeObject)}
}

func (f *fakeObjectStorage) EnsureBucket(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bucketCreated = true
	return nil
}

func (f *fakeObjectStorage) PutObject(_ context.Context, name string, reader io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.bucketCreated {
		return errors.New("NoSuchBucket")
	}
	f.objects[name] = fakeObject{data: data, contentType: contentType}
	return nil
}

func (f *fakeObjectStorage) GetObject(_ context.Context, name string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[name]
	if !ok {
		return nil, minio.WrapError("GetObject", minio.ErrObjectNotFound, "gallery", name)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (f *fakeObjectStorage) StatObject(_ context.Context, name string) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[name]
	if !ok {
		return minio.ObjectInfo{}, minio.WrapError("StatObject", minio.ErrObjectNotFound, "gallery", name)
	}
	return minio.ObjectInfo{Key: name, Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (f *fakeObjectStorage) RemoveObject(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, name)
	return nil
}

func (f *fakeObjectStorage) ListObjects(context.Context) ([]minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]minio.ObjectInfo, 0, len(f.objects))
	for name, obj := range f.objects {
		out = append(out, minio.ObjectInfo{Key: name, Size: int64(len(obj.data)), LastModified: time.Unix(0, 0)})
	}
	return out, nil
}

// 最小的 PNG 文件头
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestObjectBlobStore_Lifecycle(t *testing.T) {
	fake := newFakeObjectStorage()
	store := newObjectBlobStore(fake, "s3://gallery/uploads")
	ctx := context.Background()

	assert.Equal(t, "s3://gallery/uploads", store.Location())

	require.NoError(t, store.EnsureDirectory(ctx))
	require.NoError(t, store.Write(ctx, "X_cat.png", pngHeader))
	assert.Equal(t, "image/png", fake.objects["X_cat.png"].contentType)

	rc, err := store.Open(ctx, "X_cat.png")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, pngHeader, data)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "X_cat.png", infos[0].Name)

	require.NoError(t, store.Remove(ctx, "X_cat.png"))
	assert.Empty(t, fake.objects)
}

func TestObjectBlobStore_MissingObject(t *testing.T) {
	store := newObjectBlobStore(newFakeObjectStorage(), "s3://gallery/uploads")
	ctx := context.Background()

	assert.ErrorIs(t, store.Remove(ctx, "ghost.jpg"), biz.ErrBlobNotFound)

	_, err := store.Open(ctx, "ghost.jpg")
	assert.ErrorIs(t, err, biz.ErrBlobNotFound)
}

func TestObjectBlobStore_WithSynchronizer(t *testing.T) {
	fake := newFakeObjectStorage()
	uc := biz.NewEntryUseCase(newTestRepo(t), newObjectBlobStore(fake, "s3://gallery"), nil, nil)
	ctx := context.Background()

	id, err := uc.Create(ctx, biz.NewEntry{Title: "Miau", Rating: 5, Filename: "cat.jpg", Bytes: "aGVsbG8="})
	require.NoError(t, err)
	assert.True(t, fake.bucketCreated)
	assert.Contains(t, fake.objects, id+"_cat.jpg")

	require.NoError(t, uc.Remove(ctx, id))
	assert.Empty(t, fake.objects)
}
