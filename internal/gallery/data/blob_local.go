package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"go.uber.org/zap"
)

// LocalBlobStore 本地目录文件存储
type LocalBlobStore struct {
	dir    string
	logger *logger.Logger
}

// NewLocalBlobStore 创建本地存储，目录在首次写入时创建
func NewLocalBlobStore(dir string, log *logger.Logger) *LocalBlobStore {
	if log == nil {
		log = logger.L()
	}
	return &LocalBlobStore{
		dir:    filepath.Clean(dir),
		logger: log.Named("blobs"),
	}
}

func (s *LocalBlobStore) Location() string {
	return s.dir
}

// EnsureDirectory 目录不存在时递归创建
func (s *LocalBlobStore) EnsureDirectory(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("upload folder %s is not a directory", s.dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	s.logger.WithContext(ctx).Info("upload folder created", zap.String("dir", s.dir))
	return nil
}

// Write 先写临时文件再重命名，避免读到半个文件
func (s *LocalBlobStore) Write(ctx context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	s.logger.WithContext(ctx).Debug("blob written", zap.String("name", name), zap.Int("size", len(data)))
	return nil
}

func (s *LocalBlobStore) Remove(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, biz.ErrBlobNotFound)
		}
		return err
	}
	s.logger.WithContext(ctx).Debug("blob removed", zap.String("name", name))
	return nil
}

func (s *LocalBlobStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, biz.ErrBlobNotFound)
		}
		return nil, err
	}
	return f, nil
}

// List 列出目录下的文件，跳过子目录和写入中的临时文件；目录不存在时返回空
func (s *LocalBlobStore) List(_ context.Context) ([]biz.BlobInfo, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	infos := make([]biz.BlobInfo, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".upload-") {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		infos = append(infos, biz.BlobInfo{
			Name:    de.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	return infos, nil
}

// path 拒绝带路径分隔符或 .. 的文件名
func (s *LocalBlobStore) path(name string) (string, error) {
	if !biz.IsSafeFilename(name) {
		return "", fmt.Errorf("%q: %w", name, biz.ErrInvalidFilename)
	}
	return filepath.Join(s.dir, name), nil
}

var _ biz.BlobStore = (*LocalBlobStore)(nil)
