package biz

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"go.uber.org/zap"
)

// EntryUseCase 条目与文件的同步逻辑：哈希、文件名、文件存储、元数据存储保持一致
type EntryUseCase struct {
	repo   EntryRepo
	blobs  BlobStore
	locker Locker
	newID  func() string
	logger *logger.Logger
}

// NewEntryUseCase 创建条目用例，locker 为 nil 时使用进程内锁
func NewEntryUseCase(repo EntryRepo, blobs BlobStore, locker Locker, log *logger.Logger) *EntryUseCase {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if log == nil {
		log = logger.L()
	}
	return &EntryUseCase{
		repo:   repo,
		blobs:  blobs,
		locker: locker,
		newID:  func() string { return uuid.New().String() },
		logger: log.Named("gallery"),
	}
}

// UploadFolder 上传目录，供图片路由使用
func (uc *EntryUseCase) UploadFolder() string {
	return uc.blobs.Location()
}

// Create 创建条目：先写文件再写记录，返回新 ID
func (uc *EntryUseCase) Create(ctx context.Context, in NewEntry) (string, error) {
	data, err := validateNewEntry(in)
	if err != nil {
		return "", err
	}

	id := uc.newID()
	entry := &Entry{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Rating:      in.Rating,
		Filename:    DeriveFilename(id, in.Filename),
		Hash:        Digest(data),
	}
	log := uc.logger.WithContext(logger.WithEntryID(ctx, id))

	if err := uc.blobs.EnsureDirectory(ctx); err != nil {
		return "", fmt.Errorf("ensure upload folder: %w", err)
	}
	if err := uc.blobs.Write(ctx, entry.Filename, data); err != nil {
		return "", fmt.Errorf("write blob %s: %w", entry.Filename, err)
	}

	// 插入失败时文件成为孤儿，由 sweeper 回收
	if err := uc.repo.Insert(ctx, entry); err != nil {
		log.Error("entry insert failed after blob write", zap.String("filename", entry.Filename), zap.Error(err))
		return "", fmt.Errorf("insert entry: %w", err)
	}

	log.Info("entry created", zap.String("filename", entry.Filename), zap.Int("size", len(data)))
	return id, nil
}

// Get 查询条目，不存在时返回 (nil, nil)
func (uc *EntryUseCase) Get(ctx context.Context, id string) (*Entry, error) {
	if id == "" {
		return nil, nil
	}
	entry, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find entry: %w", err)
	}
	return entry, nil
}

// Update 更新元数据；仅当新内容哈希不同才替换文件
func (uc *EntryUseCase) Update(ctx context.Context, in EntryUpdate) error {
	if in.ID == "" {
		uc.logger.WithContext(ctx).Info("update skipped: no entry id", zap.String("op", "update"))
		return nil
	}

	data, err := validateEntryUpdate(in)
	if err != nil {
		return err
	}

	ctx = logger.WithEntryID(ctx, in.ID)
	return uc.locker.WithLock(ctx, in.ID, func() error {
		return uc.update(ctx, in, data)
	})
}

func (uc *EntryUseCase) update(ctx context.Context, in EntryUpdate, data []byte) error {
	log := uc.logger.WithContext(ctx)

	existing, err := uc.repo.FindByID(ctx, in.ID)
	if err != nil {
		return fmt.Errorf("find entry: %w", err)
	}
	if existing == nil {
		log.Info("update skipped: entry not found", zap.String("op", "update"))
		return nil
	}

	next := &Entry{
		ID:          existing.ID,
		Title:       in.Title,
		Description: in.Description,
		Rating:      in.Rating,
		Filename:    existing.Filename,
		Hash:        existing.Hash,
	}

	if data != nil {
		hash := Digest(data)
		if hash != existing.Hash {
			originalName := in.Filename
			if originalName == "" {
				_, originalName, _ = SplitFilename(existing.Filename)
			}
			filename := DeriveFilename(existing.ID, originalName)

			if err := uc.removeBlob(ctx, existing.Filename); err != nil {
				return err
			}
			if err := uc.blobs.EnsureDirectory(ctx); err != nil {
				return fmt.Errorf("ensure upload folder: %w", err)
			}
			if err := uc.blobs.Write(ctx, filename, data); err != nil {
				return fmt.Errorf("write blob %s: %w", filename, err)
			}

			log.Info("entry blob replaced",
				zap.String("old_filename", existing.Filename),
				zap.String("filename", filename),
			)
			next.Filename = filename
			next.Hash = hash
		}
	}

	if err := uc.repo.UpdateByID(ctx, existing.ID, next); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}

	log.Info("entry updated")
	return nil
}

// Remove 删除记录后删除文件；文件已不存在时视为成功
func (uc *EntryUseCase) Remove(ctx context.Context, id string) error {
	if id == "" {
		uc.logger.WithContext(ctx).Info("remove skipped: no entry id", zap.String("op", "remove"))
		return nil
	}

	ctx = logger.WithEntryID(ctx, id)
	return uc.locker.WithLock(ctx, id, func() error {
		log := uc.logger.WithContext(ctx)

		existing, err := uc.repo.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find entry: %w", err)
		}
		if existing == nil {
			log.Info("remove skipped: entry not found", zap.String("op", "remove"))
			return nil
		}

		if err := uc.repo.DeleteByID(ctx, id); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		if err := uc.removeBlob(ctx, existing.Filename); err != nil {
			return err
		}

		log.Info("entry removed", zap.String("filename", existing.Filename))
		return nil
	})
}

// GetList 按过滤条件列出条目
func (uc *EntryUseCase) GetList(ctx context.Context, filter SearchFilter) ([]*Entry, error) {
	entries, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (uc *EntryUseCase) removeBlob(ctx context.Context, filename string) error {
	err := uc.blobs.Remove(ctx, filename)
	if errors.Is(err, ErrBlobNotFound) {
		uc.logger.WithContext(ctx).Warn("backing file already missing", zap.String("filename", filename))
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove blob %s: %w", filename, err)
	}
	return nil
}

// OpenPicture 打开条目文件，文件名不能含路径
func (uc *EntryUseCase) OpenPicture(ctx context.Context, filename string) (io.ReadCloser, error) {
	if !IsSafeFilename(filename) {
		return nil, ErrInvalidFilename
	}
	return uc.blobs.Open(ctx, filename)
}
