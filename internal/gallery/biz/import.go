package biz

import (
	"context"
	"errors"
	"fmt"

	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/pkg/workerpool"
	"go.uber.org/zap"
)

// MaxImportCount 单次批量导入上限
const MaxImportCount = 20

// CatSource 随机猫图来源
type CatSource interface {
	Random(ctx context.Context) (NewEntry, error)
}

// ImportReport 批量导入结果
type ImportReport struct {
	IDs    []string
	Errors []error
}

// ImportUseCase 从外部来源导入条目
type ImportUseCase struct {
	entries *EntryUseCase
	source  CatSource
	pool    *workerpool.Pool
	logger  *logger.Logger
}

// NewImportUseCase 创建导入用例
func NewImportUseCase(entries *EntryUseCase, source CatSource, pool *workerpool.Pool, log *logger.Logger) *ImportUseCase {
	if log == nil {
		log = logger.L()
	}
	return &ImportUseCase{
		entries: entries,
		source:  source,
		pool:    pool,
		logger:  log.Named("import"),
	}
}

// Draft 取一张随机图片作为草稿，不保存
func (uc *ImportUseCase) Draft(ctx context.Context) (NewEntry, error) {
	draft, err := uc.source.Random(ctx)
	if err != nil {
		return NewEntry{}, fmt.Errorf("fetch draft: %w", err)
	}
	return draft, nil
}

// Import 并发导入 count 张图片并保存，单张失败不影响其它
func (uc *ImportUseCase) Import(ctx context.Context, count int) (ImportReport, error) {
	if count < 1 || count > MaxImportCount {
		return ImportReport{}, fmt.Errorf("count must be between 1 and %d, got %d", MaxImportCount, count)
	}

	results := make([]<-chan workerpool.TaskResult, count)
	for i := range results {
		results[i] = uc.pool.SubmitWithResult(func() (interface{}, error) {
			draft, err := uc.source.Random(ctx)
			if err != nil {
				return nil, fmt.Errorf("fetch: %w", err)
			}
			return uc.entries.Create(ctx, draft)
		})
	}

	var report ImportReport
	for _, ch := range results {
		res := <-ch
		if res.Error != nil {
			report.Errors = append(report.Errors, res.Error)
			continue
		}
		report.IDs = append(report.IDs, res.Data.(string))
	}

	stats := uc.pool.Stats()
	uc.logger.WithContext(ctx).Info("import finished",
		zap.Int("requested", count),
		zap.Int("imported", len(report.IDs)),
		zap.Int("failed", len(report.Errors)),
		zap.Int("pool_running", stats.Running),
		zap.Int64("pool_completed", stats.Completed),
	)

	if len(report.IDs) == 0 {
		return report, fmt.Errorf("import failed: %w", errors.Join(report.Errors...))
	}
	return report, nil
}
