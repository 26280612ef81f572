// Package sweeper removes upload files that no entry references any more.
//
// Create writes the file before inserting the record, so a failed insert or a
// crash in between leaves an orphan behind. Files younger than the grace period
// are never touched, which keeps the sweeper from racing in-flight creates.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Config 清理任务配置
type Config struct {
	Enabled     bool          `mapstructure:"enabled"`
	Cron        string        `mapstructure:"cron"` // 带秒的 cron 表达式
	GracePeriod time.Duration `mapstructure:"grace_period"`
	DryRun      bool          `mapstructure:"dry_run"`
}

// DefaultConfig 每天 3 点执行，一小时宽限期
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		Cron:        "0 0 3 * * *",
		GracePeriod: time.Hour,
	}
}

// Report 一次清理的结果
type Report struct {
	Scanned    int
	Referenced int
	Young      int      // 在宽限期内而跳过
	Foreign    int      // 不是 <id>_<name> 格式而跳过
	Orphans    []string // 已删除（DryRun 时为待删除）的文件
	DryRun     bool
}

type filenameLister interface {
	ListFilenames(ctx context.Context) ([]string, error)
}

// Sweeper 孤儿文件清理
type Sweeper struct {
	records filenameLister
	blobs   biz.BlobStore
	cfg     Config
	now     func() time.Time
	cron    *cron.Cron
	logger  *logger.Logger
}

// New 创建清理任务
func New(records filenameLister, blobs biz.BlobStore, cfg Config, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.L()
	}
	return &Sweeper{
		records: records,
		blobs:   blobs,
		cfg:     cfg,
		now:     time.Now,
		logger:  log.Named("sweeper"),
	}
}

// Sweep 执行一次清理
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	report := Report{DryRun: s.cfg.DryRun}

	// 先列文件再读记录：列出之后才插入的记录不会让它的文件被误删
	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list blobs: %w", err)
	}
	names, err := s.records.ListFilenames(ctx)
	if err != nil {
		return report, fmt.Errorf("list filenames: %w", err)
	}

	referenced := make(map[string]struct{}, len(names))
	for _, name := range names {
		referenced[name] = struct{}{}
	}

	log := s.logger.WithContext(ctx)
	cutoff := s.now().Add(-s.cfg.GracePeriod)
	var errs []error

	for _, blob := range blobs {
		report.Scanned++
		if _, ok := referenced[blob.Name]; ok {
			report.Referenced++
			continue
		}
		if _, _, ok := biz.SplitFilename(blob.Name); !ok {
			report.Foreign++
			continue
		}
		if blob.ModTime.After(cutoff) {
			report.Young++
			continue
		}

		if !s.cfg.DryRun {
			if err := s.blobs.Remove(ctx, blob.Name); err != nil && !errors.Is(err, biz.ErrBlobNotFound) {
				errs = append(errs, fmt.Errorf("remove %s: %w", blob.Name, err))
				continue
			}
		}
		report.Orphans = append(report.Orphans, blob.Name)
		log.Info("orphan blob", zap.String("filename", blob.Name), zap.Bool("dry_run", s.cfg.DryRun))
	}

	log.Info("sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("referenced", report.Referenced),
		zap.Int("orphans", len(report.Orphans)),
		zap.Int("young", report.Young),
		zap.Bool("dry_run", report.DryRun),
	)
	return report, errors.Join(errs...)
}

// Start 按 cron 表达式定期执行
func (s *Sweeper) Start() error {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			recoverWrapper(s.logger),
			cron.SkipIfStillRunning(cronLogger{s.logger}),
		),
	)
	if _, err := c.AddFunc(s.cfg.Cron, s.runScheduled); err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.cfg.Cron, err)
	}

	s.cron = c
	c.Start()
	s.logger.Info("sweeper scheduled", zap.String("cron", s.cfg.Cron), zap.Duration("grace_period", s.cfg.GracePeriod))
	return nil
}

// Stop 停止调度并等待正在执行的清理结束
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) runScheduled() {
	ctx := logger.WithRequestID(context.Background(), uuid.New().String())
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.WithContext(ctx).Error("scheduled sweep failed", zap.Error(err))
	}
}

func recoverWrapper(log *logger.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("sweep panicked",
						zap.Any("panic", r),
						zap.String("stack_trace", string(debug.Stack())),
					)
				}
			}()
			j.Run()
		})
	}
}

// cronLogger 把 cron 的日志接到 zap
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
