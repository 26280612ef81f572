package workerpool

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// TaskResult 任务结果
type TaskResult struct {
	Data  interface{}
	Error error
}

// Config Worker Pool 配置
type Config struct {
	Workers int `mapstructure:"workers"` // worker 数量上限
	// Nonblocking 为 true 时池满立即返回错误，否则等待空闲 worker
	Nonblocking     bool          `mapstructure:"nonblocking"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:         4,
		Nonblocking:     false,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Statistics 统计信息
type Statistics struct {
	Submitted int64
	Completed int64
	Failed    int64
	Running   int // 正在运行的 worker 数
}

// Pool 基于 ants 的有界 worker pool
type Pool struct {
	pool   *ants.Pool
	config *Config

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64

	logger *logger.Logger
}

// New 创建 Worker Pool
func New(config *Config, log *logger.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("workers must be > 0, got %d", config.Workers)
	}
	if log == nil {
		log = logger.L()
	}
	log = log.Named("workerpool")

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithNonblocking(config.Nonblocking),
		ants.WithPanicHandler(func(v interface{}) {
			log.Error("worker panic", zap.Any("error", v))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	return &Pool{
		pool:   antsPool,
		config: config,
		logger: log,
	}, nil
}

// Submit 提交任务
func (p *Pool) Submit(task func()) error {
	p.submitted.Add(1)
	err := p.pool.Submit(func() {
		defer p.completed.Add(1)
		task()
	})
	if err != nil {
		p.failed.Add(1)
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return err
	}
	return nil
}

// SubmitWithResult 提交任务并获取结果；提交失败时结果通道直接带回错误
func (p *Pool) SubmitWithResult(task func() (interface{}, error)) <-chan TaskResult {
	resultCh := make(chan TaskResult, 1)

	err := p.Submit(func() {
		defer close(resultCh)
		defer func() {
			if r := recover(); r != nil {
				p.failed.Add(1)
				resultCh <- TaskResult{Error: fmt.Errorf("task panicked: %v", r)}
			}
		}()

		data, err := task()
		if err != nil {
			p.failed.Add(1)
		}
		resultCh <- TaskResult{Data: data, Error: err}
	})
	if err != nil {
		resultCh <- TaskResult{Error: err}
		close(resultCh)
	}

	return resultCh
}

// Stats 统计信息
func (p *Pool) Stats() Statistics {
	return Statistics{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Running:   p.pool.Running(),
	}
}

// Shutdown 等待运行中的任务结束后关闭
func (p *Pool) Shutdown() {
	if err := p.pool.ReleaseTimeout(p.config.ShutdownTimeout); err != nil {
		p.logger.Warn("worker pool shutdown timed out", zap.Error(err))
	}
}
