package biz

import (
	"context"
	"io"
	"time"
)

// Entry 画廊条目（不含文件内容）
type Entry struct {
	ID          string
	Title       string
	Description string
	Rating      int
	Filename    string // <id>_<原始文件名>
	Hash        string // 文件内容 SHA-256 的 base64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEntry 创建条目的输入
type NewEntry struct {
	Title       string
	Description string
	Rating      int
	Filename    string // 上传时的原始文件名
	Bytes       string // base64 编码的文件内容
}

// EntryUpdate 更新条目的输入，Bytes 为空表示不替换文件
type EntryUpdate struct {
	ID          string
	Title       string
	Description string
	Rating      int
	Filename    string
	Bytes       string
}

// SortOrder 列表排序方式
type SortOrder string

const (
	SortAlphaAsc   SortOrder = "alpha_asc"
	SortAlphaDesc  SortOrder = "alpha_desc"
	SortRatingAsc  SortOrder = "rating_asc"
	SortRatingDesc SortOrder = "rating_desc"
)

// Valid 是否为已知排序方式
func (s SortOrder) Valid() bool {
	switch s {
	case SortAlphaAsc, SortAlphaDesc, SortRatingAsc, SortRatingDesc:
		return true
	}
	return false
}

const (
	MinRating = 1
	MaxRating = 10
)

// SearchFilter 列表过滤条件
type SearchFilter struct {
	Search    string    // 匹配标题或描述
	MinRating int       // 闭区间下界
	MaxRating int       // 闭区间上界
	Sort      SortOrder // 未知值不排序
}

// DefaultFilter 默认过滤条件：全部评分，按标题升序
func DefaultFilter() SearchFilter {
	return SearchFilter{
		Search:    "",
		MinRating: MinRating,
		MaxRating: MaxRating,
		Sort:      SortAlphaAsc,
	}
}

// EntryRepo 条目元数据仓储（entries 表）
type EntryRepo interface {
	Insert(ctx context.Context, entry *Entry) error
	// FindByID 未找到时返回 (nil, nil)
	FindByID(ctx context.Context, id string) (*Entry, error)
	UpdateByID(ctx context.Context, id string, entry *Entry) error
	DeleteByID(ctx context.Context, id string) error
	List(ctx context.Context, filter SearchFilter) ([]*Entry, error)
	ListFilenames(ctx context.Context) ([]string, error)
}

// BlobInfo 存储中的文件
type BlobInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// BlobStore 文件存储，所有文件平铺在同一目录（或 bucket 前缀）下
type BlobStore interface {
	// EnsureDirectory 目录不存在时递归创建
	EnsureDirectory(ctx context.Context) error
	Write(ctx context.Context, name string, data []byte) error
	// Remove 文件不存在时返回 ErrBlobNotFound
	Remove(ctx context.Context, name string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context) ([]BlobInfo, error)
	// Location 上传目录（本地路径或 s3://bucket/prefix）
	Location() string
}

// Locker 按条目 ID 互斥执行
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}
