package data

import (
	"context"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/pkg/database"
	"gorm.io/gorm"
)

// EntryPO entries 表模型
type EntryPO struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	Rating      int       `gorm:"not null;index"`
	Filename    string    `gorm:"size:512;not null"`
	Hash        string    `gorm:"size:64;not null"`
	CreatedAt   time.Time `gorm:"column:created;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated;autoUpdateTime"`
}

func (EntryPO) TableName() string {
	return "entries"
}

// EntryRepo 基于 gorm 的 biz.EntryRepo 实现
type EntryRepo struct {
	db *database.DB
}

func NewEntryRepo(db *database.DB) *EntryRepo {
	return &EntryRepo{db: db}
}

// Migrate 建表
func (r *EntryRepo) Migrate() error {
	return r.db.AutoMigrate(&EntryPO{})
}

func (r *EntryRepo) Insert(ctx context.Context, entry *biz.Entry) error {
	po := toPO(entry)
	if err := r.db.GetDB().WithContext(ctx).Create(po).Error; err != nil {
		return err
	}
	entry.CreatedAt = po.CreatedAt
	entry.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *EntryRepo) FindByID(ctx context.Context, id string) (*biz.Entry, error) {
	var po EntryPO
	if err := r.db.GetDB().WithContext(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return toEntry(&po), nil
}

// UpdateByID 覆盖 title/description/rating/filename/hash，零值同样写入
func (r *EntryRepo) UpdateByID(ctx context.Context, id string, entry *biz.Entry) error {
	return r.db.GetDB().WithContext(ctx).
		Model(&EntryPO{}).
		Where("id = ?", id).
		Select("title", "description", "rating", "filename", "hash", "updated").
		Updates(map[string]interface{}{
			"title":       entry.Title,
			"description": entry.Description,
			"rating":      entry.Rating,
			"filename":    entry.Filename,
			"hash":        entry.Hash,
			"updated":     time.Now().UTC(),
		}).Error
}

func (r *EntryRepo) DeleteByID(ctx context.Context, id string) error {
	return r.db.GetDB().WithContext(ctx).Where("id = ?", id).Delete(&EntryPO{}).Error
}

// List 标题或描述包含 search（不区分大小写），评分在闭区间内，按 sort 排序；空过滤条件返回全部
func (r *EntryRepo) List(ctx context.Context, filter biz.SearchFilter) ([]*biz.Entry, error) {
	var pos []EntryPO
	err := r.db.GetDB().WithContext(ctx).
		Scopes(
			database.ContainsAny(filter.Search, "title", "description"),
			ratingBetween(filter.MinRating, filter.MaxRating),
			orderBy(filter.Sort),
		).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*biz.Entry, len(pos))
	for i := range pos {
		entries[i] = toEntry(&pos[i])
	}
	return entries, nil
}

func (r *EntryRepo) ListFilenames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.GetDB().WithContext(ctx).Model(&EntryPO{}).Pluck("filename", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// ratingBetween 0 表示该端不限
func ratingBetween(min, max int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = database.WhereIf(min > 0, "rating >= ?", min)(db)
		return database.WhereIf(max > 0, "rating <= ?", max)(db)
	}
}

func orderBy(sort biz.SortOrder) func(db *gorm.DB) *gorm.DB {
	switch sort {
	case biz.SortAlphaAsc:
		return database.OrderBy("title", false)
	case biz.SortAlphaDesc:
		return database.OrderBy("title", true)
	case biz.SortRatingAsc:
		return database.OrderBy("rating", false)
	case biz.SortRatingDesc:
		return database.OrderBy("rating", true)
	}
	return func(db *gorm.DB) *gorm.DB { return db }
}

func toPO(e *biz.Entry) *EntryPO {
	return &EntryPO{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Rating:      e.Rating,
		Filename:    e.Filename,
		Hash:        e.Hash,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toEntry(po *EntryPO) *biz.Entry {
	return &biz.Entry{
		ID:          po.ID,
		Title:       po.Title,
		Description: po.Description,
		Rating:      po.Rating,
		Filename:    po.Filename,
		Hash:        po.Hash,
		CreatedAt:   po.CreatedAt,
		UpdatedAt:   po.UpdatedAt,
	}
}

var _ biz.EntryRepo = (*EntryRepo)(nil)
