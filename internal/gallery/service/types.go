package service

import (
	"net/url"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
)

// EntryRequest 创建/更新请求，Bytes 为 base64 文件内容
type EntryRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Rating      int    `json:"rating" form:"rating"`
	Filename    string `json:"filename" form:"filename"`
	Bytes       string `json:"bytes" form:"bytes"`
}

// ListQuery 列表查询参数
type ListQuery struct {
	Search    string `form:"search"`
	MinRating *int   `form:"min_rating" binding:"omitempty,min=1,max=10"`
	MaxRating *int   `form:"max_rating" binding:"omitempty,min=1,max=10"`
	Sort      string `form:"sort" binding:"omitempty,oneof=alpha_asc alpha_desc rating_asc rating_desc"`
}

// Filter 转换为过滤条件，未给出的参数使用默认值
func (q ListQuery) Filter() biz.SearchFilter {
	filter := biz.DefaultFilter()
	filter.Search = q.Search
	if q.MinRating != nil {
		filter.MinRating = *q.MinRating
	}
	if q.MaxRating != nil {
		filter.MaxRating = *q.MaxRating
	}
	if q.Sort != "" {
		filter.Sort = biz.SortOrder(q.Sort)
	}
	return filter
}

// EntryResponse 条目响应
type EntryResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
	Filename    string `json:"filename"`
	Hash        string `json:"hash"`
	URL         string `json:"url"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// DraftResponse 导入草稿
type DraftResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
	Filename    string `json:"filename"`
	Bytes       string `json:"bytes"`
}

func toEntryResponse(e *biz.Entry) *EntryResponse {
	return &EntryResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Rating:      e.Rating,
		Filename:    e.Filename,
		Hash:        e.Hash,
		URL:         "/images/" + url.PathEscape(e.Filename),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}
