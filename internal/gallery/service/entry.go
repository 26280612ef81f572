package service

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/gallery/classifier"
	apperrors "github.com/lk2023060901/cat-gallery/internal/pkg/errors"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/pkg/response"
	"go.uber.org/zap"
)

// Classifier 保存前判断图片是否是猫
type Classifier interface {
	Enabled() bool
	Classify(ctx context.Context, filename string, data []byte) (classifier.Result, error)
}

// maxUploadBytes multipart 上传大小上限
const maxUploadBytes = 20 << 20

type EntryService struct {
	uc         *biz.EntryUseCase
	importer   *biz.ImportUseCase
	classifier Classifier
	logger     *logger.Logger
}

func NewEntryService(uc *biz.EntryUseCase, importer *biz.ImportUseCase, cls Classifier, log *logger.Logger) *EntryService {
	if log == nil {
		log = logger.L()
	}
	return &EntryService{
		uc:         uc,
		importer:   importer,
		classifier: cls,
		logger:     log.Named("entry-service"),
	}
}

// CreateEntry 创建条目（JSON 或 multipart）
func (s *EntryService) CreateEntry(c *gin.Context) {
	req, err := bindEntry(c)
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInvalidParams, err.Error()))
		return
	}

	ctx := c.Request.Context()
	if err := s.checkCat(ctx, req); err != nil {
		s.fail(c, err)
		return
	}

	id, err := s.uc.Create(ctx, biz.NewEntry{
		Title:       req.Title,
		Description: req.Description,
		Rating:      req.Rating,
		Filename:    req.Filename,
		Bytes:       req.Bytes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	entry, err := s.uc.Get(ctx, id)
	if err != nil || entry == nil {
		response.Created(c, gin.H{"id": id})
		return
	}
	response.Created(c, toEntryResponse(entry))
}

// ListEntries 按搜索词、评分区间和排序列出条目
func (s *EntryService) ListEntries(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInvalidParams, err.Error()))
		return
	}

	entries, err := s.uc.GetList(c.Request.Context(), q.Filter())
	if err != nil {
		s.fail(c, err)
		return
	}

	items := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = toEntryResponse(e)
	}
	response.Success(c, gin.H{
		"items": items,
		"total": len(items),
	})
}

// GetEntry 获取条目
func (s *EntryService) GetEntry(c *gin.Context) {
	entry, err := s.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if entry == nil {
		response.ErrorWithCode(c, apperrors.ErrEntryNotFound)
		return
	}
	response.Success(c, toEntryResponse(entry))
}

// UpdateEntry 更新条目；Bytes 为空时只改元数据
func (s *EntryService) UpdateEntry(c *gin.Context) {
	id := c.Param("id")
	req, err := bindEntry(c)
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInvalidParams, err.Error()))
		return
	}

	ctx := c.Request.Context()
	if err := s.checkCat(ctx, req); err != nil {
		s.fail(c, err)
		return
	}

	err = s.uc.Update(ctx, biz.EntryUpdate{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Rating:      req.Rating,
		Filename:    req.Filename,
		Bytes:       req.Bytes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	// Update 对不存在的条目静默返回，这里补 404
	entry, err := s.uc.Get(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if entry == nil {
		response.ErrorWithCode(c, apperrors.ErrEntryNotFound)
		return
	}
	response.Success(c, toEntryResponse(entry))
}

// DeleteEntry 删除条目，重复删除同样返回 204
func (s *EntryService) DeleteEntry(c *gin.Context) {
	if err := s.uc.Remove(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	response.NoContent(c)
}

// ImportDraft 从 thecatapi 取一张图片作为草稿，不保存
func (s *EntryService) ImportDraft(c *gin.Context) {
	draft, err := s.importer.Draft(c.Request.Context())
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrImportFailed))
		return
	}
	response.Success(c, DraftResponse{
		Title:       draft.Title,
		Description: draft.Description,
		Rating:      draft.Rating,
		Filename:    draft.Filename,
		Bytes:       draft.Bytes,
	})
}

// ImportEntries 批量导入并保存
func (s *EntryService) ImportEntries(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil || count < 1 || count > biz.MaxImportCount {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "count must be between 1 and "+strconv.Itoa(biz.MaxImportCount))
		return
	}

	report, err := s.importer.Import(c.Request.Context(), count)
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrImportFailed))
		return
	}
	response.Created(c, gin.H{
		"ids":    report.IDs,
		"failed": len(report.Errors),
	})
}

// ServeImage 输出上传目录中的图片
func (s *EntryService) ServeImage(c *gin.Context) {
	rc, err := s.uc.OpenPicture(c.Request.Context(), c.Param("filename"))
	switch {
	case errors.Is(err, biz.ErrInvalidFilename):
		response.ErrorWithCode(c, apperrors.ErrBadRequest, "invalid filename")
		return
	case errors.Is(err, biz.ErrBlobNotFound):
		response.ErrorWithCode(c, apperrors.ErrImageNotFound)
		return
	case err != nil:
		s.fail(c, err)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

func (s *EntryService) RegisterRoutes(api *gin.RouterGroup, root gin.IRoutes) {
	entries := api.Group("/entries")
	{
		entries.POST("", s.CreateEntry)
		entries.GET("", s.ListEntries)
		entries.GET("/import", s.ImportDraft)
		entries.POST("/import", s.ImportEntries)
		entries.GET("/:id", s.GetEntry)
		entries.PUT("/:id", s.UpdateEntry)
		entries.DELETE("/:id", s.DeleteEntry)
	}
	root.GET("/images/:filename", s.ServeImage)
}

// checkCat 有新文件且配置了分类服务时，非猫图片返回 picture 字段错误
func (s *EntryService) checkCat(ctx context.Context, req EntryRequest) error {
	if req.Bytes == "" || s.classifier == nil || !s.classifier.Enabled() {
		return nil
	}
	data, err := biz.DecodeBytes(req.Bytes)
	if err != nil || len(data) == 0 {
		// 由 biz 层给出字段错误
		return nil
	}

	result, err := s.classifier.Classify(ctx, req.Filename, data)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrClassifierFailed)
	}
	if !result.IsCat {
		logger.FromContext(ctx).Info("picture rejected by classifier",
			zap.String("filename", req.Filename),
			zap.Float64("cat_probability", result.CatProbability),
		)
		return biz.ValidationError{biz.FieldPicture: biz.MsgNotACat}
	}
	return nil
}

func (s *EntryService) fail(c *gin.Context, err error) {
	if ve, ok := biz.AsValidationError(err); ok {
		response.HandleError(c, apperrors.WithFields(apperrors.ErrEntryInvalid, ve))
		return
	}

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		response.HandleError(c, err)
	case errors.Is(err, biz.ErrLockBusy):
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrServiceUnavail))
	default:
		s.logger.WithContext(c.Request.Context()).Error("entry operation failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrStorageFailed))
	}
}

// bindEntry 解析 JSON 或 multipart（文件字段 picture）
func bindEntry(c *gin.Context) (EntryRequest, error) {
	var req EntryRequest
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		err := c.ShouldBindJSON(&req)
		return req, err
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if err := c.ShouldBind(&req); err != nil {
		return req, err
	}

	file, header, err := c.Request.FormFile("picture")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return req, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return req, err
	}
	req.Bytes = base64.StdEncoding.EncodeToString(data)
	if req.Filename == "" {
		req.Filename = header.Filename
	}
	return req, nil
}
