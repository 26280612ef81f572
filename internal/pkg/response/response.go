package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/cat-gallery/internal/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int               `json:"code"`              // 业务错误码（0表示成功）
	Message string            `json:"message,omitempty"` // 提示信息
	Data    interface{}       `json:"data"`              // 实际数据
	Errors  map[string]string `json:"errors,omitempty"`  // 按字段的校验错误
}

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusOK, Response{
		Code: apperrors.Success,
		Data: data,
	})
}

// Created 创建资源成功（201）
func Created(c *gin.Context, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(http.StatusCreated, Response{
		Code: apperrors.Success,
		Data: data,
	})
}

// NoContent 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HandleError 统一错误处理（使用AppError）
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := apperrors.ExtractCode(err)
	httpStatus := apperrors.GetHTTPStatus(code)

	// 5xx 不把底层错误暴露给调用方
	details := apperrors.GetDetails(err)
	if !apperrors.IsClientError(code) {
		details = ""
	}
	_ = c.Error(err)

	c.JSON(httpStatus, Response{
		Code:    code,
		Message: apperrors.FormatError(code, details),
		Data:    struct{}{},
		Errors:  apperrors.GetFields(err),
	})
}

// ErrorWithCode 使用错误码的错误响应
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	c.JSON(apperrors.GetHTTPStatus(code), Response{
		Code:    code,
		Message: apperrors.FormatError(code, details...),
		Data:    struct{}{},
	})
}
