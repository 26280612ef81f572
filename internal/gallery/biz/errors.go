package biz

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrLockBusy     = errors.New("entry is locked by another request")

	// ErrInvalidFilename 文件名含路径分隔符或 ..
	ErrInvalidFilename = errors.New("invalid filename")
)

// 校验字段
const (
	FieldTitle   = "title"
	FieldPicture = "picture"
	FieldRating  = "rating"
)

// 校验提示
const (
	MsgTitleRequired   = "Bitte gib deinem Bild einen Titel"
	MsgPictureRequired = "Bitte lade ein Bild (jpg, jpeg, png) hoch"
	MsgRatingRange     = "Die Bewertung muss zwischen 1 und 10 liegen"
	MsgNotACat         = "Das Bild muss eine Katze enthalten"
)

// ValidationError 按字段的校验错误，如 {picture: "..."}
type ValidationError map[string]string

func (e ValidationError) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e[k]
	}
	return "invalid entry: " + strings.Join(parts, "; ")
}

// AsValidationError 提取校验错误
func AsValidationError(err error) (ValidationError, bool) {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
