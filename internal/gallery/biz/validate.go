package biz

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IsImageName 文件名是否带 jpg/jpeg/png 扩展名
func IsImageName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return imageExtensions[ext] && len(name) > len(ext)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 带路径的文件名无法按 <id>_<name> 存取
	_ = v.RegisterValidation("imagename", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return IsImageName(name) && IsSafeFilename(name)
	})
	return v
}

type newEntryRules struct {
	Title    string `validate:"required"`
	Rating   int    `validate:"min=1,max=10"`
	Filename string `validate:"required,imagename"`
}

type updateRules struct {
	Title    string `validate:"required"`
	Rating   int    `validate:"min=1,max=10"`
	Filename string `validate:"omitempty,imagename"`
}

var fieldKeys = map[string]string{
	"Title":    FieldTitle,
	"Rating":   FieldRating,
	"Filename": FieldPicture,
}

var fieldMessages = map[string]string{
	FieldTitle:   MsgTitleRequired,
	FieldRating:  MsgRatingRange,
	FieldPicture: MsgPictureRequired,
}

func collect(rules interface{}) ValidationError {
	ve := ValidationError{}
	err := validate.Struct(rules)
	if err == nil {
		return ve
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		ve[FieldPicture] = MsgPictureRequired
		return ve
	}
	for _, fe := range fieldErrs {
		key := fieldKeys[fe.StructField()]
		if key == "" {
			continue
		}
		ve[key] = fieldMessages[key]
	}
	return ve
}

// validateNewEntry 校验创建输入并解码文件内容
func validateNewEntry(in NewEntry) ([]byte, error) {
	ve := collect(newEntryRules{Title: in.Title, Rating: in.Rating, Filename: in.Filename})

	var data []byte
	if in.Bytes == "" {
		ve[FieldPicture] = MsgPictureRequired
	} else if decoded, err := DecodeBytes(in.Bytes); err != nil || len(decoded) == 0 {
		ve[FieldPicture] = MsgPictureRequired
	} else {
		data = decoded
	}

	if len(ve) > 0 {
		return nil, ve
	}
	return data, nil
}

// validateEntryUpdate 校验更新输入；未提供 Bytes 时返回 nil 内容
func validateEntryUpdate(in EntryUpdate) ([]byte, error) {
	ve := collect(updateRules{Title: in.Title, Rating: in.Rating, Filename: in.Filename})

	var data []byte
	if in.Bytes != "" {
		decoded, err := DecodeBytes(in.Bytes)
		if err != nil || len(decoded) == 0 {
			ve[FieldPicture] = MsgPictureRequired
		} else {
			data = decoded
		}
	}

	if len(ve) > 0 {
		return nil, ve
	}
	return data, nil
}
