package biz

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const filenameSeparator = "_"

// Digest 计算内容的 SHA-256，返回 base64 编码
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// DeriveFilename 生成存储文件名 <id>_<原始文件名>
func DeriveFilename(id, originalName string) string {
	return id + filenameSeparator + originalName
}

// SplitFilename 拆分存储文件名，返回所属条目 ID 和原始文件名
func SplitFilename(filename string) (id, originalName string, ok bool) {
	id, originalName, ok = strings.Cut(filename, filenameSeparator)
	if !ok || id == "" {
		return "", "", false
	}
	return id, originalName, true
}

// DecodeBytes 解码 base64 内容，兼容无填充的写法
func DecodeBytes(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(encoded); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

// IsSafeFilename 文件名非空且不含路径
func IsSafeFilename(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
