package minio

import (
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
)

var (
	ErrObjectNotFound   = errors.New("minio: object not found")
	ErrInvalidArgument  = errors.New("minio: invalid argument")
	ErrInvalidObjectKey = errors.New("minio: invalid object name")
	ErrClientClosed     = errors.New("minio: client is closed")
)

// Error represents a MinIO error with additional context
type Error struct {
	Op      string
	Err     error
	Bucket  string
	Object  string
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Bucket != "" && e.Object != "":
		return fmt.Sprintf("minio: %s failed for bucket=%s, object=%s: %v", e.Op, e.Bucket, e.Object, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("minio: %s failed for bucket=%s: %v", e.Op, e.Bucket, e.Err)
	case e.Message != "":
		return fmt.Sprintf("minio: %s failed: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("minio: %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the bucket or object is missing
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrObjectNotFound) {
		return true
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return minioErr.Code == "NoSuchBucket" ||
			minioErr.Code == "NoSuchKey" ||
			minioErr.StatusCode == 404
	}
	return false
}

// IsBucketAlreadyExists reports whether a MakeBucket failed because the bucket is there
func IsBucketAlreadyExists(err error) bool {
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return minioErr.Code == "BucketAlreadyExists" ||
			minioErr.Code == "BucketAlreadyOwnedByYou"
	}
	return false
}

// WrapError wraps an error with operation context
func WrapError(op string, err error, bucket, object string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err, Bucket: bucket, Object: object}
}

// WrapErrorWithMessage wraps an error with operation context and a message
func WrapErrorWithMessage(op string, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err, Message: message}
}
