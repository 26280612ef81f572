package redis

import "errors"

// 预定义错误
var (
	ErrLockNotAcquired = errors.New("redis: lock is held by another owner")
	ErrLockNotHeld     = errors.New("redis: lock token mismatch or lock expired")
)
