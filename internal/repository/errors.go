package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// unique制約違反（email / idempotency_key など）
	ErrDuplicate = errors.New("duplicate key")

	// 条件付き更新で対象の状態が変わっていた
	ErrStateChanged = errors.New("state changed")
)
