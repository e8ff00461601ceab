package upstream

import (
	"errors"
	"fmt"
)

var (
	// 相手が「存在しない」と答えた
	ErrNotFound = errors.New("upstream: not found")

	// つながらない・時間切れ・5xx
	ErrUnavailable = errors.New("upstream: unavailable")

	// それ以外の非2xx（入力を拒否された）
	ErrRejected = errors.New("upstream: rejected")
)

// 相手サービスが返したエラーレスポンス。errors.Isでは上の種別として扱える
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
	kind       error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v (status %d): %s", e.kind, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

func kindForStatus(status int) error {
	switch {
	case status == 404:
		return ErrNotFound
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrRejected
	}
}
