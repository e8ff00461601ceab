package usecase

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// skip/limitの最低限チェック
func checkPage(offset int, limit int) error {
	if offset < 0 {
		return NewHTTPError(CodeMalformed, "invalid skip")
	}
	if limit < 1 || limit > MaxLimit {
		return NewHTTPError(CodeMalformed, "invalid limit")
	}
	return nil
}
