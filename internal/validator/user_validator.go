package validator

import (
	"net/mail"
	"unicode/utf8"

	"ecshop/internal/usecase"
)

const (
	passwordMin = 8
	passwordMax = 100
	usernameMin = 3
	usernameMax = 50
	fullNameMax = 100
)

type userValidator struct{}

func NewUserValidator() usecase.UserValidator {
	return &userValidator{}
}

// 会員登録の入力を検証
func (v *userValidator) ValidateRegister(in usecase.RegisterInput) error {
	if !isEmail(in.Email) {
		return invalid("email is not a valid address")
	}

	n := utf8.RuneCountInString(in.Username)
	if n < usernameMin || n > usernameMax {
		return invalid("username must be %d-%d characters", usernameMin, usernameMax)
	}

	n = utf8.RuneCountInString(in.FullName)
	if n < 1 || n > fullNameMax {
		return invalid("full_name must be 1-%d characters", fullNameMax)
	}

	n = utf8.RuneCountInString(in.Password)
	if n < passwordMin || n > passwordMax {
		return invalid("password must be %d-%d characters", passwordMin, passwordMax)
	}
	return nil
}

// ログインの入力を検証（必須だけ）
func (v *userValidator) ValidateLogin(in usecase.LoginInput) error {
	if in.Email == "" || in.Password == "" {
		return invalid("email and password are required")
	}
	return nil
}

func isEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	// "Name <a@b>" 形式は受け付けない
	return err == nil && addr.Address == s
}
