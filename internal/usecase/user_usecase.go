package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// usecaseがValidatorに依存する約束
type UserValidator interface {
	ValidateRegister(in RegisterInput) error
	ValidateLogin(in LoginInput) error
}

// passwordは返さない
type UserOutput struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenOutput struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type UserUsecase struct {
	users     repo.UserRepository
	validator UserValidator
	hasher    PasswordHasher
	verifier  PasswordVerifier
	issuer    AccessTokenIssuer
	logger    *slog.Logger
}

func NewUserUsecase(
	users repo.UserRepository,
	validator UserValidator,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	logger *slog.Logger,
) *UserUsecase {
	return &UserUsecase{
		users:     users,
		validator: validator,
		hasher:    hasher,
		verifier:  verifier,
		issuer:    issuer,
		logger:    logger,
	}
}

func (u *UserUsecase) Register(ctx context.Context, in RegisterInput) (UserOutput, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)

	if err := u.validator.ValidateRegister(in); err != nil {
		return UserOutput{}, NewHTTPError(CodeMalformed, err.Error())
	}

	//email重複チェック（最終的にはunique制約で守る）
	_, err := u.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return UserOutput{}, NewHTTPError(CodeConflict, "email already registered")
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return UserOutput{}, errDB()
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return UserOutput{}, NewHTTPError(CodeInternal, "hash error")
	}

	user := &model.User{
		Email:        in.Email,
		Username:     in.Username,
		FullName:     in.FullName,
		PasswordHash: hashed,
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		//同時登録で先を越された
		if errors.Is(err, repo.ErrDuplicate) {
			return UserOutput{}, NewHTTPError(CodeConflict, "email already registered")
		}
		return UserOutput{}, errDB()
	}

	u.logger.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID))
	return toUserOutput(*user), nil
}

// メール不在もパスワード違いも同じ401にする
func (u *UserUsecase) Authenticate(ctx context.Context, in LoginInput) (TokenOutput, error) {
	in.Email = normalizeEmail(in.Email)
	if err := u.validator.ValidateLogin(in); err != nil {
		return TokenOutput{}, NewHTTPError(CodeMalformed, err.Error())
	}

	invalid := NewHTTPError(CodeUnauthenticated, "incorrect email or password")

	user, err := u.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, repo.ErrNotFound) {
		u.verifier.VerifyNothing(in.Password)
		return TokenOutput{}, invalid
	}
	if err != nil {
		return TokenOutput{}, errDB()
	}

	if !u.verifier.Verify(in.Password, user.PasswordHash) {
		return TokenOutput{}, invalid
	}
	//停止ユーザーも区別しない
	if !user.IsActive {
		return TokenOutput{}, invalid
	}

	token, _, err := u.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return TokenOutput{}, NewHTTPError(CodeInternal, "token error")
	}

	return TokenOutput{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(u.issuer.TTL().Seconds()),
	}, nil
}

func (u *UserUsecase) Get(ctx context.Context, userID int64) (UserOutput, error) {
	if userID <= 0 {
		return UserOutput{}, errNotFound("user")
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return UserOutput{}, errNotFound("user")
	}
	if err != nil {
		return UserOutput{}, errDB()
	}
	return toUserOutput(*user), nil
}

func (u *UserUsecase) List(ctx context.Context, offset int, limit int) ([]UserOutput, error) {
	if err := checkPage(offset, limit); err != nil {
		return []UserOutput{}, err
	}

	users, err := u.users.List(ctx, offset, limit)
	if err != nil {
		return []UserOutput{}, errDB()
	}

	outs := make([]UserOutput, 0, len(users))
	for _, usr := range users {
		outs = append(outs, toUserOutput(usr))
	}
	return outs, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserOutput(u model.User) UserOutput {
	return UserOutput{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FullName:  u.FullName,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
