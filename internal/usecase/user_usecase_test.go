package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ecshop/internal/auth"
	"ecshop/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserUsecase(t *testing.T) (*UserUsecase, *auth.JWTManager) {
	t.Helper()
	jwtm := auth.NewJWTManager("test-secret", time.Hour, nil)
	uc := NewUserUsecase(
		memory.NewStore().Users(),
		stubValidator{},
		auth.NewBcryptPasswordHasher(bcrypt.MinCost),
		auth.NewBcryptPasswordVerifier(),
		jwtm,
		discardLogger(),
	)
	return uc, jwtm
}

func alice() RegisterInput {
	return RegisterInput{Email: "Alice@Example.com ", Username: "alice", Password: "password123", FullName: "Alice"}
}

func TestUserRegister(t *testing.T) {
	uc, _ := newUserUsecase(t)

	out, err := uc.Register(context.Background(), alice())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", out.Email)
	assert.Equal(t, "USER", out.Role)
	assert.True(t, out.IsActive)
	assert.Positive(t, out.ID)

	_, err = uc.Register(context.Background(), alice())
	requireCode(t, err, CodeConflict)
}

func TestUserRegister_Malformed(t *testing.T) {
	uc, _ := newUserUsecase(t)
	uc.validator = stubValidator{err: errors.New("invalid input: password must be 8-100 characters")}

	_, err := uc.Register(context.Background(), alice())
	he := requireCode(t, err, CodeMalformed)
	assert.Contains(t, he.Message, "password")
}

func TestUserAuthenticate(t *testing.T) {
	uc, jwtm := newUserUsecase(t)
	registered, err := uc.Register(context.Background(), alice())
	require.NoError(t, err)

	tok, err := uc.Authenticate(context.Background(), LoginInput{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, 3600, tok.ExpiresIn)

	id, err := jwtm.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, id.UserID)
}

// 存在しないメールとパスワード違いは見分けられない
func TestUserAuthenticate_Symmetric(t *testing.T) {
	uc, _ := newUserUsecase(t)
	_, err := uc.Register(context.Background(), alice())
	require.NoError(t, err)

	_, errWrongPass := uc.Authenticate(context.Background(), LoginInput{Email: "alice@example.com", Password: "nope-nope"})
	_, errNoUser := uc.Authenticate(context.Background(), LoginInput{Email: "bob@example.com", Password: "password123"})

	a := requireCode(t, errWrongPass, CodeUnauthenticated)
	b := requireCode(t, errNoUser, CodeUnauthenticated)
	assert.Equal(t, a, b)
}

func TestUserGetAndList(t *testing.T) {
	uc, _ := newUserUsecase(t)

	first, err := uc.Register(context.Background(), alice())
	require.NoError(t, err)
	_, err = uc.Register(context.Background(), RegisterInput{Email: "bob@example.com", Username: "bob", Password: "password123", FullName: "Bob"})
	require.NoError(t, err)

	got, err := uc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = uc.Get(context.Background(), 999)
	requireCode(t, err, CodeNotFound)

	page, err := uc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bob", page[0].Username)

	_, err = uc.List(context.Background(), -1, 10)
	requireCode(t, err, CodeMalformed)
	_, err = uc.List(context.Background(), 0, 0)
	requireCode(t, err, CodeMalformed)
}
