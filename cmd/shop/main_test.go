package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ecshop/internal/auth"
	"ecshop/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("USER_JWT_SECRET", "")

	out, err := run(t, "token", "--sub", "42", "--role", "admin")
	require.NoError(t, err)

	id, err := auth.NewJWTManager("cli-secret", time.Hour, nil).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, model.RoleAdmin, id.Role)
}

func TestTokenCmd_BadFlags(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("JWT_SECRET", "cli-secret")

	_, err := run(t, "token")
	assert.Error(t, err)

	_, err = run(t, "token", "--sub", "0")
	assert.Error(t, err)

	_, err = run(t, "token", "--sub", "1", "--role", "root")
	assert.Error(t, err)
}

func TestServiceArgs(t *testing.T) {
	_, err := run(t, "serve")
	assert.Error(t, err)

	_, err = run(t, "migrate", "inventory")
	assert.Error(t, err)
}

func TestMigrate_MemoryIsNoop(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("DATABASE_URL", "memory")
	t.Setenv("JWT_SECRET", "cli-secret")

	_, err := run(t, "migrate", "payment")
	assert.NoError(t, err)
}
