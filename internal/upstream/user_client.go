package upstream

import (
	"context"
	"net/http"
	"strconv"
)

// User Directoryが返すユーザー
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	IsActive bool   `json:"is_active"`
}

type UserClient struct {
	baseClient
}

func NewUserClient(cfg Config) *UserClient {
	return &UserClient{baseClient: newBaseClient(cfg)}
}

// GET /{id}。いなければErrNotFound
func (c *UserClient) GetUser(ctx context.Context, userID int64) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/"+strconv.FormatInt(userID, 10), nil, nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}
