package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成。emailが重複していたらErrDuplicate
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。なければErrNotFound
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。なければErrNotFound
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//id順の一覧
	List(ctx context.Context, offset int, limit int) ([]model.User, error)
}
