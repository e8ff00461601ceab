package memory

import (
	"context"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type userRepo struct {
	access
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.write(func(st *state) error {
		for _, u := range st.users {
			if u.Email == user.Email {
				return repo.ErrDuplicate
			}
		}
		st.userSeq++
		now := r.s.now()
		user.ID = st.userSeq
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	var out *model.User
	err := r.read(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return repo.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var out *model.User
	err := r.read(func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				found := u
				out = &found
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (r *userRepo) List(ctx context.Context, offset int, limit int) ([]model.User, error) {
	var out []model.User
	err := r.read(func(st *state) error {
		all := make([]model.User, 0, len(st.users))
		for _, id := range sortedKeys(st.users) {
			all = append(all, st.users[id])
		}
		out = page(all, offset, limit)
		return nil
	})
	return out, err
}
