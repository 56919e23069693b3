package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/account"
)

type accountRepo struct {
	s *Store
}

func (r accountRepo) CreateUser(ctx context.Context, u *account.User) (*account.User, error) {
	var created account.User
	err := r.s.do(ctx, func(st *state) error {
		for _, other := range st.users {
			if other.Email == u.Email {
				return account.ErrEmailTaken
			}
		}
		created = *u
		if created.ID == uuid.Nil {
			created.ID = uuid.New()
		}
		created.CreatedAt = r.s.now()
		created.UpdatedAt = created.CreatedAt
		st.users[created.ID] = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r accountRepo) CreateProvider(ctx context.Context, p *account.Provider) error {
	return r.s.do(ctx, func(st *state) error {
		for _, other := range st.providers {
			if other.Email == p.Email {
				return account.ErrEmailTaken
			}
		}
		created := *p
		if created.ID == uuid.Nil {
			created.ID = uuid.New()
		}
		created.CreatedAt = r.s.now()
		st.providers[created.ID] = created
		return nil
	})
}

func (r accountRepo) GetUserByEmail(ctx context.Context, email string) (*account.User, error) {
	var found *account.User
	err := r.s.do(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				found = &u
				return nil
			}
		}
		return account.ErrUserNotFound
	})
	return found, err
}

func (r accountRepo) IsProvider(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.s.do(ctx, func(st *state) error {
		_, exists = st.providers[id]
		return nil
	})
	return exists, err
}
