package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/appointment-booking/internal/store"
)

type PgRepository struct {
	db *store.Postgres
}

func NewPgRepository(db *store.Postgres) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) CreateUser(ctx context.Context, u *User) (*User, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	created := *u
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at
	`, u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash).Scan(&created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		err = store.Classify(err)
		if errors.Is(err, store.ErrUniqueViolation) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return &created, nil
}

func (r *PgRepository) CreateProvider(ctx context.Context, p *Provider) error {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO service_providers (id, name, service_type, email, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, now())
	`, p.ID, p.Name, p.ServiceType, p.Email)
	if err != nil {
		err = store.Classify(err)
		if errors.Is(err, store.ErrUniqueViolation) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *PgRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	var u User
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT id, first_name, last_name, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, store.Classify(err)
	}

	return &u, nil
}

func (r *PgRepository) IsProvider(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := r.db.Deadline(ctx)
	defer cancel()

	var exists bool
	err := r.db.Conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM service_providers WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, store.Classify(err)
}
