package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-booking/internal/apperrors"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/logger"
	"github.com/hackgods/appointment-booking/internal/store"
	"github.com/hackgods/appointment-booking/internal/validation"
)

type Service struct {
	repo     Repository
	tx       store.TxRunner
	tokens   *auth.Tokens
	validate *validation.Validator
	log      *logger.Logger
}

func NewService(repo Repository, tx store.TxRunner, tokens *auth.Tokens, validate *validation.Validator, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		tokens:   tokens,
		validate: validate,
		log:      log,
	}
}

func invalid(err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.InvalidInput(verrs.Error())
	}
	return apperrors.InvalidInput(err.Error())
}

// Register creates the user and, for the provider role, the provider row
// under the same id. Both rows commit together.
func (s *Service) Register(ctx context.Context, in RegisterInput) (uuid.UUID, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return uuid.Nil, invalid(err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return uuid.Nil, apperrors.Internal("Failed to register user", err)
	}

	var userID uuid.UUID
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		u, err := s.repo.CreateUser(txCtx, &User{
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Email:        in.Email,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}
		userID = u.ID

		if in.Role != auth.RoleProvider {
			return nil
		}
		return s.repo.CreateProvider(txCtx, &Provider{
			ID:          u.ID,
			Name:        in.FirstName + " " + in.LastName,
			ServiceType: in.ServiceType,
			Email:       in.Email,
		})
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.log.Warn("registration rejected: email already exists", "email", in.Email)
			return uuid.Nil, apperrors.Conflict("Email already in use")
		}
		s.log.Error("registration failed", "email", in.Email, "error", err)
		return uuid.Nil, apperrors.FromStore(err, "Failed to register user")
	}

	s.log.Info("User registered", "user_id", userID, "role", in.Role)
	return userID, nil
}

// Login checks the credentials and issues a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	u, err := s.repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.log.Warn("login failed: unknown email", "email", in.Email)
			return nil, apperrors.Unauthorized("Invalid credentials")
		}
		s.log.Error("login lookup failed", "email", in.Email, "error", err)
		return nil, apperrors.FromStore(err, "Failed to log in")
	}

	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		s.log.Warn("login failed: wrong password", "user_id", u.ID)
		return nil, apperrors.Unauthorized("Invalid credentials")
	}

	role := auth.RoleUser
	provider, err := s.repo.IsProvider(ctx, u.ID)
	if err != nil {
		s.log.Error("provider lookup failed", "user_id", u.ID, "error", err)
		return nil, apperrors.FromStore(err, "Failed to log in")
	}
	if provider {
		role = auth.RoleProvider
	}

	token, err := s.tokens.Issue(auth.Caller{ID: u.ID, Role: role})
	if err != nil {
		return nil, apperrors.Internal("Error generating authentication token", err)
	}

	s.log.Info("User logged in", "user_id", u.ID, "role", role)
	return &LoginResult{Token: token, User: *u, Role: role}, nil
}
