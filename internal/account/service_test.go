package account_test

import (
	"context"
	"testing"

	"github.com/hackgods/appointment-booking/internal/account"
	"github.com/hackgods/appointment-booking/internal/apperrors"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/testutil"
)

func registration(email string, role auth.Role) account.RegisterInput {
	return account.RegisterInput{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           email,
		Password:        "secret_1",
		ConfirmPassword: "secret_1",
		Role:            role,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	tests := []struct {
		name string
		role auth.Role
	}{
		{"user", auth.RoleUser},
		{"provider", auth.RoleProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			ctx := context.Background()

			id, err := env.Accounts.Register(ctx, registration("Ada@Example.com", tt.role))
			if err != nil {
				t.Fatalf("register: %v", err)
			}

			isProvider, err := env.Store.Accounts().IsProvider(ctx, id)
			if err != nil {
				t.Fatalf("is provider: %v", err)
			}
			if isProvider != (tt.role == auth.RoleProvider) {
				t.Errorf("provider row present = %t for role %s", isProvider, tt.role)
			}

			// email is stored lowercased
			res, err := env.Accounts.Login(ctx, account.LoginInput{Email: "ada@example.com", Password: "secret_1"})
			if err != nil {
				t.Fatalf("login: %v", err)
			}
			if res.Role != tt.role || res.User.ID != id {
				t.Errorf("login result = %+v", res)
			}

			caller, err := env.Tokens.Parse(res.Token)
			if err != nil {
				t.Fatalf("parse issued token: %v", err)
			}
			if caller.ID != id || caller.Role != tt.role {
				t.Errorf("caller = %+v", caller)
			}
		})
	}
}

func TestRegisterRejects(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	if _, err := env.Accounts.Register(ctx, registration("taken@example.com", auth.RoleUser)); err != nil {
		t.Fatalf("register: %v", err)
	}

	mismatch := registration("new@example.com", auth.RoleUser)
	mismatch.ConfirmPassword = "other_1"

	shortName := registration("short@example.com", auth.RoleUser)
	shortName.FirstName = "Al"

	badRole := registration("admin@example.com", "admin")

	badPassword := registration("pw@example.com", auth.RoleUser)
	badPassword.Password = "has space"
	badPassword.ConfirmPassword = "has space"

	tests := []struct {
		name     string
		in       account.RegisterInput
		wantCode string
	}{
		{"duplicate email", registration("TAKEN@example.com", auth.RoleProvider), apperrors.CodeConflict},
		{"password mismatch", mismatch, apperrors.CodeInvalidInput},
		{"short first name", shortName, apperrors.CodeInvalidInput},
		{"unknown role", badRole, apperrors.CodeInvalidInput},
		{"bad password characters", badPassword, apperrors.CodeInvalidInput},
		{"bad email", registration("not-an-email", auth.RoleUser), apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.Accounts.Register(ctx, tt.in); !apperrors.Is(err, tt.wantCode) {
				t.Fatalf("error = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestLoginFailuresLookAlike(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	if _, err := env.Accounts.Register(ctx, registration("ada@example.com", auth.RoleUser)); err != nil {
		t.Fatalf("register: %v", err)
	}

	attempts := []account.LoginInput{
		{Email: "ada@example.com", Password: "wrong_1"},
		{Email: "nobody@example.com", Password: "secret_1"},
	}

	var messages []string
	for _, in := range attempts {
		_, err := env.Accounts.Login(ctx, in)
		appErr := apperrors.AsAppError(err)
		if appErr == nil || appErr.Code != apperrors.CodeUnauthorized {
			t.Fatalf("login(%s): error = %v, want UNAUTHORIZED", in.Email, err)
		}
		messages = append(messages, appErr.Message)
	}
	if messages[0] != messages[1] {
		t.Errorf("messages differ: %q vs %q", messages[0], messages[1])
	}

	if _, err := env.Accounts.Login(ctx, account.LoginInput{Email: "ada@example.com"}); !apperrors.Is(err, apperrors.CodeInvalidInput) {
		t.Errorf("missing password: error = %v, want INVALID_INPUT", err)
	}
}
