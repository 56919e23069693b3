package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrBadToken = errors.New("invalid token")

type UserClaim struct {
	ID   string `json:"id"`
	Role Role   `json:"role,omitempty"`
}

// Claims carries the caller under "user", next to the registered claims.
type Claims struct {
	User UserClaim `json:"user"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(c Caller) (string, error) {
	now := t.now()
	claims := Claims{
		User: UserClaim{ID: c.ID.String(), Role: c.Role},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies raw and resolves the caller. Tokens without a role are
// treated as plain users.
func (t *Tokens) Parse(raw string) (Caller, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(tok *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return Caller{}, fmt.Errorf("%w: %w", ErrBadToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return Caller{}, ErrBadToken
	}

	id, err := uuid.Parse(claims.User.ID)
	if err != nil {
		return Caller{}, fmt.Errorf("%w: user id: %w", ErrBadToken, err)
	}

	role := claims.User.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return Caller{}, fmt.Errorf("%w: unknown role %q", ErrBadToken, role)
	}

	return Caller{ID: id, Role: role}, nil
}
