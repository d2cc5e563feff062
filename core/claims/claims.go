package claims

import (
	"context"
	"errors"
)

const (
	RoleAdmin      = "ADMIN"
	RoleInstructor = "INSTRUCTOR"
	RoleUser       = "USER"
)

// Claims is the identity the external session service resolved for the
// request. The core never issues credentials, it only reads them.
type Claims struct {
	UserID string
	Role   string
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, errors.New("claim value missing from context")
	}
	return v, nil
}

func IsAdmin(ctx context.Context) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Role == RoleAdmin
}

func IsUser(ctx context.Context, id string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.UserID == id
}

// CanEditCourse is the single edit-rights predicate: the course's own
// instructor or an admin. Call sites pass the course's instructor id instead
// of re-implementing the role check.
func CanEditCourse(ctx context.Context, instructorID string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.UserID == instructorID || c.Role == RoleAdmin
}
