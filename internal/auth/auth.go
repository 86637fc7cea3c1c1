package auth

import (
	"context"
	"errors"

	"nw-social/internal"
	"nw-social/internal/credentials"
	"nw-social/internal/users"
	"nw-social/internal/validation"
)

const pkg = "internal.auth"

// Service handles account creation and sign in.
type Service struct {
	Users      users.Repository
	Tokens     *credentials.Tokens
	BcryptCost int
}

func NewService(repo users.Repository, tokens *credentials.Tokens, bcryptCost int) *Service {
	return &Service{Users: repo, Tokens: tokens, BcryptCost: bcryptCost}
}

// Signup creates the user and returns a token for it.
func (s *Service) Signup(ctx context.Context, r validation.Signup) (string, error) {
	const fn = "auth.Signup"
	if err := r.Validate(); err != nil {
		ef := internal.InvalidInput(pkg, fn, "invalid signup payload", err)
		ef.Detail = err.Error()
		return "", ef
	}

	_, err := s.Users.FromUsername(ctx, r.Username)
	if err == nil {
		return "", internal.Conflict(pkg, fn, "username already taken")
	}
	if !errors.Is(err, users.ErrNotFound) {
		return "", internal.Internal(pkg, fn, err)
	}

	pwd, err := credentials.HashPassword(r.Password, s.BcryptCost)
	if err != nil {
		if errors.Is(err, credentials.ErrPasswordTooLong) {
			ef := internal.InvalidInput(pkg, fn, "invalid password", err)
			ef.Detail = err.Error()
			return "", ef
		}
		return "", internal.Internal(pkg, fn, err)
	}

	user := users.User{
		Username:  r.Username,
		Password:  pwd,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		About:     r.About,
	}

	// the unique index still catches a concurrent signup for the same name
	err = s.Users.Create(ctx, &user)
	if errors.Is(err, users.ErrDuplicateUsername) {
		return "", internal.Conflict(pkg, fn, "username already taken")
	}
	if err != nil {
		return "", internal.Internal(pkg, fn, err)
	}

	t, err := s.Tokens.Issue(user.ID)
	if err != nil {
		ef := internal.Internal(pkg, fn, err)
		ef.ObjectID = user.ID
		return "", ef
	}
	return t, nil
}

// Signin checks the credentials and returns a fresh token.
func (s *Service) Signin(ctx context.Context, r validation.Signin) (string, error) {
	const fn = "auth.Signin"
	if err := r.Validate(); err != nil {
		ef := internal.InvalidInput(pkg, fn, "invalid signin payload", err)
		ef.Detail = err.Error()
		return "", ef
	}

	user, err := s.Users.FromUsername(ctx, r.Username)
	if errors.Is(err, users.ErrNotFound) {
		return "", internal.NotFound(pkg, fn, "user does not exist")
	}
	if err != nil {
		return "", internal.Internal(pkg, fn, err)
	}

	if !credentials.ComparePassword(user.Password, r.Password) {
		ef := internal.AuthFailure(pkg, fn, "invalid password", nil)
		ef.ObjectID = user.ID
		return "", ef
	}

	t, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return "", internal.Internal(pkg, fn, err)
	}
	return t, nil
}
