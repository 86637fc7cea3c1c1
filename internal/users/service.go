package users

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"nw-social/internal"
	"nw-social/internal/credentials"
	"nw-social/internal/validation"
)

const pkg = "internal.users"

// Service implements the profile and follow operations of an authenticated user.
type Service struct {
	Users      Repository
	BcryptCost int
}

func NewService(repo Repository, bcryptCost int) *Service {
	return &Service{Users: repo, BcryptCost: bcryptCost}
}

// FollowersView is the body of GET /followers.
type FollowersView struct {
	Length int               `json:"length"`
	User   PopulatedFollower `json:"user"`
}

// PopulatedFollower is a user whose followers are expanded into profiles.
type PopulatedFollower struct {
	User
	Followers []User `json:"followers"`
}

// self loads the authenticated user; a missing user is an auth failure
// because the token outlived its account.
func (s *Service) self(ctx context.Context, fn string, id primitive.ObjectID) (*User, error) {
	u, err := s.Users.FromID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		ef := internal.AuthFailure(pkg, fn, "user not found", err)
		ef.ObjectID = id
		return nil, ef
	}
	if err != nil {
		return nil, internal.Internal(pkg, fn, err)
	}
	return u, nil
}

func (s *Service) Profile(ctx context.Context, id primitive.ObjectID) (*User, error) {
	u, err := s.self(ctx, "users.Profile", id)
	if err != nil {
		return nil, err
	}
	u.Password = ""
	return u, nil
}

func (s *Service) Followers(ctx context.Context, id primitive.ObjectID) (*FollowersView, error) {
	u, err := s.self(ctx, "users.Followers", id)
	if err != nil {
		return nil, err
	}
	u.Password = ""

	followers, err := s.Users.FromIDs(ctx, u.Followers)
	if err != nil {
		return nil, internal.Internal(pkg, "users.Followers", err)
	}
	for i := range followers {
		followers[i].Password = ""
	}

	return &FollowersView{
		Length: len(u.Followers),
		User:   PopulatedFollower{User: *u, Followers: followers},
	}, nil
}

// UpdateProfile overwrites every profile field and rehashes the password.
func (s *Service) UpdateProfile(ctx context.Context, id primitive.ObjectID, p validation.ProfileUpdate) error {
	const fn = "users.UpdateProfile"
	if err := p.Validate(); err != nil {
		ef := internal.InvalidInput(pkg, fn, "invalid profile", err)
		ef.Detail = err.Error()
		return ef
	}

	u, err := s.self(ctx, fn, id)
	if err != nil {
		return err
	}

	if p.Username != u.Username {
		other, err := s.Users.FromUsername(ctx, p.Username)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return internal.Internal(pkg, fn, err)
		}
		if other != nil && other.ID != id {
			return internal.Conflict(pkg, fn, "username already taken")
		}
	}

	hash, err := credentials.HashPassword(p.Password, s.BcryptCost)
	if err != nil {
		if errors.Is(err, credentials.ErrPasswordTooLong) {
			ef := internal.InvalidInput(pkg, fn, "invalid password", err)
			ef.Detail = err.Error()
			return ef
		}
		return internal.Internal(pkg, fn, err)
	}

	u.Username = p.Username
	u.Password = hash
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.About = p.About

	err = s.Users.Update(ctx, u)
	switch {
	case errors.Is(err, ErrDuplicateUsername):
		return internal.Conflict(pkg, fn, "username already taken")
	case errors.Is(err, ErrNotFound):
		return internal.AuthFailure(pkg, fn, "user not found", err)
	case err != nil:
		return internal.Internal(pkg, fn, err)
	}
	return nil
}

// Follow makes follower follow target. Following twice is a Conflict.
func (s *Service) Follow(ctx context.Context, follower, target primitive.ObjectID) error {
	const fn = "users.Follow"
	if follower == target {
		return internal.InvalidInput(pkg, fn, "you cannot follow yourself", nil)
	}

	self, err := s.self(ctx, fn, follower)
	if err != nil {
		return err
	}

	_, err = s.Users.FromID(ctx, target)
	if errors.Is(err, ErrNotFound) {
		ef := internal.NotFound(pkg, fn, "user to follow not found")
		ef.ObjectID = target
		return ef
	}
	if err != nil {
		return internal.Internal(pkg, fn, err)
	}

	if internal.ContainsObjectID(self.Following, target) {
		return internal.Conflict(pkg, fn, "you are already following this user")
	}

	if err := s.Users.Follow(ctx, follower, target); err != nil {
		ef := internal.Internal(pkg, fn, err)
		ef.ObjectID = follower
		return ef
	}
	return nil
}
