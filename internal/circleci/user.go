package circleci

import (
	"context"

	"github.com/chazuruo/circli/internal/apiclient"
)

// UserService covers /me and /user.
type UserService struct {
	client *apiclient.Client
}

// Me returns the user the token belongs to.
func (s *UserService) Me(ctx context.Context) *apiclient.Call[User] {
	return do[User](ctx, s.client, "user.me", nil, apiclient.Args{})
}

// Collaborations lists the organizations the current user belongs to.
func (s *UserService) Collaborations(ctx context.Context) *apiclient.Call[[]Collaboration] {
	return do[[]Collaboration](ctx, s.client, "user.collaborations", nil, apiclient.Args{})
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) *apiclient.Call[User] {
	const op = "user.get"
	return do[User](ctx, s.client, op, requireUUID(op, "id", id), apiclient.Args{Path: path("id", id)})
}
