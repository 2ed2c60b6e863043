package auth

import (
	"context"
	"errors"
	"fmt"

	"snaphomz.org/internal/identity"
)

// Resolver loads the principal record behind a decoded token payload. Token
// payloads carry no kind discriminant, so resolution tries the user store
// first and falls back to the agent store. This is correct only because id
// spaces are disjoint across the two stores (a documented precondition, not
// an invariant the resolver enforces).
type Resolver struct {
	users  identity.UserStore
	agents identity.AgentStore
}

// NewResolver constructs a Resolver over the two principal stores.
func NewResolver(users identity.UserStore, agents identity.AgentStore) *Resolver {
	return &Resolver{users: users, agents: agents}
}

// Resolve looks up id as a user, then as an agent. A miss in both stores is
// ErrUnauthorized so gates can reject without leaking which lookup failed.
func (r *Resolver) Resolve(ctx context.Context, id string) (identity.Principal, error) {
	user, err := r.users.Find(ctx, id)
	if err == nil {
		return identity.UserPrincipal(user), nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return identity.Principal{}, fmt.Errorf("auth: resolve user: %w", err)
	}

	agent, err := r.agents.Find(ctx, id)
	if err == nil {
		return identity.AgentPrincipal(agent), nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return identity.Principal{}, fmt.Errorf("auth: resolve agent: %w", err)
	}
	return identity.Principal{}, ErrUnauthorized
}

// ResolveUser looks up id in the user store only. The HTTP gate uses this:
// it authenticates user tokens exclusively.
func (r *Resolver) ResolveUser(ctx context.Context, id string) (*identity.User, error) {
	user, err := r.users.Find(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("auth: resolve user: %w", err)
	}
	return user, nil
}
