package auth

import (
	"context"

	"snaphomz.org/internal/identity"
)

// SocketAuthenticator is the connection-scoped auth gate: decode the
// handshake token as a user token, then as an agent token, then resolve the
// embedded id against the user store and the agent store in that order.
type SocketAuthenticator struct {
	codec    *Codec
	resolver *Resolver
}

// NewSocketAuthenticator wires the realtime gate from the codec and resolver.
func NewSocketAuthenticator(codec *Codec, resolver *Resolver) *SocketAuthenticator {
	return &SocketAuthenticator{codec: codec, resolver: resolver}
}

// AuthenticateSocket implements the handshake gate. All failures collapse to
// ErrInvalidToken-class errors; callers present a single rejection signal.
func (s *SocketAuthenticator) AuthenticateSocket(ctx context.Context, token string) (identity.Principal, error) {
	id, ok := s.codec.DecodeAnyID(token)
	if !ok {
		return identity.Principal{}, ErrInvalidToken
	}
	return s.resolver.Resolve(ctx, id)
}
