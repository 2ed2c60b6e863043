package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"snaphomz.org/internal/identity"
)

const issuer = "snaphomz"

const defaultTokenTTL = 24 * time.Hour

// UserClaims is the payload embedded in a user token.
type UserClaims struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Fullname    string `json:"fullname"`
	AccountType string `json:"account_type"`
	jwt.RegisteredClaims
}

// AgentClaims is the payload embedded in an agent token.
type AgentClaims struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Firstname     string `json:"firstname"`
	Lastname      string `json:"lastname"`
	Fullname      string `json:"fullname"`
	LicenceNumber string `json:"licence_number"`
	Region        string `json:"region"`
	EmailVerified bool   `json:"email_verified"`
	Avatar        string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies the two bearer-token shapes with a shared HS256
// secret. Decoding is a pure function of the token string, the secret, and
// the clock; it never retries and never panics.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithTTL overrides the default token lifetime.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec from the server-held secret.
func NewCodec(secret string, opts ...CodecOption) *Codec {
	c := &Codec{
		secret: []byte(strings.TrimSpace(secret)),
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserToken signs a token carrying the user's identity payload.
func (c *Codec) UserToken(u *identity.User) (string, error) {
	now := c.now().UTC()
	claims := UserClaims{
		ID:          u.ID,
		Email:       u.Email,
		Firstname:   u.Firstname,
		Lastname:    u.Lastname,
		Fullname:    u.Fullname,
		AccountType: string(u.AccountType),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// AgentToken signs a token carrying the agent's identity payload.
func (c *Codec) AgentToken(a *identity.Agent) (string, error) {
	now := c.now().UTC()
	claims := AgentClaims{
		ID:            a.ID,
		Email:         a.Email,
		Firstname:     a.Firstname,
		Lastname:      a.Lastname,
		Fullname:      a.Fullname,
		LicenceNumber: a.LicenceNumber,
		Region:        a.Region,
		EmailVerified: a.EmailVerified,
		Avatar:        a.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// DecodeUserToken verifies a user token. It returns nil on malformed input,
// signature mismatch, or expiry; the caller decides what that means.
func (c *Codec) DecodeUserToken(token string) *UserClaims {
	claims := &UserClaims{}
	if !c.decode(token, claims) || strings.TrimSpace(claims.ID) == "" {
		return nil
	}
	return claims
}

// DecodeAgentToken verifies an agent token with the same failure semantics
// as DecodeUserToken.
func (c *Codec) DecodeAgentToken(token string) *AgentClaims {
	claims := &AgentClaims{}
	if !c.decode(token, claims) || strings.TrimSpace(claims.ID) == "" {
		return nil
	}
	return claims
}

// DecodeAnyID tries the user shape first, then the agent shape, and returns
// the embedded principal id. The order is fixed: a token that decodes both
// ways resolves as a user token.
func (c *Codec) DecodeAnyID(token string) (string, bool) {
	if claims := c.DecodeUserToken(token); claims != nil {
		return claims.ID, true
	}
	if claims := c.DecodeAgentToken(token); claims != nil {
		return claims.ID, true
	}
	return "", false
}

func (c *Codec) decode(token string, claims jwt.Claims) bool {
	token = strings.TrimSpace(token)
	if token == "" || len(c.secret) == 0 {
		return false
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return false
	}
	return true
}
