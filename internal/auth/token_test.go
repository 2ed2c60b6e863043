package auth

import (
	"testing"
	"time"

	"snaphomz.org/internal/identity"
	"snaphomz.org/internal/ids"
)

func testUser() *identity.User {
	return &identity.User{
		ID:          ids.New(),
		Email:       "buyer@example.com",
		Firstname:   "Amy",
		Lastname:    "Pond",
		Fullname:    "Amy Pond",
		AccountType: identity.AccountTypeBuyer,
	}
}

func testAgent() *identity.Agent {
	return &identity.Agent{
		ID:            ids.New(),
		Email:         "agent@example.com",
		Firstname:     "Rory",
		Lastname:      "Williams",
		Fullname:      "Rory Williams",
		LicenceNumber: "CA-12345",
		Region:        "Bay Area",
		EmailVerified: true,
	}
}

func TestUserTokenRoundTrip(t *testing.T) {
	codec := NewCodec("unit-secret")
	user := testUser()

	token, err := codec.UserToken(user)
	if err != nil {
		t.Fatalf("UserToken: %v", err)
	}

	claims := codec.DecodeUserToken(token)
	if claims == nil {
		t.Fatal("DecodeUserToken returned nil for a fresh token")
	}
	if claims.ID != user.ID {
		t.Fatalf("id = %q, want %q", claims.ID, user.ID)
	}
	if claims.Email != user.Email {
		t.Fatalf("email = %q, want %q", claims.Email, user.Email)
	}
	if claims.AccountType != string(identity.AccountTypeBuyer) {
		t.Fatalf("account_type = %q", claims.AccountType)
	}
	if claims.ID == "" || claims.RegisteredClaims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestAgentTokenRoundTrip(t *testing.T) {
	codec := NewCodec("unit-secret")
	agent := testAgent()

	token, err := codec.AgentToken(agent)
	if err != nil {
		t.Fatalf("AgentToken: %v", err)
	}

	claims := codec.DecodeAgentToken(token)
	if claims == nil {
		t.Fatal("DecodeAgentToken returned nil for a fresh token")
	}
	if claims.ID != agent.ID || claims.LicenceNumber != "CA-12345" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.EmailVerified {
		t.Fatal("email_verified claim lost")
	}
}

func TestDecodeNeverErrors(t *testing.T) {
	codec := NewCodec("unit-secret")

	for _, raw := range []string{"", "garbage", "a.b.c", "   "} {
		if claims := codec.DecodeUserToken(raw); claims != nil {
			t.Fatalf("DecodeUserToken(%q) = %+v, want nil", raw, claims)
		}
		if claims := codec.DecodeAgentToken(raw); claims != nil {
			t.Fatalf("DecodeAgentToken(%q) = %+v, want nil", raw, claims)
		}
	}
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	token, err := NewCodec("secret-one").UserToken(testUser())
	if err != nil {
		t.Fatalf("UserToken: %v", err)
	}
	if claims := NewCodec("secret-two").DecodeUserToken(token); claims != nil {
		t.Fatal("token signed with another secret must not decode")
	}
}

func TestDecodeRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	signer := NewCodec("unit-secret", WithTTL(time.Hour), WithClock(func() time.Time { return issued }))

	token, err := signer.UserToken(testUser())
	if err != nil {
		t.Fatalf("UserToken: %v", err)
	}

	// A verifier two hours later sees an expired token.
	verifier := NewCodec("unit-secret", WithClock(func() time.Time { return issued.Add(2 * time.Hour) }))
	if claims := verifier.DecodeUserToken(token); claims != nil {
		t.Fatal("expired token must not decode")
	}

	// Inside the window it still decodes.
	within := NewCodec("unit-secret", WithClock(func() time.Time { return issued.Add(30 * time.Minute) }))
	if claims := within.DecodeUserToken(token); claims == nil {
		t.Fatal("token inside its lifetime must decode")
	}
}

func TestDecodeAnyIDPrefersUserShape(t *testing.T) {
	codec := NewCodec("unit-secret")
	user := testUser()
	agent := testAgent()

	userToken, _ := codec.UserToken(user)
	agentToken, _ := codec.AgentToken(agent)

	if id, ok := codec.DecodeAnyID(userToken); !ok || id != user.ID {
		t.Fatalf("DecodeAnyID(user token) = %q, %v", id, ok)
	}
	if id, ok := codec.DecodeAnyID(agentToken); !ok || id != agent.ID {
		t.Fatalf("DecodeAnyID(agent token) = %q, %v", id, ok)
	}
	if _, ok := codec.DecodeAnyID("nonsense"); ok {
		t.Fatal("DecodeAnyID must fail on malformed input")
	}
}
