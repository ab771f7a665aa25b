package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/id"
)

const (
	tokenIssuer   = "readup-auth"
	tokenAudience = "readup-api"
)

// TokenService mints and verifies PASETO v4.local access tokens.
//
// Sign-in is handled by the hosted auth service, which shares the symmetric
// key. The server mints tokens itself only for seeding and local development.
type TokenService struct {
	key      paseto.V4SymmetricKey
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte, lifetime time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}
	sym, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	return &TokenService{key: sym, lifetime: lifetime, now: time.Now}, nil
}

// Mint creates an access token for the profile.
func (s *TokenService) Mint(p *domain.Profile) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(p.ID)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.lifetime))

	jti, err := id.Generate("tok")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(jti)

	//nolint:errcheck // Set only fails for values that cannot be marshaled
	_ = token.Set("user_id", p.ID)
	//nolint:errcheck // Set only fails for values that cannot be marshaled
	_ = token.Set("email", p.Email)
	//nolint:errcheck // Set only fails for values that cannot be marshaled
	_ = token.Set("is_admin", p.IsAdmin)

	return token.V4Encrypt(s.key, nil), nil
}

// Verify decrypts the token and checks issuer, audience and validity window.
func (s *TokenService) Verify(raw string) (*Claims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: missing user_id")
	}
	return &claims, nil
}

// Lifetime returns the configured access token lifetime.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}
