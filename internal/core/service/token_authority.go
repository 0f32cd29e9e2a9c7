package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/petfarm/identity-api/internal/core/domain"
)

// DefaultTokenTTL applies when TokenConfig.TTL is not positive.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenConfig selects which claims the authority embeds and how long tokens live.
type TokenConfig struct {
	IncludeRole bool
	TTL         time.Duration
	// Issuer is written to "iss" and required on verification when non-empty.
	Issuer string
}

// Token is a signed bearer credential.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// TokenAuthority issues and verifies HS256 bearer tokens. It holds no
// mutable state after construction and is safe for concurrent use.
type TokenAuthority struct {
	secret []byte
	cfg    TokenConfig
	now    func() time.Time
}

// NewTokenAuthority fails with domain.ErrMissingSecret when secret is empty.
func NewTokenAuthority(secret string, cfg TokenConfig) (*TokenAuthority, error) {
	if secret == "" {
		return nil, domain.ErrMissingSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	return &TokenAuthority{
		secret: []byte(secret),
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// TTL returns the configured token lifetime.
func (a *TokenAuthority) TTL() time.Duration {
	return a.cfg.TTL
}

// Issue signs a token for p, valid from now until now+TTL.
func (a *TokenAuthority) Issue(p domain.Principal) (Token, error) {
	if p.ID == "" {
		return Token{}, fmt.Errorf("%w: principal without id", domain.ErrInvalidInput)
	}

	now := a.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    a.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
		},
		Email: p.Email,
	}
	if a.cfg.IncludeRole {
		claims.Role = string(p.Role)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{
		Value:     signed,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, algorithm and expiry, then decodes the principal.
// Tokens without a role claim decode to domain.RoleUser.
func (a *TokenAuthority) Verify(tokenString string) (domain.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, classifyTokenError(err)
	}

	if claims.Subject == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing subject", domain.ErrMalformedToken)
	}
	role := domain.RoleUser
	if claims.Role != "" {
		role = domain.Role(claims.Role)
		if !role.Valid() {
			return domain.Principal{}, fmt.Errorf("%w: unknown role %q", domain.ErrMalformedToken, claims.Role)
		}
	}

	return domain.Principal{ID: claims.Subject, Email: claims.Email, Role: role}, nil
}

// Authorize is domain.Authorize, exposed here so callers holding only the
// authority can gate actions.
func (a *TokenAuthority) Authorize(p domain.Principal, resourceOwnerID string, requiredRole domain.Role) bool {
	return domain.Authorize(p, resourceOwnerID, requiredRole)
}

// classifyTokenError maps jwt parser errors onto the token error taxonomy.
// The parser checks structure, then signature, then claims, so a tampered
// expired token reports an invalid signature.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domain.ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		// signed with our key but minted for another issuer
		return fmt.Errorf("%w: wrong issuer", domain.ErrMalformedToken)
	default:
		return fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	}
}
