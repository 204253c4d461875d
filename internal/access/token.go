package access

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer            = "actionplus"
	defaultSessionTTL = 12 * time.Hour
)

// Claims carries a cached Session inside a signed token.
type Claims struct {
	Role        Role         `json:"role"`
	Permissions []Permission `json:"perms"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens with HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer; ttl <= 0 selects the default lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("access: session secret is not configured")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign encodes s as a token expiring ttl after now.
func (t *TokenIssuer) Sign(s Session) (string, error) {
	if strings.TrimSpace(s.Username) == "" {
		return "", fmt.Errorf("%w: session username is required", ErrInvalidInput)
	}
	now := t.now().UTC()
	issued := s.IssuedAt
	if issued.IsZero() {
		issued = now
	}
	claims := Claims{
		Role:        s.Role,
		Permissions: s.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   s.Username,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns the session it carries.
func (t *TokenIssuer) Parse(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Session{}, ErrInvalidToken
	}
	s := Session{
		Username:    claims.Subject,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s, nil
}
