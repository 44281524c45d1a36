package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/papertrade/internal/domain"
)

// ErrInvalidToken is returned for any token that fails signature, format or expiry checks.
var ErrInvalidToken = errors.Wrap(domain.ErrUnauthenticated, "invalid token")

// TokenIssuer signs and validates stateless HS256 bearer tokens.
// There is no revocation: a token is valid until its expiry.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. now may be nil to use the wall clock.
func NewTokenIssuer(secret string, ttl time.Duration, now func() time.Time) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.Errorf("token ttl must be positive, got %s", ttl)
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// TTL returns the default token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for subjectID using the default TTL.
func (i *TokenIssuer) Issue(subjectID string) (string, time.Time, error) {
	return i.IssueWithTTL(subjectID, i.ttl)
}

// IssueWithTTL signs a token for subjectID that expires at now+ttl.
func (i *TokenIssuer) IssueWithTTL(subjectID string, ttl time.Duration) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}
	now := i.now()
	expiresAt := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Validate returns the subject of a well-formed, correctly signed, unexpired token.
// Every failure is reported as ErrInvalidToken.
func (i *TokenIssuer) Validate(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	// expired at the exact expiry instant as well
	if claims.ExpiresAt == nil || !i.now().Before(claims.ExpiresAt.Time) {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
