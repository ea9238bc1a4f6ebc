// Package token issues and verifies the signed bearer tokens that back
// login sessions. Tokens are HS256 JWTs carrying the user id and role;
// revocation is handled separately by the blacklist store, so Verify only
// answers "was this signed by us and is it still within its lifetime".
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "taskforge"

var (
	// ErrTokenExpired means the signature checked out but the token's
	// lifetime has passed. Callers use this to clean up the dead session.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("token invalid")
)

// DefaultTTL is used when the configured lifetime cannot be parsed.
const DefaultTTL = 7 * 24 * time.Hour

// Claims is the JWT payload for a login token. The user id travels in the
// registered Subject claim; only the role is custom.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// Service signs and verifies login tokens with a single shared secret.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// New builds a Service. expiresIn follows the compact duration syntax
// accepted by ComputeExpiration ("30s", "15m", "24h", "7d"); unparseable
// values fall back to DefaultTTL.
func New(secret string, expiresIn string) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token: secret must not be empty")
	}
	return &Service{secret: []byte(secret), ttl: parseTTL(expiresIn)}, nil
}

// TTL reports the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for the user and returns it with its expiry instant.
// Each token carries a fresh uuid in the ID claim so two logins in the same
// second still produce distinct tokens.
func (s *Service) Issue(userID, role string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the signature and lifetime of raw and returns its claims.
// Expired tokens return ErrTokenExpired; every other failure returns
// ErrTokenInvalid.
func (s *Service) Verify(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

// ExpiryOf decodes raw without verifying the signature and returns its
// expiry claim. Used when blacklisting: the block row should live exactly
// as long as the token it blocks. ok is false when no expiry can be read.
func ExpiryOf(raw string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ComputeExpiration turns a compact lifetime string into an absolute
// expiry from now. Accepted forms: "<n>s", "<n>m", "<n>h", "<n>d" with a
// positive integer n. Anything else yields now + DefaultTTL.
func ComputeExpiration(spec string, now time.Time) time.Time {
	return now.Add(parseTTL(spec))
}

func parseTTL(s string) time.Duration {
	if len(s) < 2 {
		return DefaultTTL
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return DefaultTTL
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	default:
		return DefaultTTL
	}
}
