// Package auth signs and checks operator tokens for the write endpoints.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "crowdshield"

// RoleOperator may preload data, clear caches and broadcast alerts.
const RoleOperator = "operator"

var ErrMissingRole = errors.New("token lacks the operator role")

// Claims is the JWT payload of an operator token.
type Claims struct {
	Subject string   `json:"sub_name"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// Signer issues and validates HS256 tokens with a shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue returns a signed token for subject valid for ttl.
func (s *Signer) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("signing secret is empty")
	}
	now := s.now()
	claims := &Claims{
		Subject: subject,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate checks the signature, expiry and issuer of raw.
func (s *Signer) Validate(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}

// HasRole reports whether the claims carry role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
