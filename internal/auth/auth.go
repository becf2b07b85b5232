// Package auth issues and verifies the scoped bearer tokens guarding the
// HTTP API and the streaming channels. Account storage and refresh tokens
// are handled by an external collaborator; this layer only needs to map a
// presented token to a (subject, scope) pair.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// Scope identifies what a token grants access to.
type Scope string

const (
	// ScopeProvide allows uploading audio for the active session.
	ScopeProvide Scope = "meeting.provide"
	// ScopeConsume allows observing transcript and translation events.
	ScopeConsume Scope = "meeting.consume"
	// ScopeControl allows session init/close and token requests.
	ScopeControl Scope = "meeting.control"
)

var (
	ErrAuthFailed = errors.New("could not validate credentials")
	ErrWrongScope = errors.New("wrong token scope")
)

// Claims is the verified identity extracted from a token.
type Claims struct {
	Subject string
	Scope   Scope
}

// Authenticator signs and verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// New creates an authenticator with the given signing secret and token TTL.
func New(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for a subject with the given scope.
func (a *Authenticator) Issue(subject string, scope Scope) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"scope": string(scope),
		"iat":   now.Unix(),
		"exp":   now.Add(a.ttl).Unix(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a token's signature, expiry and scope, returning the claims.
// A valid token with the wrong scope yields ErrWrongScope.
func (a *Authenticator) Verify(tokenString string, want Scope) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrAuthFailed
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrAuthFailed
	}
	sub, _ := mc["sub"].(string)
	scope, _ := mc["scope"].(string)
	if sub == "" || scope == "" {
		return nil, ErrAuthFailed
	}
	if Scope(scope) != want {
		return nil, ErrWrongScope
	}
	return &Claims{Subject: sub, Scope: Scope(scope)}, nil
}
