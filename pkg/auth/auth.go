// Package auth identifies actors of requests.
//
// An actor is an opaque string recorded in rollback snapshots and audit entries.
// It is the subject of a HS256 bearer token when a sign key is configured,
// the X-Actor header when not, and Anonymous when neither.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	apierr "github.com/opst/wlconf/pkg/api/errors"
)

const (
	Anonymous   = "anonymous"
	HeaderActor = "X-Actor"

	contextKey = "wlconf/actor"
)

var ErrInvalidToken = errors.New("invalid token")

// ActorClaims are claims of actor tokens. The actor is the `sub` claim.
type ActorClaims struct {
	jwt.RegisteredClaims
}

// Sign issues a token for actor, expiring after ttl.
func Sign(key []byte, actor string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   actor,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

type Verifier struct {
	key []byte
}

func NewVerifier(key []byte) *Verifier {
	return &Verifier{key: key}
}

// Verify checks token and returns its actor.
//
// # Returns
//
// - string: actor
//
// - error: ErrInvalidToken when token is malformed, expired, or not signed with the key,
// or has no subject.
func (v *Verifier) Verify(token string) (string, error) {
	claims := new(ActorClaims)
	_, err := jwt.ParseWithClaims(
		token, claims,
		func(*jwt.Token) (interface{}, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware identifies actors of requests. Read it with ActorOf.
//
// With verifier, a bearer token is required, and invalid tokens are rejected with 401.
// Without verifier (nil), the actor is taken from the X-Actor header.
func Middleware(verifier *Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := Anonymous
			if verifier == nil {
				if a := strings.TrimSpace(c.Request().Header.Get(HeaderActor)); a != "" {
					actor = a
				}
			} else {
				token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
				if !ok || token == "" {
					return apierr.Unauthorized(`bearer token is required in "Authorization" header`, nil)
				}
				a, err := verifier.Verify(token)
				if err != nil {
					return apierr.Unauthorized("invalid token", err)
				}
				actor = a
			}
			c.Set(contextKey, actor)
			return next(c)
		}
	}
}

// ActorOf returns the actor of the request. It is Anonymous when Middleware is not used.
func ActorOf(c echo.Context) string {
	if a, ok := c.Get(contextKey).(string); ok && a != "" {
		return a
	}
	return Anonymous
}
