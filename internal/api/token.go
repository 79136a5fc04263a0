package api

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when the bearer token is not a parseable JWT.
var ErrNotJWT = errors.New("api: token is not a JWT")

// TokenExpiry peeks at the expiry claim of a bearer token for diagnostics.
// The signature is deliberately NOT verified: the token is an opaque
// credential issued and validated by the backend; this helper only answers
// "is a re-login likely needed" for the UI.
func TokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, ErrNotJWT
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("api: token has no exp claim")
	}
	return exp.Time, nil
}

// TokenExpired reports whether the token carries an exp claim in the past.
// Tokens that are not JWTs or carry no expiry are treated as not expired:
// only the backend can reject them authoritatively.
func TokenExpired(token string, now time.Time) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return false
	}
	return exp.Before(now)
}
