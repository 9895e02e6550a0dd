package relay

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errMissingExpiry        = errors.New("token has no expiry")
	errMissingSubject       = errors.New("token has no subject")
	errAudience             = errors.New("token audience mismatch")
	errIssuer               = errors.New("token issuer mismatch")
)

// Authenticator resolves the user behind an Authorization header.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Auth validates bearer JWTs with a single signing method. The parser
// rejects tokens signed any other way before keys is consulted.
type Auth struct {
	keys     jwt.Keyfunc
	parser   *jwt.Parser
	audience string
	issuer   string
}

// NewAuth verifies RS256 tokens against the keys published in jwks. The
// JWKS refreshes itself in the background, so lookups go straight to it.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	return &Auth{
		keys:     jwks.Keyfunc,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})),
		audience: audience,
		issuer:   issuer,
	}
}

// NewSharedSecretAuth verifies HS256 tokens signed with secret, the mode
// local runs and load tests use.
func NewSharedSecretAuth(secret []byte) *Auth {
	return &Auth{
		keys:   func(*jwt.Token) (any, error) { return secret, nil },
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// UserIDFromAuthHeader extracts the user identifier from the Authorization header.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	token, err := bearerToken(h)
	if err != nil {
		return "", err
	}
	return a.UserIDFromToken(token)
}

// UserIDFromToken validates a raw JWT and returns its subject. Signature,
// expiry and not-before are checked by the parser; the relay additionally
// insists on an expiry, a subject and, when configured, audience and issuer.
func (a *Auth) UserIDFromToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, err := a.parser.ParseWithClaims(raw, &claims, a.keys); err != nil {
		return "", err
	}
	switch {
	case claims.ExpiresAt == nil:
		return "", errMissingExpiry
	case claims.Subject == "":
		return "", errMissingSubject
	case a.audience != "" && !claims.VerifyAudience(a.audience, true):
		return "", errAudience
	case a.issuer != "" && !claims.VerifyIssuer(a.issuer, true):
		return "", errIssuer
	}
	return claims.Subject, nil
}

// bearerToken returns the JWT carried by a "Bearer <token>" header value.
func bearerToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(raw, "Bearer ")
	if !ok || strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}

// requestAuthHeader prefers the Authorization header and falls back to the
// token query parameter, which browsers must use for websocket upgrades.
func requestAuthHeader(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		return h
	}
	if token := c.QueryParam("token"); token != "" {
		return "Bearer " + token
	}
	return ""
}

func publishTokenMatches(header http.Header, want string) bool {
	if want == "" {
		return false
	}
	got, ok := strings.CutPrefix(header.Get(echo.HeaderAuthorization), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
