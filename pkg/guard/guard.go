// Package guard gates protected endpoints behind bearer-JWT verification.
// Verification checks the RS256 signature against the configured public key
// and the issuer claim; any failure yields a generic 403 so the cause is not
// disclosed to the caller.
package guard

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gemba/covid19-rest-server/pkg/oauth2"
	"github.com/gemba/covid19-rest-server/pkg/util"
	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const bearerPrefix = "Bearer "

type Guard struct {
	verifyKey jwk.Key
	issuer    string
}

// New creates a guard around the verification key, loaded once and treated
// as immutable for the process lifetime.
func New(verifyKey jwk.Key, issuer string) *Guard {
	return &Guard{
		verifyKey: verifyKey,
		issuer:    issuer,
	}
}

// NewFromPEM loads the SPKI public key from a PEM file.
func NewFromPEM(path, issuer string) (*Guard, error) {
	verifyKey, err := util.LoadJwkFromPem(path)
	if err != nil {
		return nil, fmt.Errorf("load verification key: %w", err)
	}
	return New(verifyKey, issuer), nil
}

func deny(c echo.Context, description string) error {
	return echo.NewHTTPError(http.StatusForbidden, oauth2.Error{
		Code:        "access_denied",
		Description: description,
	})
}

// Middleware short-circuits any request without a valid bearer token. On
// success control passes to the protected handler unchanged; no claims are
// injected into the request.
func (g *Guard) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return deny(c, "missing or malformed bearer token")
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		_, err := jwt.Parse([]byte(token),
			jwt.WithKey(jwa.RS256, g.verifyKey),
			jwt.WithIssuer(g.issuer),
			jwt.WithValidate(true),
		)
		if err != nil {
			slog.Debug("Token verification failed", "error", err, "path", c.Path())
			return deny(c, "token verification failed")
		}

		return next(c)
	}
}
