// Package authzserver implements a demonstration OAuth2 authorization server
// with a PKCE-bound authorization code flow and RS256 access tokens.
package authzserver

import (
	"crypto"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gemba/covid19-rest-server/pkg/util"
	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// DefaultIssuer is the issuer claim written into every access token and
// checked again during verification.
const DefaultIssuer = "covid19-rest-server"

const defaultTokenTTL = 2 * time.Hour

type Server struct {
	issuer   string
	tokenTTL time.Duration
	clients  ClientRegistry
	users    CredentialStore
	codes    CodeStore
	sigPrK   jwk.Key
	jwks     jwk.Set
}

type Option func(*Server) error

func New(opts ...Option) (*Server, error) {
	s := &Server{
		issuer:   DefaultIssuer,
		tokenTTL: defaultTokenTTL,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.sigPrK == nil {
		return nil, fmt.Errorf("no signing key configured")
	}
	if s.clients == nil {
		return nil, fmt.Errorf("no client registry configured")
	}
	if s.users == nil {
		return nil, fmt.Errorf("no credential store configured")
	}
	if s.codes == nil {
		s.codes = NewMemoryCodeStore()
	}

	return s, nil
}

func WithIssuer(issuer string) Option {
	return func(s *Server) error {
		s.issuer = issuer
		return nil
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) error {
		s.tokenTTL = ttl
		return nil
	}
}

func WithClients(clients []Client) Option {
	return func(s *Server) error {
		s.clients = &StaticClientRegistry{Clients: clients}
		for _, client := range clients {
			slog.Info("Using registered client", "client_id", client.ClientID, "redirect_uri", client.RedirectURI)
		}
		return nil
	}
}

func WithUsers(users []User) Option {
	return func(s *Server) error {
		s.users = &StaticCredentialStore{Users: users}
		return nil
	}
}

func WithCodeStore(codes CodeStore) Option {
	return func(s *Server) error {
		s.codes = codes
		return nil
	}
}

// WithSigningKey configures the access token signing key. The key id is
// derived from the key thumbprint so the JWKS endpoint can serve a stable
// reference to the verification key.
func WithSigningKey(sigPrK jwk.Key) Option {
	return func(s *Server) error {
		thumbprint, err := sigPrK.Thumbprint(crypto.SHA256)
		if err != nil {
			return fmt.Errorf("key thumbprint: %w", err)
		}
		sigPrK.Set(jwk.KeyIDKey, base64.RawURLEncoding.EncodeToString(thumbprint))
		sigPrK.Set(jwk.KeyUsageKey, "sig")

		sigPuK, err := sigPrK.PublicKey()
		if err != nil {
			return fmt.Errorf("derive public key: %w", err)
		}

		s.sigPrK = sigPrK
		s.jwks = jwk.NewSet()
		s.jwks.AddKey(sigPuK)
		return nil
	}
}

// WithSigningKeyFromPEM loads the PKCS8 private key once at startup. The key
// material is immutable for the process lifetime.
func WithSigningKeyFromPEM(path string) Option {
	return func(s *Server) error {
		sigPrK, err := util.LoadJwkFromPem(path)
		if err != nil {
			return fmt.Errorf("load signing key: %w", err)
		}
		return WithSigningKey(sigPrK)(s)
	}
}

func ErrorLogMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			slog.Error("Request failed", "error", err, "path", c.Path(), "remote_addr", c.RealIP())
		}
		return err
	}
}

func (s *Server) MountRoutes(group *echo.Group) {
	group.Use(ErrorLogMiddleware)
	group.POST("/token", s.TokenEndpoint)
	group.GET("/jwks", s.JWKS)
}

func (s *Server) Issuer() string {
	return s.issuer
}

func (s *Server) JWKS(c echo.Context) error {
	return c.JSON(http.StatusOK, s.jwks)
}
