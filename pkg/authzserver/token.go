package authzserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gemba/covid19-rest-server/pkg/oauth2"
	"github.com/gemba/covid19-rest-server/pkg/util"
	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/segmentio/ksuid"
)

// AppClaim is the fixed custom claim carried by every access token.
const AppClaim = "covid19-rest-server"

// TokenRequest carries the body of a code-to-token exchange.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	CodeVerifier string
}

func (s *Server) TokenEndpoint(c echo.Context) error {
	var req TokenRequest
	binderr := echo.FormFieldBinder(c).
		MustString("grant_type", &req.GrantType).
		MustString("code", &req.Code).
		MustString("redirect_uri", &req.RedirectURI).
		MustString("client_id", &req.ClientID).
		MustString("code_verifier", &req.CodeVerifier).
		BindError()

	if binderr != nil {
		return echo.NewHTTPError(http.StatusBadRequest, oauth2.Error{
			Code:        "invalid_request",
			Description: binderr.Error(),
		})
	}

	response, err := s.RedeemCode(&req)
	if err != nil {
		var authzErr *Error
		if errors.As(err, &authzErr) {
			return echo.NewHTTPError(authzErr.HTTPStatus, oauth2.Error{
				Code:        authzErr.Code,
				Description: authzErr.Description,
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, oauth2.Error{
			Code:        "server_error",
			Description: "unexpected failure",
		})
	}

	return c.JSON(http.StatusOK, response)
}

// RedeemCode exchanges a code and its verifier for a signed access token.
// Checks run in order and fail fast; the code is not consumed, so a second
// redemption with the correct verifier succeeds as well.
func (s *Server) RedeemCode(req *TokenRequest) (*oauth2.TokenResponse, error) {
	if req.GrantType != oauth2.GrantTypeAuthorizationCode {
		return nil, ErrUnsupportedGrantType
	}

	grant, err := s.codes.GetGrant(req.Code)
	if err != nil {
		return nil, ErrInvalidCode
	}
	if grant.ClientID != req.ClientID || grant.RedirectURI != req.RedirectURI {
		return nil, ErrInvalidCode
	}

	if oauth2.S256ChallengeFromVerifier(req.CodeVerifier) != grant.CodeChallenge {
		return nil, ErrInvalidCodeVerifier
	}

	accessToken, err := s.issueAccessToken(grant)
	if err != nil {
		slog.Error("Token issuance failed", "error", err, "client_id", grant.ClientID)
		return nil, ErrTokenIssuanceFailure
	}

	slog.Debug("Issued access token", "client_id", grant.ClientID, "token", util.JWSToText(accessToken))

	return &oauth2.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}

func (s *Server) issueAccessToken(grant *CodeGrant) (string, error) {
	now := time.Now()

	accessJwt := jwt.New()
	accessJwt.Set("app", AppClaim)
	accessJwt.Set(jwt.IssuerKey, s.issuer)
	accessJwt.Set(jwt.AudienceKey, grant.ClientID)
	accessJwt.Set(jwt.IssuedAtKey, now)
	accessJwt.Set(jwt.ExpirationKey, now.Add(s.tokenTTL))
	accessJwt.Set(jwt.JwtIDKey, ksuid.New().String())

	accessTokenBytes, err := jwt.Sign(accessJwt, jwt.WithKey(jwa.RS256, s.sigPrK))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return string(accessTokenBytes), nil
}
