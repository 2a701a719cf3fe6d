package authzserver

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gemba/covid19-rest-server/pkg/oauth2"
	"github.com/gemba/covid19-rest-server/pkg/util"
	"github.com/segmentio/ksuid"
)

const codeLength = 128

// AuthorizationRequest carries the query parameters of the authorization
// endpoint. State may be absent; the other parameters are required.
type AuthorizationRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// CheckAuthorizationRequest validates the client_id/redirect_uri pair against
// the registry. Both must match a registered client exactly.
func (s *Server) CheckAuthorizationRequest(req *AuthorizationRequest) error {
	client, err := s.clients.GetClient(req.ClientID)
	if err != nil {
		return ErrInvalidClient
	}
	if !client.IsRegisteredRedirectURI(req.RedirectURI) {
		return ErrInvalidClient
	}
	return nil
}

// LocalAuthorization is the self-generated variant of an authorization
// request, used when the server drives the flow itself. The verifier is
// round-tripped through the rendered login form.
type LocalAuthorization struct {
	Client              *Client
	State               string
	CodeVerifier        string
	CodeChallenge       string
	CodeChallengeMethod string
}

func (s *Server) NewLocalAuthorization() (*LocalAuthorization, error) {
	client, err := s.clients.DefaultClient()
	if err != nil {
		return nil, fmt.Errorf("no client configured for the local flow: %w", err)
	}

	verifier := oauth2.GenerateCodeVerifier()
	return &LocalAuthorization{
		Client:              client,
		State:               ksuid.New().String(),
		CodeVerifier:        verifier,
		CodeChallenge:       oauth2.S256ChallengeFromVerifier(verifier),
		CodeChallengeMethod: string(oauth2.CodeChallengeMethodS256),
	}, nil
}

// LoginRequest carries the submitted login form.
type LoginRequest struct {
	ClientID            string
	RedirectURI         string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	CodeVerifier        string
	Username            string
	Password            string
}

// Login validates the submitted credentials, mints an authorization code,
// stores its binding and returns the redirect target on the registered
// redirect URI. This is the only operation that writes to the code store.
func (s *Server) Login(req *LoginRequest) (string, error) {
	user, err := s.users.GetUser(req.Username)
	if err != nil || user.Password != req.Password {
		return "", ErrInvalidCredentials
	}

	client, err := s.clients.GetClient(req.ClientID)
	if err != nil {
		return "", ErrInvalidClient
	}
	if !client.IsRegisteredRedirectURI(req.RedirectURI) {
		return "", ErrInvalidClient
	}

	grant := &CodeGrant{
		Code:                util.GenerateRandomString(codeLength),
		ClientID:            req.ClientID,
		RedirectURI:         req.RedirectURI,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		CodeVerifier:        req.CodeVerifier,
		CreatedAt:           time.Now(),
	}

	if err := s.codes.PutGrant(grant); err != nil {
		return "", fmt.Errorf("store code grant: %w", err)
	}

	target, err := url.Parse(client.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("parse redirect_uri: %w", err)
	}
	params := target.Query()
	params.Set("code", grant.Code)
	if hasState(req.State) {
		params.Set("state", req.State)
	}
	target.RawQuery = params.Encode()

	slog.Info("Issued authorization code", "client_id", grant.ClientID, "username", req.Username)

	return target.String(), nil
}

// LookupGrant resolves an issued code for the callback page.
func (s *Server) LookupGrant(code string) (*CodeGrant, error) {
	return s.codes.GetGrant(code)
}

// The login form serializes an absent state as the literal "undefined".
func hasState(state string) bool {
	return state != "" && state != "undefined"
}
