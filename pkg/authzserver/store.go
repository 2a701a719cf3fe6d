package authzserver

import (
	"errors"
	"time"
)

// Client is a registered OAuth2 client with its single allowed redirect URI.
type Client struct {
	ClientID    string `yaml:"client_id" json:"client_id" validate:"required"`
	RedirectURI string `yaml:"redirect_uri" json:"redirect_uri" validate:"required,url"`
}

func (c *Client) IsRegisteredRedirectURI(redirectURI string) bool {
	return c.RedirectURI == redirectURI
}

// User is a demo credential pair. Passwords are compared in plaintext, which
// is the intended demo-grade behavior.
type User struct {
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"password" validate:"required"`
}

// CodeGrant binds an issued authorization code to its PKCE parameters and the
// client it was issued for. Verifier is empty unless the code was minted in
// the local flow, where the verifier round-trips through the login form.
type CodeGrant struct {
	Code                string    `json:"code"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	CodeVerifier        string    `json:"code_verifier,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type ClientRegistry interface {
	GetClient(clientID string) (*Client, error)
	DefaultClient() (*Client, error)
}

type CredentialStore interface {
	GetUser(username string) (*User, error)
}

// CodeStore keeps issued code grants for the lifetime of the process. Put is
// atomic check-and-insert and must never overwrite an existing code.
type CodeStore interface {
	PutGrant(grant *CodeGrant) error
	GetGrant(code string) (*CodeGrant, error)
	DeleteGrant(code string) error
}

var ErrDuplicateCode = errors.New("authorization code already exists")

var ErrNotFound = errors.New("not found")

// StaticClientRegistry serves the clients configured at startup. The first
// configured client is the default one used by the local flow.
type StaticClientRegistry struct {
	Clients []Client
}

func (r *StaticClientRegistry) GetClient(clientID string) (*Client, error) {
	for i := range r.Clients {
		if r.Clients[i].ClientID == clientID {
			return &r.Clients[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *StaticClientRegistry) DefaultClient() (*Client, error) {
	if len(r.Clients) == 0 {
		return nil, ErrNotFound
	}
	return &r.Clients[0], nil
}

// StaticCredentialStore serves the users configured at startup.
type StaticCredentialStore struct {
	Users []User
}

func (s *StaticCredentialStore) GetUser(username string) (*User, error) {
	for i := range s.Users {
		if s.Users[i].Username == username {
			return &s.Users[i], nil
		}
	}
	return nil, ErrNotFound
}
